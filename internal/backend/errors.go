package backend

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when the backend answers 401: the session
// cookie or bearer token is no longer valid.
var ErrUnauthorized = errors.New("backend: unauthorized")

// QuotaError is returned when the analyze endpoint answers 402. It is the
// authoritative enforcement point for usage limits; CheckoutURL is present
// when the backend offers an upgrade flow.
type QuotaError struct {
	CheckoutURL string
}

func (e *QuotaError) Error() string {
	if e.CheckoutURL != "" {
		return "backend: quota exceeded (checkout available)"
	}
	return "backend: quota exceeded"
}

// StatusError is any other non-2xx response. Body carries the response text
// when it was readable.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("backend: status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("backend: status %d", e.Status)
}
