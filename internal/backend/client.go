package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/datapulse/webclient/internal/config"
)

// Client is the HTTP client for the external DataPulse analysis API.
// A shared cookie jar carries the ambient session cookie across calls, the
// way a browser would; a bearer token is layered on top when one is cached
// (federated logins set a token instead of relying purely on cookies).
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	timeoutSeconds := cfg.BackendTimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = 60
	}

	jar, _ := cookiejar.New(nil)

	return &Client{
		baseURL: cfg.BackendBaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
			Jar:     jar,
		},
	}
}

// Analyze uploads the file for quick analysis (phase 1) and returns the raw
// JSON body on success. 401 maps to ErrUnauthorized, 402 to *QuotaError and
// any other non-2xx to *StatusError carrying the response text.
func (c *Client) Analyze(ctx context.Context, filename string, data []byte, idempotencyKey, token string) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/analyze", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Idempotency-Key", idempotencyKey)
	setBearer(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusPaymentRequired:
		return nil, decodeQuotaError(resp.Body)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, newStatusError(resp)
	}

	return io.ReadAll(resp.Body)
}

// AISummary requests the AI enrichment (phase 2) by upload handle, without
// re-sending the file. The caller treats any failure as soft.
func (c *Client) AISummary(ctx context.Context, summaryReq AISummaryRequest, token string) ([]byte, error) {
	payload, err := json.Marshal(summaryReq)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/ai-summary", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	setBearer(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(resp)
	}

	return io.ReadAll(resp.Body)
}

// Session performs the lightweight "am I logged in" check.
func (c *Client) Session(ctx context.Context) (*SessionInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/session", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(resp)
	}

	var info SessionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode session response: %w", err)
	}
	return &info, nil
}

// StartSession asks the backend to bootstrap an anonymous session. Failures
// are tolerated by callers; the session check afterwards is what counts.
func (c *Client) StartSession(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/session/start", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(resp)
	}
	return nil
}

// Login exchanges credentials for a session cookie (captured by the jar) and
// optionally a bearer token in the response body.
func (c *Client) Login(ctx context.Context, email, password string) (*SessionInfo, error) {
	payload, err := json.Marshal(LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/login", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(resp)
	}

	var info SessionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}
	if !info.Authenticated && (info.UserID != "" || info.Token != "") {
		// Some backend variants omit the flag on the login response.
		info.Authenticated = true
	}
	return &info, nil
}

// Logout clears the server-side session.
func (c *Client) Logout(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/logout", nil)
	if err != nil {
		return err
	}
	setBearer(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(resp)
	}
	return nil
}

// Usage fetches the caller's remaining-report quota and premium status.
func (c *Client) Usage(ctx context.Context, token string) (*UsageStats, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/usage", nil)
	if err != nil {
		return nil, err
	}
	setBearer(req, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newStatusError(resp)
	}

	var stats UsageStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode usage response: %w", err)
	}
	return &stats, nil
}

// HasSessionCookie reports whether the jar currently holds a cookie for the
// backend host. Used to decide whether an unauthenticated session check is
// worth one retry (a federated-login redirect may not have propagated yet).
func (c *Client) HasSessionCookie() bool {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return false
	}
	return len(c.httpClient.Jar.Cookies(u)) > 0
}

func setBearer(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func decodeQuotaError(body io.Reader) *QuotaError {
	var payload struct {
		CheckoutURL string `json:"checkout_url"`
	}
	// A 402 without a JSON body is still a quota error.
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return &QuotaError{}
	}
	return &QuotaError{CheckoutURL: payload.CheckoutURL}
}

func newStatusError(resp *http.Response) *StatusError {
	text, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		text = nil
	}
	return &StatusError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(text))}
}
