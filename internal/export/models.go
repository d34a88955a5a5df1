package export

import "time"

// Report is a generated PDF kept in the blob store.
type Report struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	FileName   string    `json:"file_name"`
	SizeBytes  int64     `json:"size_bytes"`
	CreatedAt  time.Time `json:"created_at"`
	StorageKey string    `json:"-"`
}
