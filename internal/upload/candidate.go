package upload

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"
	"strings"
)

var ErrUnsupportedFile = errors.New("unsupported file: expected an Excel file (.xls, .xlsx) or CSV")

// Extension check is case-insensitive; the media-type check is a substring
// match because browsers report inconsistent types for spreadsheet files
// across platforms. Either passing is enough.
var spreadsheetName = regexp.MustCompile(`(?i)\.(xlsx?|csv)$`)

// Candidate is a user-selected file awaiting submission. It is held only
// until the upload completes or the UI resets; nothing retains it after.
type Candidate struct {
	Name        string
	Size        int64
	ContentType string
	Data        []byte
}

func NewCandidate(name, contentType string, data []byte) Candidate {
	return Candidate{
		Name:        name,
		Size:        int64(len(data)),
		ContentType: contentType,
		Data:        data,
	}
}

// Validate applies the acceptance gate. It never touches the network; a
// rejected candidate must not produce any backend call.
func (c Candidate) Validate() error {
	if spreadsheetName.MatchString(c.Name) {
		return nil
	}
	mediaType := strings.ToLower(c.ContentType)
	if strings.Contains(mediaType, "spreadsheet") || strings.Contains(mediaType, "csv") {
		return nil
	}
	return ErrUnsupportedFile
}

// ContentKey returns the lowercase hex SHA-256 digest of the file bytes,
// used as the idempotency key: a retried submission of identical bytes is
// recognized by the backend as the same logical request. Computed fresh per
// submission attempt, never cached across files.
func (c Candidate) ContentKey() string {
	sum := sha256.Sum256(c.Data)
	return hex.EncodeToString(sum[:])
}
