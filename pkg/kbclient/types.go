package kbclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// FileRecord is one uploaded document as reported by the backend.
type FileRecord struct {
	Id         RecordID `json:"id"`
	FileName   string   `json:"file_name"`
	Tag        string   `json:"tag,omitempty"`
	UploadTime string   `json:"upload_time"`
}

// RecordID accepts both numeric and string ids.
type RecordID string

func (id *RecordID) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*id = ""
		return nil
	}
	text, _ := RawText(data)
	*id = RecordID(strings.TrimSpace(text))
	return nil
}

// MessageResponse is the body of upload and delete responses.
type MessageResponse struct {
	Message string `json:"message"`
}

// QueryParams maps onto the query string of GET /query.
type QueryParams struct {
	Question    string
	SessionId   string
	Tag         string
	StyleNeeded bool
}

// QueryResponse carries the answer and its optional reasoning and citations.
// Thoughts and Origin stay raw so plain strings and compound values can be told apart.
type QueryResponse struct {
	Answer   string  `json:"answer"`
	Thoughts RawList `json:"thoughts,omitempty"`
	Origin   RawList `json:"origin,omitempty"`
}

// RawList holds the elements of a JSON array. Any other value decodes to
// an empty list so a malformed field never costs the answer.
type RawList []json.RawMessage

func (l *RawList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		*l = nil
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return err
	}
	*l = items
	return nil
}

// UploadInput is one document to push to POST /upload-data.
type UploadInput struct {
	FileName string
	Content  io.Reader
	Tag      string
}

// RequestError is returned for every non-2xx backend response.
type RequestError struct {
	Op         string
	StatusCode int
	Status     string
	Detail     string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, statusText(e.Status, e.StatusCode))
}

func statusText(status string, code int) string {
	// net/http Status is "404 Not Found"; keep only the reason phrase
	prefix := fmt.Sprintf("%d ", code)
	return strings.TrimPrefix(status, prefix)
}

// RawText renders a raw JSON value the way the console shows it:
// strings verbatim, anything else as indented JSON. null is shown as
// "null" rather than an empty string.
func RawText(raw json.RawMessage) (text string, plain bool) {
	if isNull(raw) {
		return "null", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw), false
	}
	return buf.String(), false
}

// OriginTexts flattens the origin list into display strings.
func (r *QueryResponse) OriginTexts() []string {
	out := make([]string, 0, len(r.Origin))
	for _, o := range r.Origin {
		text, _ := RawText(o)
		out = append(out, text)
	}
	return out
}

func isNull(raw []byte) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
