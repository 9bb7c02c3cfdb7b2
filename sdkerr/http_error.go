package sdkerr

import (
	"encoding/json"
	"fmt"
)

// HTTPError describes a non-2xx response from the backend.
type HTTPError struct {
	StatusCode int
	// Body is the raw response payload.
	Body []byte
	// Parsed holds the JSON-decoded Body, or nil when Body is not JSON.
	Parsed any
}

// NewHTTPError builds an HTTPError, decoding the body when it is JSON.
func NewHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{StatusCode: status, Body: body}
	if len(body) > 0 {
		var parsed any
		if err := json.Unmarshal(body, &parsed); err == nil {
			e.Parsed = parsed
		}
	}
	return e
}

func (e *HTTPError) Error() string {
	if msg := e.ServerMessage(); msg != "" {
		return fmt.Sprintf("http status %d: %s", e.StatusCode, msg)
	}
	if len(e.Body) > 0 {
		return fmt.Sprintf("http status %d: %s", e.StatusCode, string(e.Body))
	}
	return fmt.Sprintf("http status %d", e.StatusCode)
}

// ServerMessage returns the "error" field of a JSON error body, if present.
func (e *HTTPError) ServerMessage() string {
	m, ok := e.Parsed.(map[string]any)
	if !ok {
		return ""
	}
	msg, _ := m["error"].(string)
	return msg
}

// IsNotFound reports whether the response was a 404.
func (e *HTTPError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsUnauthorized reports whether the backend rejected the credentials.
func (e *HTTPError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}
