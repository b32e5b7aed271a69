package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"chatdev/internal/security"
)

// ErrMissingSessionID is returned when the service accepts a create request
// but does not assign an id.
var ErrMissingSessionID = errors.New("service response has no session_id")

// RequestError is a non-2xx response from the generation service.
type RequestError struct {
	StatusCode int
	Status     string         // status line, e.g. "404 Not Found"
	Body       map[string]any // parsed JSON body; nil when the body is not a JSON object
	Message    string
}

func (e *RequestError) Error() string {
	return e.Message
}

// newRequestError builds a RequestError from a response. The description is
// the body's "message", then "detail" (FastAPI), then "HTTP <code>: <text>".
// Anything that looks like a credential is masked.
func newRequestError(code int, status string, body []byte) *RequestError {
	e := &RequestError{StatusCode: code, Status: status}

	var parsed map[string]any
	if len(body) > 0 && json.Unmarshal(body, &parsed) == nil {
		e.Body = security.RedactMap(parsed)
	}

	e.Message = stringField(e.Body, "message")
	if e.Message == "" {
		e.Message = stringField(e.Body, "detail")
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("HTTP %d: %s", code, http.StatusText(code))
	}
	e.Message = security.Redact(e.Message)
	return e
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// IsNotFound reports whether err is a 404 RequestError.
func IsNotFound(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound
}

// MissingCredentialError means no API key is configured for the provider.
// It is raised locally, before any request is issued.
type MissingCredentialError struct {
	Provider string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("no API key configured for provider %q", e.Provider)
}
