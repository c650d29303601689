package apperror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Kind classifies an error by how the caller should react to it
type Kind string

const (
	// KindValidation is bad or missing input; never retried automatically
	KindValidation Kind = "validation"
	// KindEncoding is a codec failure while re-encoding an image
	KindEncoding Kind = "encoding"
	// KindRemote is a failed call to the extraction or persistence service
	KindRemote Kind = "remote"
)

// Error is an error with a kind and a user-facing message
type Error struct {
	Kind    Kind
	Message string
	Status  int // HTTP status for remote errors, 0 otherwise
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation creates an input validation error
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// Encoding creates an encoding error
func Encoding(message string, err error) *Error {
	return &Error{Kind: KindEncoding, Message: message, Err: err}
}

// Remote creates a remote service error
func Remote(status int, message string, err error) *Error {
	return &Error{Kind: KindRemote, Message: message, Status: status, Err: err}
}

// IsKind reports whether err wraps an *Error of the given kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Message returns the user-facing message of err, or err.Error() when it is not an *Error
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// FromResponse builds a remote error from a non-2xx response.
// The message is the server's "detail" (or "error") string when the body carries one,
// otherwise fallback.
func FromResponse(resp *http.Response, fallback string) *Error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	message := fallback
	var payload struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		var detail string
		// FastAPI sends a list of objects for request validation failures; only plain strings are shown
		if len(payload.Detail) > 0 && json.Unmarshal(payload.Detail, &detail) == nil && strings.TrimSpace(detail) != "" {
			message = detail
		} else if strings.TrimSpace(payload.Error) != "" {
			message = payload.Error
		}
	}

	return Remote(resp.StatusCode, message, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
}
