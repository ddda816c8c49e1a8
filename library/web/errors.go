// Package web holds the HTTP glue shared by all forum controllers:
// the JSON error envelope, request validation and id parsing.
package web

import (
	"fmt"
	"net/http"

	"github.com/Laisky/errors/v2"
)

var (
	// ErrNotFound the requested record does not exist or is not visible to the user
	ErrNotFound = errors.New("not found")
	// ErrForbidden the user is not allowed to do this
	ErrForbidden = errors.New("forbidden")
)

// ClientError is an error caused by the request, returned to the client as is
type ClientError struct {
	Code    int
	Message string
	// Fields names the inputs that caused the error
	Fields []string
	// Errors maps input name to its problem
	Errors map[string]string
	// Data is merged into the response envelope
	Data map[string]any
}

// Error implements error
func (e *ClientError) Error() string {
	return fmt.Sprintf("client error %d: %s", e.Code, e.Message)
}

// With sets an extra response key, returns e
func (e *ClientError) With(key string, val any) *ClientError {
	if e.Data == nil {
		e.Data = map[string]any{}
	}

	e.Data[key] = val
	return e
}

// WithErrors sets per field messages, returns e
func (e *ClientError) WithErrors(errs map[string]string) *ClientError {
	e.Errors = errs
	return e
}

// BadRequest creates a 400 ClientError
func BadRequest(msg string, fields ...string) *ClientError {
	return &ClientError{
		Code:    http.StatusBadRequest,
		Message: msg,
		Fields:  fields,
	}
}

// NotFound creates a 404 ClientError
func NotFound() *ClientError {
	return &ClientError{
		Code:    http.StatusNotFound,
		Message: "not found",
	}
}

// Forbidden creates a 403 ClientError
func Forbidden() *ClientError {
	return &ClientError{
		Code:    http.StatusForbidden,
		Message: "forbidden",
	}
}

// AsClientError extracts a ClientError from err
func AsClientError(err error) (*ClientError, bool) {
	var cerr *ClientError
	if errors.As(err, &cerr) {
		return cerr, true
	}

	return nil, false
}
