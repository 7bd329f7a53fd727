package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the single error type crossing the service boundary. Handlers map
// Status to the transport response; everything else stays an opaque 500.
type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Validation(format string, args ...any) *Error {
	return New(http.StatusBadRequest, "validation_error", fmt.Errorf(format, args...))
}

func Authorization(format string, args ...any) *Error {
	return New(http.StatusForbidden, "authorization_error", fmt.Errorf(format, args...))
}

func NotFound(format string, args ...any) *Error {
	return New(http.StatusNotFound, "not_found", fmt.Errorf(format, args...))
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "internal_error", err)
}

func IsValidation(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == "validation_error"
}

func IsAuthorization(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == "authorization_error"
}

func IsNotFound(err error) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Code == "not_found"
}

// Status returns the HTTP status for err, defaulting to 500 for anything that
// is not an *Error.
func Status(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the error code for err, defaulting to internal_error.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Code != "" {
		return ae.Code
	}
	return "internal_error"
}
