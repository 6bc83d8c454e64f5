package core

import (
	goerrors "errors"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned when a row does not exist or the caller
	// has no visibility into it; the two cases are intentionally
	// indistinguishable so record existence never leaks.
	ErrNotFound = goerrors.New("not found")

	// ErrForbidden is returned when the caller is identified but policy
	// denies the operation.
	ErrForbidden = goerrors.New("permission denied")

	// ErrUnauthenticated is returned when no valid caller identity could
	// be established.
	ErrUnauthenticated = goerrors.New("user not authenticated")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
