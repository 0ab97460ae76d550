package summarizer

import (
	"errors"
	"net/http"
)

// InvalidInputError rejects text before any model work is attempted.
type InvalidInputError struct{ Reason string }

func (e *InvalidInputError) Error() string   { return "invalid input: " + e.Reason }
func (e *InvalidInputError) StatusCode() int { return http.StatusBadRequest }

// IsInvalidInput reports whether err is an InvalidInputError.
func IsInvalidInput(err error) bool {
	var ie *InvalidInputError
	return errors.As(err, &ie)
}

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ device string }

func (e tooBusyError) Error() string { return "too busy: " + e.device }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var tb tooBusyError
	return errors.As(err, &tb)
}

// profileNotFoundError reports an unknown profile name.
type profileNotFoundError struct{ name string }

func (e profileNotFoundError) Error() string { return "profile not found: " + e.name }

// ErrProfileNotFound returns an error for an unknown profile name.
func ErrProfileNotFound(name string) error { return profileNotFoundError{name: name} }

// IsProfileNotFound reports whether err indicates an unknown profile.
func IsProfileNotFound(err error) bool {
	var pe profileNotFoundError
	return errors.As(err, &pe)
}

// ErrClosed is returned after Close.
var ErrClosed = errors.New("summarizer closed")
