package dispatch

import (
	"errors"
	"fmt"

	"scalp-backend/internal/shared/remote"
)

// GenericFailureMessage is shown when a backend gives no usable error text.
const GenericFailureMessage = "We couldn't analyze your photos right now. Please try again."

var (
	ErrMissingImage     = errors.New("required image missing")
	ErrUnsupportedInput = errors.New("unsupported gender for diagnosis")
)

// Error is a failed dispatch carrying the message to show the user.
type Error struct {
	Backend string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s dispatch failed (status %d): %v", e.Backend, e.Status, e.Err)
	}
	return fmt.Sprintf("%s dispatch failed: %v", e.Backend, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage returns the message to surface for err.
func UserMessage(err error) string {
	var dErr *Error
	if errors.As(err, &dErr) && dErr.Message != "" {
		return dErr.Message
	}
	return GenericFailureMessage
}

func wrapError(backend string, err error) *Error {
	out := &Error{Backend: backend, Message: GenericFailureMessage, Err: err}
	var statusErr *remote.StatusError
	if errors.As(err, &statusErr) {
		out.Status = statusErr.Status
		if text := statusErr.Text(); text != "" {
			out.Message = text
		}
	}
	return out
}
