package events

import "errors"

var (
	ErrNotFound          = errors.New("event not found")
	ErrInvalidData       = errors.New("invalid data")
	ErrConflict          = errors.New("conflict")
	ErrRetryable         = errors.New("retryable")
	ErrTimeout           = errors.New("timeout")
	ErrUnavailable       = errors.New("event store unavailable")
	ErrRetriesExhausted  = errors.New("retries exhausted")
	ErrUnexpected        = errors.New("unexpected error")
	ErrInvalidIdentifier = errors.New("invalid event uuid")
)

// IsTransient reports whether err is worth another attempt. Validation and
// lookup failures never are.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrInvalidData),
		errors.Is(err, ErrInvalidIdentifier),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrRetriesExhausted):
		return false
	}
	return true
}
