package core

import "errors"

// Error kinds surfaced to callers. Handlers map these to HTTP statuses,
// so every failure in this package wraps exactly one of them.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInsufficientData = errors.New("insufficient data")
	ErrUnauthenticated  = errors.New("not signed in")
	ErrComputation      = errors.New("computation failed")
)

// ValidationError reports a rejected user-supplied measurement together
// with the human-readable field name it belongs to.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + " " + e.Message
}

// Unwrap makes errors.Is(err, ErrInvalidInput) hold for every validation failure.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
