package core

// Error codes for domain errors.
const (
	ErrCodeInvalidInput = "invalid_input"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeInvalidState = "invalid_state"
	ErrCodeNotFound     = "not_found"
	ErrCodeStore        = "store_error"
)

// Error wraps a code and human-readable message. Operations fail with
// an *Error before any persistence or publish happens; infrastructure
// failures are wrapped separately and surface as ErrCodeStore.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// InvalidInput reports a missing or out-of-range field.
func InvalidInput(msg string) *Error {
	return &Error{Code: ErrCodeInvalidInput, Message: msg}
}

// Unauthorized reports an actor mismatch against the required role.
func Unauthorized(msg string) *Error {
	return &Error{Code: ErrCodeUnauthorized, Message: msg}
}

// InvalidState reports a workflow precondition violation. Safe to retry
// after external state changes.
func InvalidState(msg string) *Error {
	return &Error{Code: ErrCodeInvalidState, Message: msg}
}

// NotFound reports an absent message or conversation.
func NotFound(msg string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: msg}
}
