package core

// Error codes for per-message failures. These are reported back to the
// sender over the connection; they never terminate it.
const (
	ErrCodeEmptyContent     = "empty_content"
	ErrCodeUnknownRecipient = "unknown_recipient"
	ErrCodePersistence      = "persistence_error"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeBadRequest       = "bad_request"
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// NewError builds a CoreError for callers outside the core package.
func NewError(code, msg string) *CoreError {
	return coreError(code, msg)
}
