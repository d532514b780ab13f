package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrUnknownInstrument    = errors.New("unknown_instrument")
	ErrInsufficientFunds    = errors.New("insufficient_funds")
	ErrInsufficientHoldings = errors.New("insufficient_holdings")
	ErrAlreadyLoaded        = errors.New("already_loaded")
	ErrNotLoaded            = errors.New("not_loaded")
	ErrEngineStopped        = errors.New("engine_stopped")
	ErrWebhookNotFound      = errors.New("webhook_not_found")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ErrorCode returns the snake_case code of the first domain sentinel that err
// wraps, or "internal_error".
func ErrorCode(err error) string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return "validation_error"
	}
	for _, sentinel := range []error{
		ErrUnknownInstrument,
		ErrInsufficientFunds,
		ErrInsufficientHoldings,
		ErrAlreadyLoaded,
		ErrNotLoaded,
		ErrEngineStopped,
		ErrWebhookNotFound,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return "internal_error"
}

// OrderError is an order rejection carrying a user-facing message. It
// unwraps to one of the order sentinels.
type OrderError struct {
	Reason  error
	Message string
}

func (e *OrderError) Error() string {
	return e.Message
}

func (e *OrderError) Unwrap() error {
	return e.Reason
}
