package domain

import "errors"

// Sentinel errors for domain-level error handling.
// The handler layer maps these to HTTP status codes.
var (
	ErrUnknownSymbol         = errors.New("unknown_symbol")
	ErrDuplicateSymbol       = errors.New("duplicate_symbol")
	ErrDuplicateOwner        = errors.New("duplicate_owner")
	ErrInvalidPrice          = errors.New("invalid_price")
	ErrDependencyUnavailable = errors.New("dependency_unavailable")
	ErrUnknownUser           = errors.New("unknown_user")
	ErrInsufficientFunds     = errors.New("insufficient_funds")
	ErrInsufficientHoldings  = errors.New("insufficient_holdings")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
