package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrRecoveryInProgress  = NewDomainError("RECOVERY_IN_PROGRESS", "Cart recovery is in progress, retry shortly")
	ErrCartUnavailable     = NewDomainError("CART_UNAVAILABLE", "No cart is available for this session")
	ErrPromotionDuplicate  = NewDomainError("PROMOTION_DUPLICATE", "Promotion code is already applied")
	ErrLocalModeOnly       = NewDomainError("LOCAL_MODE_ONLY", "Operation requires local cart mode")
	ErrRemoteModeOnly      = NewDomainError("REMOTE_MODE_ONLY", "Operation requires a remote cart")
	ErrCompletionRejected  = NewDomainError("COMPLETION_REJECTED", "Cart completion was rejected by the commerce backend")
	ErrUnexpectedResponse  = NewDomainError("UNEXPECTED_RESPONSE", "Unexpected response from the commerce backend")
	ErrPaymentSessionStale = NewDomainError("PAYMENT_SESSION_STALE", "Cart carries a stale payment session")
)
