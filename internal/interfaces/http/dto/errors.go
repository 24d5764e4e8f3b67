package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeTokenExpired is used when the session token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the session token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
)

// Cart error codes
const (
	// ErrCodeRecoveryInProgress is used when the cart is mid-recovery
	ErrCodeRecoveryInProgress = "ERR_RECOVERY_IN_PROGRESS"
	// ErrCodeCartUnavailable is used when no cart can be produced for a session
	ErrCodeCartUnavailable = "ERR_CART_UNAVAILABLE"
	// ErrCodeLocalModeOnly is used when the operation needs a local cart
	ErrCodeLocalModeOnly = "ERR_LOCAL_MODE_ONLY"
	// ErrCodeRemoteModeOnly is used when the operation needs a backend cart
	ErrCodeRemoteModeOnly = "ERR_REMOTE_MODE_ONLY"
	// ErrCodeCompletionRejected is used when checkout is rejected by the backend
	ErrCodeCompletionRejected = "ERR_COMPLETION_REJECTED"
	// ErrCodeBackendUnavailable is used when the commerce backend is unreachable
	ErrCodeBackendUnavailable = "ERR_BACKEND_UNAVAILABLE"
	// ErrCodeUnexpectedResponse is used when the backend answers out of protocol
	ErrCodeUnexpectedResponse = "ERR_UNEXPECTED_RESPONSE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeValidation is used when request validation fails
	ErrCodeValidation = "ERR_VALIDATION"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,

	ErrCodeNotFound: http.StatusNotFound,
	ErrCodeConflict: http.StatusConflict,

	// Cart errors
	ErrCodeRecoveryInProgress: http.StatusConflict,
	ErrCodeCartUnavailable:    http.StatusServiceUnavailable,
	ErrCodeLocalModeOnly:      http.StatusUnprocessableEntity,
	ErrCodeRemoteModeOnly:     http.StatusUnprocessableEntity,
	ErrCodeCompletionRejected: http.StatusUnprocessableEntity,
	ErrCodeBackendUnavailable: http.StatusBadGateway,
	ErrCodeUnexpectedResponse: http.StatusBadGateway,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to the wire format
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                 ErrCodeNotFound,
	"REGION_NOT_FOUND":          ErrCodeNotFound,
	"ITEM_NOT_FOUND":            ErrCodeNotFound,
	"SHIPPING_OPTION_NOT_FOUND": ErrCodeNotFound,
	"INVALID_PRODUCT":           ErrCodeInvalidInput,
	"INVALID_QUANTITY":          ErrCodeInvalidInput,
	"INVALID_PROMO_CODE":        ErrCodeInvalidInput,
	"INVALID_INPUT":             ErrCodeInvalidInput,
	"INVALID_STATE":             ErrCodeConflict,
	"UNAUTHORIZED":              ErrCodeUnauthorized,
	"RECOVERY_IN_PROGRESS":      ErrCodeRecoveryInProgress,
	"CART_UNAVAILABLE":          ErrCodeCartUnavailable,
	"PROMOTION_DUPLICATE":       ErrCodeConflict,
	"LOCAL_MODE_ONLY":           ErrCodeLocalModeOnly,
	"REMOTE_MODE_ONLY":          ErrCodeRemoteModeOnly,
	"COMPLETION_REJECTED":       ErrCodeCompletionRejected,
	"UNEXPECTED_RESPONSE":       ErrCodeUnexpectedResponse,
	"PAYMENT_SESSION_STALE":     ErrCodeConflict,
}

// NormalizeErrorCode converts a domain error code to the wire format
// If the code is already in the wire format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if wireCode, ok := DomainErrorCodeMapping[code]; ok {
		return wireCode
	}
	return code
}
