package commerce

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBackendUnavailable indicates the commerce backend could not be
	// reached at all (network failure, timeout).
	ErrBackendUnavailable = errors.New("commerce backend unavailable")

	// ErrRequestRejected indicates the backend answered with a non-2xx
	// status; the wrapped APIError carries the detail.
	ErrRequestRejected = errors.New("commerce request rejected")

	// ErrInvalidResponse indicates the backend answered with a body the
	// client could not decode.
	ErrInvalidResponse = errors.New("invalid commerce response")
)

// APIError is the parsed error body of a rejected store API request
type APIError struct {
	Status  int    `json:"-"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("commerce API error: status %d", e.Status)
	}
	return fmt.Sprintf("commerce API error: %s (status %d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error {
	return ErrRequestRejected
}

// IsStaleSessionError reports whether an error carries the backend's
// stale-payment-session signature. Carts whose payment sessions have
// expired reject further mutations with a message instructing the client
// to delete all payment sessions first; that cart cannot be repaired
// through the store API and has to be replaced.
func IsStaleSessionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "delete all payment sessions") ||
		strings.Contains(msg, "payment_sessions")
}

// IsNotFound reports whether the backend answered 404 for the request
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == 404
}
