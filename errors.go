package messagecrypto

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors - Configuration
var (
	ErrMissingBaoAddr  = errors.New("messagecrypto: BaoAddr is required")
	ErrMissingBaoToken = errors.New("messagecrypto: BaoToken is required")
)

// Sentinel errors - Keys
var (
	ErrKeyNotFound  = errors.New("messagecrypto: key not found")
	ErrUnauthorized = errors.New("messagecrypto: signature does not prove control of address")
)

// Sentinel errors - OpenBao
var (
	ErrBaoConnection  = errors.New("messagecrypto: failed to connect to OpenBao")
	ErrBaoAuth        = errors.New("messagecrypto: authentication failed")
	ErrBaoSealed      = errors.New("messagecrypto: OpenBao is sealed")
	ErrBaoUnavailable = errors.New("messagecrypto: OpenBao is unavailable")
)

// Sentinel errors - Operations
var (
	ErrDecryptionFailed = errors.New("messagecrypto: decryption failed")
	ErrMessageTooLarge  = errors.New("messagecrypto: message too large")
	ErrInvalidResponse  = errors.New("messagecrypto: invalid response")
)

// Engine error messages that map onto sentinels regardless of status code.
var messageSentinels = []struct {
	prefix string
	err    error
}{
	{"signature does not prove control", ErrUnauthorized},
	{"no key registered", ErrKeyNotFound},
	{"decryption failed", ErrDecryptionFailed},
	{"plaintext exceeds", ErrMessageTooLarge},
}

// BaoError represents an OpenBao API error.
type BaoError struct {
	StatusCode int
	Errors     []string
	RequestID  string
}

// Error implements the error interface.
func (e *BaoError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("OpenBao error (HTTP %d)", e.StatusCode)
	}
	return fmt.Sprintf("OpenBao error (HTTP %d): %s", e.StatusCode, e.Errors[0])
}

// Is maps the status code, and the engine's error message, onto sentinels.
func (e *BaoError) Is(target error) bool {
	for _, msg := range e.Errors {
		for _, s := range messageSentinels {
			if strings.HasPrefix(msg, s.prefix) && target == s.err {
				return true
			}
		}
	}

	switch e.StatusCode {
	case 403:
		return target == ErrBaoAuth
	case 404:
		return target == ErrKeyNotFound
	case 503:
		return target == ErrBaoSealed
	default:
		return false
	}
}

// NewBaoError creates a new BaoError with the given parameters.
func NewBaoError(statusCode int, errs []string, requestID string) *BaoError {
	return &BaoError{
		StatusCode: statusCode,
		Errors:     errs,
		RequestID:  requestID,
	}
}

// OpError wraps an error with the operation and the address it targeted.
type OpError struct {
	Op      string
	Address string
	Err     error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Address == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Address, e.Err)
}

// Unwrap implements the errors.Unwrap interface for error chaining.
func (e *OpError) Unwrap() error {
	return e.Err
}

// WrapOpError wraps an error with operation context.
// Returns nil if the provided error is nil.
func WrapOpError(op, address string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{
		Op:      op,
		Address: address,
		Err:     err,
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError with the given field and message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
