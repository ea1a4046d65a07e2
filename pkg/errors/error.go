// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown and general errors
//   - Validation errors (100-199): Invalid parameters, configuration and versions
//   - Data/Resource errors (200-299): Missing bars, unreadable history, bad rows
//   - Indicator errors (300-399): Indicator lookup and calculation errors
//   - Signal errors (400-499): Undefined signal inputs, bearish market regime
//   - Trading errors (500-599): Ledger invariant violations and position lookups
//   - State errors (600-699): Portfolio state read, write and migration failures
//   - Market data errors (700-799): Provider fetch, rate limit and circuit breaker errors
//
// The scanner treats these categories differently. Data errors skip a symbol
// for the current cycle, trading errors reject a single signal, and state write
// errors abort the run so the caller can retry.
//
// Usage:
//
//	err := errors.Newf(errors.ErrCodeInsufficientCash, "cost %.2f exceeds cash %.2f", cost, cash)
//
//	if errors.IsDataUnavailable(err) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// IsDataUnavailable reports whether err means the data for a symbol could not be
// obtained or is too short to evaluate. Such errors skip the symbol for one cycle.
func IsDataUnavailable(err error) bool {
	if err == nil {
		return false
	}

	if IsInsufficientDataError(err) {
		return true
	}

	code := GetCode(err)

	return (code >= 200 && code < 300) || (code >= 700 && code < 800) || code == ErrCodeInsufficientData
}

// IsInvariantViolation reports whether err is a rejected ledger operation.
func IsInvariantViolation(err error) bool {
	code := GetCode(err)

	return code >= 500 && code < 600
}

// InsufficientDataError represents an error when there is not enough data
// for a calculation (e.g., a symbol with fewer bars than the indicator warmup).
type InsufficientDataError struct {
	Required int    // Minimum data points required
	Actual   int    // Actual data points available
	Symbol   string // Optional: symbol context
	Message  string // Human-readable message
}

// NewInsufficientDataError creates a new InsufficientDataError.
func NewInsufficientDataError(required, actual int, symbol, message string) *InsufficientDataError {
	return &InsufficientDataError{
		Required: required,
		Actual:   actual,
		Symbol:   symbol,
		Message:  message,
	}
}

// NewInsufficientDataErrorf creates a new InsufficientDataError with a formatted message.
func NewInsufficientDataErrorf(required, actual int, symbol, format string, args ...any) *InsufficientDataError {
	return &InsufficientDataError{
		Required: required,
		Actual:   actual,
		Symbol:   symbol,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	return e.Message
}

// IsInsufficientDataError checks if an error is an InsufficientDataError.
func IsInsufficientDataError(err error) bool {
	var insufficientErr *InsufficientDataError

	return errors.As(err, &insufficientErr)
}
