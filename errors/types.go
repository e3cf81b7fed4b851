package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Trigger engine errors
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodePauseActive       ErrorCode = "PAUSE_ACTIVE"
	ErrCodeInvalidOutcome    ErrorCode = "INVALID_OUTCOME"
	ErrCodeTrustOutOfRange   ErrorCode = "TRUST_OUT_OF_RANGE"

	// Configuration errors
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"

	// Daemon errors
	ErrCodeDaemonUnavailable ErrorCode = "DAEMON_UNAVAILABLE"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// NudgeError represents a structured error with context
type NudgeError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *NudgeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *NudgeError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *NudgeError) WithDetail(key string, value interface{}) *NudgeError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *NudgeError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new NudgeError
func New(code ErrorCode, message string) *NudgeError {
	return &NudgeError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a NudgeError
func Wrap(err error, code ErrorCode, message string) *NudgeError {
	return &NudgeError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific NudgeError code
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	nudgeErr, ok := err.(*NudgeError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	return nudgeErr.Code == code
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	nudgeErr, ok := err.(*NudgeError)
	if !ok {
		// Try to unwrap
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return nudgeErr.Code
}

// As returns the first NudgeError in err's chain, or nil.
func As(err error) *NudgeError {
	for err != nil {
		if nudgeErr, ok := err.(*NudgeError); ok {
			return nudgeErr
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil
		}
		err = unwrapper.Unwrap()
	}
	return nil
}

// HTTPStatus maps an error to the status code the daemon API answers with.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case "":
		if err == nil {
			return http.StatusOK
		}
		return http.StatusInternalServerError
	case ErrCodeInvalidTransition, ErrCodePauseActive:
		return http.StatusConflict
	case ErrCodeInvalidOutcome, ErrCodeInvalidInput, ErrCodeConfigInvalid:
		return http.StatusBadRequest
	case ErrCodeConfigNotFound:
		return http.StatusNotFound
	case ErrCodeDaemonUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
