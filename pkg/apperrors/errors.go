// Package apperrors carries coded errors shared across the bridge. The code
// is a stable, machine-readable tag; the message is for humans.
package apperrors

import "fmt"

// AppError represents an application-level error with a code and optional cause.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError.
func New(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error codes
const (
	ErrCodeConfigInvalid    = "CONFIG_INVALID"
	ErrCodeDuplicateTool    = "DUPLICATE_TOOL"
	ErrCodeToolNotFound     = "TOOL_NOT_FOUND"
	ErrCodeInvalidArguments = "INVALID_ARGUMENTS"
	ErrCodeToolExecution    = "TOOL_EXECUTION_FAILED"
	ErrCodeOracleFailed     = "ORACLE_FAILED"
	ErrCodeCatalog          = "CATALOG_FAILED"
	ErrCodeTransport        = "TRANSPORT_FAILED"
)
