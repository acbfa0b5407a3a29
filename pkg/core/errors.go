package core

import (
	"fmt"
)

// ErrorCategory groups errors by where they originate.
type ErrorCategory string

const (
	// ErrCategoryResolution covers lookup and strategy failures.
	ErrCategoryResolution ErrorCategory = "resolution"
	// ErrCategoryParse covers raw-dump parsing failures.
	ErrCategoryParse ErrorCategory = "parse"
	// ErrCategoryTransport covers driver/device communication failures.
	ErrCategoryTransport ErrorCategory = "transport"
)

// ExecutionError represents a structured error with category and details
type ExecutionError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: target_not_found, exhausted, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *ExecutionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// WithCause returns a copy of the error with the given cause
func (e *ExecutionError) WithCause(cause error) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *ExecutionError) WithMessage(msg string) *ExecutionError {
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *ExecutionError) WithDetails(details map[string]interface{}) *ExecutionError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &ExecutionError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	// Resolution errors
	ErrTargetNotFound = &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     "target_not_found",
		Message:  "target id not present in the current snapshot",
	}
	ErrStrategyFailed = &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     "strategy_failed",
		Message:  "resolution strategy failed",
	}
	ErrExhausted = &ExecutionError{
		Category: ErrCategoryResolution,
		Code:     "exhausted",
		Message:  "all resolution strategies failed",
	}

	// Parse errors
	ErrParseFailure = &ExecutionError{
		Category: ErrCategoryParse,
		Code:     "parse_failure",
		Message:  "could not parse raw UI dump",
	}
	ErrCycleDetected = &ExecutionError{
		Category: ErrCategoryParse,
		Code:     "cycle_detected",
		Message:  "cycle in raw node data",
	}
	ErrDepthExceeded = &ExecutionError{
		Category: ErrCategoryParse,
		Code:     "depth_exceeded",
		Message:  "raw tree exceeds maximum depth",
	}

	// Transport errors
	ErrDriverTransport = &ExecutionError{
		Category: ErrCategoryTransport,
		Code:     "driver_transport",
		Message:  "driver communication failed",
	}
)

// NewExecutionError creates a new ExecutionError with the given parameters
func NewExecutionError(category ErrorCategory, code, message string) *ExecutionError {
	return &ExecutionError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}
