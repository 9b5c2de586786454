// Package errors defines the application error taxonomy and the central
// handler that turns failures into logs, Sentry events and user-facing text.
package errors

import "fmt"

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AppError carries an internal message for operators and a separate
// user-facing message for the chat.
type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	Retryable   bool
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

// NewConfigError marks an incoherent startup configuration. This is the only
// error class that is fatal: the engine must not run against a broken graph.
func NewConfigError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E100",
		Message:     fmt.Sprintf("configuration error: %s", underlyingMsg),
		UserMessage: "",
		Severity:    SeverityCritical,
		Retryable:   false,
		cause:       cause,
	}
}

// NewTransportError wraps a failed outbound send to the messaging transport.
func NewTransportError(op string, cause error) *AppError {
	return &AppError{
		Code:        "E200",
		Message:     fmt.Sprintf("transport error: %s", op),
		UserMessage: "Временная проблема, попробуйте позже",
		Severity:    SeverityMedium,
		Retryable:   true,
		cause:       cause,
	}
}

// NewStorageError wraps a failed call to a backing store (redis, postgres).
func NewStorageError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E300",
		Message:     fmt.Sprintf("storage error: %s", underlyingMsg),
		UserMessage: "Временная проблема, попробуйте позже",
		Severity:    SeverityHigh,
		Retryable:   true,
		cause:       cause,
	}
}

// NewInternalError wraps an unexpected failure inside a handler.
func NewInternalError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        "E400",
		Message:     fmt.Sprintf("internal error: %s", underlyingMsg),
		UserMessage: "Произошла ошибка. Попробуйте позже",
		Severity:    SeverityHigh,
		Retryable:   false,
		cause:       cause,
	}
}
