// Package errors provides the structured error type shared by the console
// engine, its configuration layer and the host commands.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeRegistration ErrorType = "registration"
	ErrorTypeDispatch     ErrorType = "dispatch"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeIO           ErrorType = "io"
	ErrorTypeNetwork      ErrorType = "network"
	ErrorTypeConfig       ErrorType = "config"
	ErrorTypeInternal     ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeCapacity         = "ERR_CAPACITY"
	ErrCodeUnmatched        = "ERR_UNMATCHED"
	ErrCodeInsufficientArgs = "ERR_INSUFFICIENT_ARGS"
	ErrCodeCallbackFailed   = "ERR_CALLBACK_FAILED"
	ErrCodeNotRunning       = "ERR_NOT_RUNNING"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeValidationFailed = "ERR_VALIDATION_FAILED"
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeNetwork          = "ERR_NETWORK"
	ErrCodeInternalError    = "ERR_INTERNAL"
)

// ConsoleError is a structured error type with context.
type ConsoleError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	Recoverable bool
	// Hints are shown to the user below the message.
	Hints []string
}

// Error implements the error interface.
func (e *ConsoleError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *ConsoleError) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same type and code, so that
// errors.Is(err, ErrUnmatchedCommand) holds for any decorated copy.
func (e *ConsoleError) Is(target error) bool {
	var t *ConsoleError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *ConsoleError) WithContext(key string, value interface{}) *ConsoleError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithComponent adds component context.
func (e *ConsoleError) WithComponent(component string) *ConsoleError {
	e.Component = component

	return e
}

// Sentinels for errors.Is. Never mutate these; use the New* constructors to
// build decorated instances.
var (
	ErrCapacityExceeded      = &ConsoleError{Type: ErrorTypeRegistration, Code: ErrCodeCapacity}
	ErrUnmatchedCommand      = &ConsoleError{Type: ErrorTypeDispatch, Code: ErrCodeUnmatched}
	ErrInsufficientArguments = &ConsoleError{Type: ErrorTypeDispatch, Code: ErrCodeInsufficientArgs}
	ErrCallbackFailed        = &ConsoleError{Type: ErrorTypeDispatch, Code: ErrCodeCallbackFailed}
	ErrNotRunning            = &ConsoleError{Type: ErrorTypeDispatch, Code: ErrCodeNotRunning}
)

// NewCapacityError reports a registration rejected by a full command table.
func NewCapacityError(capacity int, help string) *ConsoleError {
	return (&ConsoleError{
		Type:        ErrorTypeRegistration,
		Code:        ErrCodeCapacity,
		Message:     fmt.Sprintf("command table full (%d entries)", capacity),
		Recoverable: false,
	}).WithContext("help", help)
}

// NewUnmatchedError reports an input line no command prefix matched.
func NewUnmatchedError(line string) *ConsoleError {
	return (&ConsoleError{
		Type:        ErrorTypeDispatch,
		Code:        ErrCodeUnmatched,
		Message:     "unknown command: " + line,
		Recoverable: true,
	}).WithContext("line", line)
}

// NewInsufficientArgsError reports a matched command given too few arguments.
func NewInsufficientArgsError(command string, got, want int) *ConsoleError {
	return (&ConsoleError{
		Type:        ErrorTypeDispatch,
		Code:        ErrCodeInsufficientArgs,
		Message:     fmt.Sprintf("%s: %d argument(s) given, %d required", command, got, want),
		Recoverable: true,
	}).WithContext("command", command)
}

// NewCallbackError wraps a failure reported by a command handler.
func NewCallbackError(command string, cause error) *ConsoleError {
	return (&ConsoleError{
		Type:        ErrorTypeDispatch,
		Code:        ErrCodeCallbackFailed,
		Message:     "command failed: " + command,
		Cause:       cause,
		Recoverable: true,
	}).WithContext("command", command)
}

// NewNotRunningError reports a line submitted while the loop is stopped.
func NewNotRunningError() *ConsoleError {
	return &ConsoleError{
		Type:        ErrorTypeDispatch,
		Code:        ErrCodeNotRunning,
		Message:     "console is not running",
		Recoverable: true,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *ConsoleError {
	return &ConsoleError{
		Type:        ErrorTypeValidation,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *ConsoleError {
	return &ConsoleError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *ConsoleError {
	return &ConsoleError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewNetworkError creates a network error.
func NewNetworkError(message string, cause error) *ConsoleError {
	return &ConsoleError{
		Type:        ErrorTypeNetwork,
		Code:        ErrCodeNetwork,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var ce *ConsoleError
	if errors.As(err, &ce) {
		return ce.Recoverable
	}

	return false
}

// IsDispatchError checks if an error was produced while dispatching a line.
func IsDispatchError(err error) bool {
	var ce *ConsoleError
	if errors.As(err, &ce) {
		return ce.Type == ErrorTypeDispatch
	}

	return false
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// ErrorHandler provides centralized error logging.
type ErrorHandler struct {
	logger Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Handle logs err at a level matching its type.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil || h.logger == nil {
		return
	}

	var ce *ConsoleError
	if !errors.As(err, &ce) {
		h.logger.Error(ctx, err, "Unhandled error occurred")
		return
	}

	switch ce.Type {
	case ErrorTypeDispatch, ErrorTypeValidation:
		h.logger.Warn(ctx, err, "Command rejected",
			"type", ce.Type,
			"code", ce.Code,
			"component", ce.Component)
	default:
		h.logger.Error(ctx, err, "Error occurred",
			"type", ce.Type,
			"code", ce.Code,
			"component", ce.Component)
	}
}
