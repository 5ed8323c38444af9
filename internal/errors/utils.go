package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Wrap wraps err in a ConsoleError, keeping the component and hints of an
// existing ConsoleError in the chain.
func Wrap(err error, errType ErrorType, code, message string) *ConsoleError {
	if err == nil {
		return nil
	}

	wrapped := &ConsoleError{
		Type:        errType,
		Code:        code,
		Message:     message,
		Cause:       err,
		Recoverable: errType == ErrorTypeValidation || errType == ErrorTypeDispatch,
	}

	var ce *ConsoleError
	if errors.As(err, &ce) {
		wrapped.Component = ce.Component
		wrapped.Hints = ce.Hints
	}

	return wrapped
}

// FormatError formats an error for user display.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	var ce *ConsoleError
	if errors.As(err, &ce) && ce.Type == ErrorTypeValidation {
		// One field per line reads better than the joined message.
		return strings.ReplaceAll(ce.Error(), "; ", "\n  ")
	}

	return err.Error()
}

// FormatErrorWithSuggestions formats an error followed by its hints, if any.
func FormatErrorWithSuggestions(err error) string {
	result := FormatError(err)

	var ce *ConsoleError
	if errors.As(err, &ce) && len(ce.Hints) > 0 {
		result += "\n\nSuggestions:"
		for _, hint := range ce.Hints {
			result += fmt.Sprintf("\n  • %s", hint)
		}
	}

	return result
}
