package console

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// ParamValue scans args for the first token starting with key and returns the
// rest of that token. With key "echo=" the argument "echo=off" yields "off".
func ParamValue(args []string, key string) (string, bool) {
	for _, arg := range args {
		if strings.HasPrefix(arg, key) {
			return arg[len(key):], true
		}
	}
	return "", false
}

// ParseOnOff accepts exactly "on" or "off".
func ParseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", s)
	}
}

// StatusFunc adapts a callback reporting a signed status, where a negative
// value means failure, to a Handler.
func StatusFunc(fn func(args []string) int) Handler {
	return func(_ context.Context, _ io.Writer, args []string) error {
		if status := fn(args); status < 0 {
			return fmt.Errorf("status %d", status)
		}
		return nil
	}
}
