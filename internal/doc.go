// Package internal contains the implementation packages of ptpconsole.
//
// # Package Organization
//
// The internal packages are organized by functional domain:
//
//   - console: Command table, tokenizer, help layout and the input loop
//   - hostcmd: Commands every console carries (exit, hist, source, log level)
//   - replay: Script replay at startup and on change
//   - watcher: Debounced file system notifications
//   - remote: WebSocket server and client for the console
//   - config: Viper-backed settings with validation
//   - errors: Structured error type shared by all packages
//   - logging: slog-backed structured logger
//   - version: Build metadata
//
// # Concurrency
//
// The command table belongs to the goroutine running Console.Run. Every other
// source of lines (the remote server, the script watcher) hands them to
// Console.Submit, which executes them on that goroutine and returns their
// output. Console.Stop may be called from anywhere.
//
// # Testing
//
// Unit tests live next to each package. Property tests need the property
// build tag and the end-to-end test in integration_tests needs integration.
package internal
