// Package pkg provides shared utilities for the usbaudio device stack.
//
// This package contains common functionality used across the device stack
// and the audio class driver, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error types for USB protocol and audio class errors
//   - Component identifiers for log filtering
//
// The package is designed to have zero external dependencies, relying
// only on the Go standard library.
//
// # Logging
//
// The logging subsystem wraps [log/slog] with USB-specific context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentAudio, "streaming activated", "alt", 1)
//
// # Errors
//
// Common errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrValueOutOfRange) {
//	    // SET_CUR rejected, control state unchanged
//	}
package pkg
