// Package logging provides logging utilities for netblocker.
//
// This package provides two categories of output:
//   - Structured logging: rule loads, reloads and gate decisions (via slog)
//   - User output: Formatted messages for end users
//
// # Structured Logging
//
//	logging.Debug("connection allowed", "addr", ip, "port", port)
//	logging.Warn("skipping rule line", "path", path, "error", err)
//
// Setup installs the configured logger as the slog default, so packages
// that accept an optional *slog.Logger inherit the CLI's verbosity and
// format when none is injected.
//
// # User Output
//
//	logging.UserInfo("Loaded %d rules from %s", n, path)
//	logging.UserSuccess("%s allowed", host)
//	logging.UserWarning("line %d skipped", line)
//	logging.UserError("%s blocked", host)
//
// Output destinations default to stdout (info, success) and stderr
// (warning, error); SetUserOutput redirects them.
//
// # Status Indicators
//   - ℹ (info)
//   - ✓ (success)
//   - ⚠ (warning)
//   - ✗ (error)
package logging
