// Package logging provides structured logging helpers built on log/slog.
//
// It defines canonical attribute keys used across the codebase, small
// helpers for attaching them, and sender anonymization so that email
// addresses never appear in plain text in process logs.
package logging
