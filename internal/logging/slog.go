package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation  = "operation"
	KeyAccount    = "account"
	KeyMessageID  = "message_id"
	KeySenderHash = "sender_hash"
	KeyDuration   = "duration"
	KeyError      = "error"
)

// Setup installs a JSON slog handler writing to stderr as the default
// logger and returns it. level is one of "debug", "info", "warn", "error";
// anything else means info.
func Setup(level string) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithAccount returns a logger with the account attribute set.
func WithAccount(logger *slog.Logger, account string) *slog.Logger {
	return logger.With(slog.String(KeyAccount, account))
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from
// output. This allows safely passing Err(maybeNilErr) without adding empty
// attributes.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeSender returns a hashed representation of a sender address for
// logging purposes. This allows correlation of log entries without exposing
// PII.
func AnonymizeSender(sender string) string {
	if sender == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(sender))
	return "sender:" + hex.EncodeToString(hash[:8])
}

// SenderHash returns a slog attribute with the anonymized sender address.
func SenderHash(sender string) slog.Attr {
	return slog.String(KeySenderHash, AnonymizeSender(sender))
}
