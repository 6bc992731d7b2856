// Package logging wires the broker daemon's structured JSON logging. One
// setup call configures slog, the process-wide default logger, and the
// stdlib log bridge so every line carries the daemon identity.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

// Setup configures JSON logging for the daemon and returns the base logger.
// Every line carries the service name, the environment when provided, and any
// extra attributes (the daemon attaches its network name). The minimum level
// is read from PQL_LOG_LEVEL (debug, info, warn, error; default info).
func Setup(service, env string, extra ...slog.Attr) *slog.Logger {
	return setup(os.Stdout, levelFromEnv(), service, env, extra...)
}

func setup(w io.Writer, level slog.Level, service, env string, extra ...slog.Attr) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.TimeKey:
				return slog.Attr{Key: "timestamp", Value: attr.Value}
			case slog.LevelKey:
				return slog.String("severity", strings.ToUpper(attr.Value.String()))
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: attr.Value}
			}
			return attr
		},
	})

	attrs := []slog.Attr{slog.String("service", strings.TrimSpace(service))}
	if env = strings.TrimSpace(env); env != "" {
		attrs = append(attrs, slog.String("env", env))
	}
	attrs = append(attrs, extra...)

	withArgs := make([]any, 0, len(attrs))
	for _, attr := range attrs {
		withArgs = append(withArgs, attr)
	}

	base := slog.New(handler).With(withArgs...)
	slog.SetDefault(base)

	// Bridge the stdlib logger so dependencies logging through log.Printf
	// land in the same JSON stream.
	stdBridge := slog.NewLogLogger(handler.WithAttrs(attrs), slog.LevelInfo)
	stdBridge.SetFlags(0)
	log.SetOutput(stdBridge.Writer())
	log.SetFlags(0)
	log.SetPrefix("")

	return base
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("PQL_LOG_LEVEL"))) {
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
