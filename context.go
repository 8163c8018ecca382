package resolva

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

var defaultLogger = slog.New(slog.DiscardHandler)

// ctxWithLogger attaches the session-scoped logger. The engine adds one
// per session so records emitted downstream carry the session ID and
// strategy name.
func ctxWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFromContext returns the logger attached to the session context.
// Tool backends and strategies can use it to log under the current
// session. Outside a session it returns a discard logger.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger, ok := ctx.Value(loggerKey{}).(*slog.Logger)
	if !ok {
		return defaultLogger
	}
	return logger
}
