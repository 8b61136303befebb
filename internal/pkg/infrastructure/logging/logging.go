package logging

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type loggerContextKey struct {
	name string
}

var loggerCtxKey = &loggerContextKey{"logger"}

func NewLogger(ctx context.Context, serviceName, serviceVersion, format string) (context.Context, zerolog.Logger) {
	var w io.Writer = os.Stdout
	if format == "text" {
		w = zerolog.ConsoleWriter{Out: os.Stdout}
	}

	logger := zerolog.New(w).With().Timestamp().
		Str("service", strings.ToLower(serviceName)).
		Str("version", serviceVersion).
		Logger()

	ctx = NewContextWithLogger(ctx, logger)
	return ctx, logger
}

func NewContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, logger)
}

// GetFromContext returns the logger stored in ctx, or the global logger.
func GetFromContext(ctx context.Context) zerolog.Logger {
	logger, ok := ctx.Value(loggerCtxKey).(zerolog.Logger)
	if !ok {
		return log.Logger
	}

	return logger
}

// WithFields returns a context whose logger carries the given string fields.
func WithFields(ctx context.Context, keyvals ...string) (context.Context, zerolog.Logger) {
	lc := GetFromContext(ctx).With()
	for i := 0; i+1 < len(keyvals); i += 2 {
		lc = lc.Str(keyvals[i], keyvals[i+1])
	}
	logger := lc.Logger()
	return NewContextWithLogger(ctx, logger), logger
}
