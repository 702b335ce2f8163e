// Package acplog centralizes the server's logging setup on
// goa.design/clue/log, the way example/cmd/assistant/main.go configures
// it: a context-scoped logger with JSON or terminal formatting and an
// opt-in debug level, plus an HTTP middleware that logs each request.
package acplog

import (
	"context"
	"net/http"

	"goa.design/clue/log"
)

// Config selects the logger's output format and verbosity.
type Config struct {
	// Debug enables debug-level logging.
	Debug bool
	// ForceJSON always uses JSON output, even on an interactive terminal.
	ForceJSON bool
}

// NewContext returns ctx augmented with a configured clue logger, mirroring
// cmd/assistant/main.go's format-detection and debug-opt-in logic.
func NewContext(ctx context.Context, cfg Config) context.Context {
	format := log.FormatJSON
	if !cfg.ForceJSON && log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx = log.Context(ctx, log.WithFormat(format))
	if cfg.Debug {
		ctx = log.Context(ctx, log.WithDebug())
	}
	return ctx
}

// Middleware logs every HTTP request using the logger already attached to
// the server's base context.
func Middleware(ctx context.Context) func(http.Handler) http.Handler {
	return log.HTTP(ctx)
}

// Info logs msg at info level with structured key-values.
func Info(ctx context.Context, msg string, kvs ...log.Fielder) {
	log.Info(ctx, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvs...)...)
}

// Error logs err at error level with an associated message and structured
// key-values.
func Error(ctx context.Context, err error, msg string, kvs ...log.Fielder) {
	log.Error(ctx, err, append([]log.Fielder{log.KV{K: "msg", V: msg}}, kvs...)...)
}

// KV is re-exported so callers need not import goa.design/clue/log directly
// for the common case of attaching a single field.
type KV = log.KV
