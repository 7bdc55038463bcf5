// Package log holds the logging helpers shared by the provider and the
// lambda/CLI hosts. Loggers travel in the context via clog.
package log

import (
	"context"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/chainguard-dev/clog"
	slogmulti "github.com/samber/slog-multi"
)

// NewJSON returns a JSON logger, the format CloudWatch and most log
// collectors index.
func NewJSON(w io.Writer, level slog.Leveler) *clog.Logger {
	return clog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewTerraform returns a logger that routes through tflog.
func NewTerraform() *clog.Logger {
	return clog.New(slogmulti.Fanout(NewTFHandler()))
}

func Info(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelInfo, msg, args...)
}

func Debug(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelDebug, msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelWarn, msg, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	log(ctx, slog.LevelError, msg, args...)
}

// With returns a context whose logger carries args on every record.
func With(ctx context.Context, args ...any) context.Context {
	return clog.WithLogger(ctx, clog.FromContext(ctx).With(args...))
}

func log(ctx context.Context, level slog.Level, msg string, args ...any) {
	l := clog.FromContext(ctx)
	if !l.Enabled(ctx, level) {
		return
	}

	// skip [runtime.Callers, log, the exported helper]
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])

	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.Handler().Handle(ctx, r)
}
