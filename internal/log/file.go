package log

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"
	slogmulti "github.com/samber/slog-multi"
)

// TeeToFile returns a context whose logger additionally writes JSON records
// to path. The returned func closes the file. An empty path, or a file that
// cannot be created, leaves the context unchanged.
func TeeToFile(ctx context.Context, path string, level slog.Leveler) (context.Context, func()) {
	if path == "" {
		return ctx, func() {}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		clog.WarnContext(ctx, "failed to create log directory", "path", path, "error", err.Error())
		return ctx, func() {}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		clog.WarnContext(ctx, "failed to open log file", "path", path, "error", err.Error())
		return ctx, func() {}
	}

	handler := slogmulti.Fanout(
		clog.FromContext(ctx).Handler(),
		slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}),
	)
	ctx = clog.WithLogger(ctx, clog.New(handler))

	return ctx, func() {
		if err := f.Close(); err != nil {
			clog.WarnContext(ctx, "failed to close log file", "path", path, "error", err.Error())
		}
	}
}
