package log

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hashicorp/terraform-plugin-log/tflog"
)

const subsystem = "imagecheck"

// TFHandler forwards slog records to the terraform-plugin-log subsystem so
// they appear in TF_LOG output.
type TFHandler struct {
	attrs  []slog.Attr
	groups []string
}

func NewTFHandler() slog.Handler {
	return &TFHandler{}
}

// Enabled implements slog.Handler. tflog has no public API for the
// configured level, so filtering is left to terraform.
func (h *TFHandler) Enabled(_ context.Context, _ slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
func (h *TFHandler) Handle(ctx context.Context, record slog.Record) error {
	ctx = tflog.NewSubsystem(ctx, subsystem, tflog.WithAdditionalLocationOffset(3))

	fields := make(map[string]any, len(h.attrs)+record.NumAttrs())
	for _, a := range h.attrs {
		fields[a.Key] = a.Value.Any()
	}
	// Record attrs win over handler attrs.
	record.Attrs(func(a slog.Attr) bool {
		fields[h.key(a.Key)] = a.Value.Any()
		return true
	})

	switch {
	case record.Level < slog.LevelDebug:
		tflog.SubsystemTrace(ctx, subsystem, record.Message, fields)
	case record.Level < slog.LevelInfo:
		tflog.SubsystemDebug(ctx, subsystem, record.Message, fields)
	case record.Level < slog.LevelWarn:
		tflog.SubsystemInfo(ctx, subsystem, record.Message, fields)
	case record.Level < slog.LevelError:
		tflog.SubsystemWarn(ctx, subsystem, record.Message, fields)
	default:
		tflog.SubsystemError(ctx, subsystem, record.Message, fields)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *TFHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &TFHandler{
		attrs:  make([]slog.Attr, 0, len(h.attrs)+len(attrs)),
		groups: h.groups,
	}
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: h.key(a.Key), Value: a.Value})
	}
	return next
}

// WithGroup implements slog.Handler.
func (h *TFHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &TFHandler{
		attrs:  h.attrs,
		groups: append(append([]string{}, h.groups...), name),
	}
}

func (h *TFHandler) key(k string) string {
	if len(h.groups) == 0 {
		return k
	}
	return strings.Join(h.groups, ".") + "." + k
}
