// Package logging builds the slog logger the goaccount binary runs with.
// Records carry the service name, the build version, and the trace and span
// ids of the active OpenTelemetry span.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// Options select the handler. Format is "json" (default) or "text".
type Options struct {
	Format string
	Level  string
	Writer io.Writer
}

type correlatingHandler struct {
	next    slog.Handler
	service string
	version string
}

func (h *correlatingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *correlatingHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(
		slog.String("service", h.service),
		slog.String("version", h.version),
	)

	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", sc.TraceID().String()))
	}
	if sc.HasSpanID() {
		r.AddAttrs(slog.String("span_id", sc.SpanID().String()))
	}

	//nolint:wrapcheck // slog.Handler contract
	return h.next.Handle(ctx, r)
}

func (h *correlatingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &correlatingHandler{next: h.next.WithAttrs(attrs), service: h.service, version: h.version}
}

func (h *correlatingHandler) WithGroup(name string) slog.Handler {
	return &correlatingHandler{next: h.next.WithGroup(name), service: h.service, version: h.version}
}

// Setup returns a logger for service at version.
func Setup(service, version string, opts Options) (*slog.Logger, error) {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	hopts := &slog.HandlerOptions{Level: level}

	var base slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "json":
		base = slog.NewJSONHandler(w, hopts)
	case "text":
		base = slog.NewTextHandler(w, hopts)
	default:
		return nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	return slog.New(&correlatingHandler{next: base, service: service, version: version}), nil
}

// ParseLevel accepts debug, info, warn and error. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return level, nil
}
