package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup("goaccount", "1.2.3", Options{Writer: &buf})
	require.NoError(t, err)

	logger.Info("login ok", "user_id", "u1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "output: %s", buf.String())
	assert.Equal(t, "login ok", entry["msg"])
	assert.Equal(t, "goaccount", entry["service"])
	assert.Equal(t, "1.2.3", entry["version"])
	assert.Equal(t, "u1", entry["user_id"])
	assert.NotContains(t, entry, "trace_id")
}

func TestSetupText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup("goaccount", "dev", Options{Format: "text", Writer: &buf})
	require.NoError(t, err)

	logger.Warn("mail not queued")
	assert.Contains(t, buf.String(), "mail not queued")
	assert.Contains(t, buf.String(), "service=goaccount")
}

func TestSetupRejectsUnknownFormatAndLevel(t *testing.T) {
	_, err := Setup("goaccount", "dev", Options{Format: "xml"})
	require.Error(t, err)

	_, err = Setup("goaccount", "dev", Options{Level: "loud"})
	require.Error(t, err)
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup("goaccount", "dev", Options{Level: "warn", Writer: &buf})
	require.NoError(t, err)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Error("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestTraceCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup("goaccount", "dev", Options{Writer: &buf})
	require.NoError(t, err)

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID,
		SpanID:  spanID,
	}))

	logger.With("op", "login").InfoContext(ctx, "traced", slog.String("path", "/login"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", entry["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", entry["span_id"])
	assert.Equal(t, "login", entry["op"])
}
