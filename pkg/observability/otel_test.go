package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracing_Disabled(t *testing.T) {
	logger := NewLogger(InfoLevel, &bytes.Buffer{})

	tp, err := InitTracing(context.Background(), TracingConfig{Enabled: false, Endpoint: "localhost:4317"}, logger)
	require.NoError(t, err)
	assert.Nil(t, tp)

	tp, err = InitTracing(context.Background(), TracingConfig{Enabled: true}, logger)
	require.NoError(t, err)
	assert.Nil(t, tp)

	assert.NoError(t, ShutdownTracing(context.Background(), nil, logger))
}

func TestInitTracing_InstallsGlobalProvider(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	logger := NewLogger(InfoLevel, &bytes.Buffer{})
	// The exporter connects lazily, so no collector is needed
	tp, err := InitTracing(context.Background(), TracingConfig{
		Enabled:        true,
		Endpoint:       "127.0.0.1:4317",
		ServiceName:    "nxadmin-test",
		ServiceVersion: "test",
		Insecure:       true,
	}, logger)
	require.NoError(t, err)
	require.NotNil(t, tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	assert.Same(t, tp, otel.GetTracerProvider())
}

func TestWithTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	WithTraceContext(context.Background(), logger).Info("no span")
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.NotContains(t, entry, "trace_id")

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	buf.Reset()
	WithTraceContext(ctx, logger).Info("in span")
	entry = nil
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, span.SpanContext().TraceID().String(), entry["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), entry["span_id"])
}
