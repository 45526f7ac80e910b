package tracing

import (
	"browser-pause-agent/pkg/logg"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newRecorder(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	return rec, tp
}

func TestSpanRecordsError(t *testing.T) {
	rec, tp := newRecorder(t)
	core, logs := observer.New(zapcore.DebugLevel)

	_, step := StartSpan(context.Background(), tp.Tracer("test"), zap.New(core), "Navigate",
		attribute.String("url", "https://example.com"))
	step.AddEvent("navigating")
	step.End(errors.New("net::ERR_NAME_NOT_RESOLVED"))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "Navigate", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("url", "https://example.com"))

	entries := logs.FilterMessage("Span finished with error").All()
	require.Len(t, entries, 1)
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), entries[0].ContextMap()[logg.TraceID])
}

func TestSpanOk(t *testing.T) {
	rec, tp := newRecorder(t)
	core, logs := observer.New(zapcore.DebugLevel)

	_, step := StartSpan(context.Background(), tp.Tracer("test"), zap.New(core), "Click")
	step.SetAttributes(attribute.Int("elements", 3))
	step.End(nil)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Zero(t, logs.Len())
}

func TestNoopTracerKeepsLogger(t *testing.T) {
	core, _ := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	_, step := StartSpan(context.Background(), noop.NewTracerProvider().Tracer("test"), logger, "Fill")

	assert.Same(t, logger, step.Logger())
	step.End(nil)
}
