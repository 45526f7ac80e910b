// Package tracing ties otel spans to the zap logger of the operation that
// opened them.
package tracing

import (
	"browser-pause-agent/pkg/logg"
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Span struct {
	span    trace.Span
	logger  *zap.Logger
	started time.Time
}

// StartSpan opens a child span of ctx. When the span is sampled its trace id
// is added to the logger so log lines can be matched to exported spans.
func StartSpan(ctx context.Context, tracer trace.Tracer, logger *zap.Logger, name string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))

	if sc := span.SpanContext(); sc.IsValid() {
		logger = logger.With(zap.String(logg.TraceID, sc.TraceID().String()))
	}

	return ctx, &Span{
		span:    span,
		logger:  logger,
		started: time.Now(),
	}
}

// Logger returns the operation logger carrying the trace id.
func (s *Span) Logger() *zap.Logger {
	return s.logger
}

func (s *Span) End(err error) {
	took := zap.Duration(logg.Took, time.Since(s.started))

	if err != nil {
		s.span.SetStatus(codes.Error, err.Error())
		s.span.RecordError(err)
		s.logger.Debug("Span finished with error", took, zap.Error(err))
	} else {
		s.span.SetStatus(codes.Ok, "")
	}

	s.span.End()
}

func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}
