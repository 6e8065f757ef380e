package observe

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Operation describes one instrumented call.
type Operation struct {
	Service  string // Remote service name, e.g. "krampus" (optional)
	Name     string // Operation name, e.g. "authenticate" (required)
	Endpoint string // Target URL (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: <service>.<name> or <name>
func (o Operation) SpanName() string {
	if o.Service != "" {
		return o.Service + "." + o.Name
	}
	return o.Name
}

// Validate reports whether the operation can be instrumented.
func (o Operation) Validate() error {
	if o.Name == "" {
		return ErrMissingOperationName
	}
	return nil
}

func (o Operation) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("operation.name", o.Name),
	}
	if o.Service != "" {
		attrs = append(attrs, attribute.String("operation.service", o.Service))
	}
	return attrs
}

// kindedError is implemented by errors that carry a classification.
type kindedError interface {
	error
	ErrorKind() string
}

// ErrorKind returns the classification carried by err, "error" for an
// unclassified error, or "" for nil.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	var ke kindedError
	if errors.As(err, &ke) {
		return ke.ErrorKind()
	}
	return "error"
}

// Tracer wraps OpenTelemetry tracing with per-operation span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new client span for the operation.
	StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	attrs := op.attributes()
	if op.Endpoint != "" {
		attrs = append(attrs, attribute.String("url.full", op.Endpoint))
	}

	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.kind", ErrorKind(err)))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

// NewNoopTracer creates a Tracer that records nothing.
func NewNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	return t.noop.Start(ctx, op.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
