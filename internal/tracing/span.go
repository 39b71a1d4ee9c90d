package tracing

import (
	"context"
	"net/http"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/tickmeter/internal/record"
)

// AttributePrefix namespaces record fields copied onto run spans.
const AttributePrefix = "tickmeter."

// StartRunSpan starts the span covering one instrumented run.
func StartRunSpan(ctx context.Context, tracer trace.Tracer, workload string, index int64) (context.Context, trace.Span) {
	spanName := "run"
	if workload != "" {
		spanName = "run " + workload
	}
	ctx, span := tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(attribute.Int64(AttributePrefix+"run.index", index))
	if workload != "" {
		span.SetAttributes(attribute.String(AttributePrefix+"workload", workload))
	}
	return ctx, span
}

// RecordAttributes converts the numeric fields of a run record into span
// attributes, keyed by their flattened names.
func RecordAttributes(rec map[string]any) []attribute.KeyValue {
	flat := record.Flatten(rec)
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]attribute.KeyValue, 0, len(keys))
	for _, k := range keys {
		switch v := flat[k].(type) {
		case string:
			attrs = append(attrs, attribute.String(AttributePrefix+k, v))
		case bool:
			attrs = append(attrs, attribute.Bool(AttributePrefix+k, v))
		default:
			if f, ok := record.ToFloat(v); ok {
				attrs = append(attrs, attribute.Float64(AttributePrefix+k, f))
			}
		}
	}
	return attrs
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
