package context

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// TraceContext correlates one request across logs, spans and the error body.
type TraceContext struct {
	TraceID   string
	SpanID    string
	RequestID string
}

type traceContextKey struct{}

// WithTrace adds TraceContext to context.
func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

// GetTrace returns TraceContext from context.
func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// GetRequestID returns request ID from context or empty string.
func GetRequestID(ctx context.Context) string {
	if t := GetTrace(ctx); t != nil {
		return t.RequestID
	}
	return ""
}

// TraceFromSpan builds a TraceContext for the span active in ctx.
// When no recording tracer is installed the span carries no IDs; the trace
// ID then falls back to fallbackTraceID, or a generated one when that is empty.
func TraceFromSpan(ctx context.Context, requestID, fallbackTraceID string) *TraceContext {
	sc := trace.SpanContextFromContext(ctx)
	tc := &TraceContext{RequestID: requestID}

	switch {
	case sc.HasTraceID():
		tc.TraceID = sc.TraceID().String()
	case fallbackTraceID != "":
		tc.TraceID = fallbackTraceID
	default:
		tc.TraceID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if sc.HasSpanID() {
		tc.SpanID = sc.SpanID().String()
	}
	return tc
}
