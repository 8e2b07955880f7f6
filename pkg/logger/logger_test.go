package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appctx "cashdesk/internal/core/context"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{zap.New(core).Sugar()}, logs
}

func TestFromContext_StampsTraceAndUser(t *testing.T) {
	l, logs := observed()
	ctx := WithLogger(context.Background(), l)
	ctx = appctx.WithTrace(ctx, &appctx.TraceContext{TraceID: "t-1", RequestID: "r-1", SpanID: "s-1"})
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: "u-1"})

	Info(ctx, "allocated", "number", "CR-2024-000001")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "t-1", fields["trace_id"])
	assert.Equal(t, "r-1", fields["request_id"])
	assert.Equal(t, "s-1", fields["span_id"])
	assert.Equal(t, "u-1", fields["user_id"])
	assert.Equal(t, "CR-2024-000001", fields["number"])
}

func TestFromContext_BareContext(t *testing.T) {
	l, logs := observed()
	ctx := WithLogger(context.Background(), l)

	Warn(ctx, "plain")

	require.Equal(t, 1, logs.Len())
	assert.Empty(t, logs.All()[0].ContextMap())
}

func TestSetDefault(t *testing.T) {
	l, logs := observed()
	prev := fallback.Load()
	SetDefault(l)
	t.Cleanup(func() { fallback.Store(prev) })

	Error(context.Background(), "no logger in ctx")
	assert.Equal(t, 1, logs.FilterMessage("no logger in ctx").Len())
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	l, err := New(Config{Level: "loud", Format: "json", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.False(t, l.Desugar().Core().Enabled(zapcore.DebugLevel))
	assert.True(t, l.Desugar().Core().Enabled(zapcore.InfoLevel))
}
