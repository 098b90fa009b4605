package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	appctx "inspectview/internal/core/context"
)

func TestFromContext_AddsTraceAndSubject(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	base := &Logger{zap.New(core).Sugar()}

	ctx := appctx.WithTrace(context.Background(), &appctx.TraceContext{TraceID: "t1", RequestID: "r1"})
	ctx = appctx.WithCaller(ctx, &appctx.Caller{Subject: "grid"})
	ctx = WithLogger(ctx, base)

	Info(ctx, "committed", "column", "score")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "t1", fields["trace_id"])
	assert.Equal(t, "r1", fields["request_id"])
	assert.Equal(t, "grid", fields["subject"])
	assert.Equal(t, "score", fields["column"])
}

func TestNew_FallsBackToInfo(t *testing.T) {
	l, err := New(Config{Level: "nonsense", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.False(t, l.Desugar().Core().Enabled(zap.DebugLevel))
	assert.True(t, l.Desugar().Core().Enabled(zap.InfoLevel))
}

func TestWithComponent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := (&Logger{zap.New(core).Sugar()}).WithComponent("queryclient")
	l.Infow("hit")
	assert.Equal(t, "queryclient", logs.All()[0].ContextMap()["component"])
	Nop().Infow("discarded")
}
