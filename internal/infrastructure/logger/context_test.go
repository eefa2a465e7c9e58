package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext(t *testing.T) {
	base := zap.NewExample()
	ctx := WithContext(context.Background(), base)
	assert.Same(t, base, FromContext(ctx))

	assert.NotNil(t, FromContext(context.Background()))

	wrongType := context.WithValue(context.Background(), LoggerKey, "not a logger")
	assert.NotNil(t, FromContext(wrongType))
}

func TestContextIDs(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	base := zap.New(core)
	ctx := context.Background()

	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetUserID(ctx))
	assert.Empty(t, GetOrderID(ctx))

	ctx, l := WithRequestID(ctx, base, "req-1")
	ctx, l = WithUserID(ctx, l, "user-1")
	ctx, l = WithOrderID(ctx, l, "order-1")

	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Equal(t, "user-1", GetUserID(ctx))
	assert.Equal(t, "order-1", GetOrderID(ctx))
	assert.Same(t, l, FromContext(ctx))

	l.Info("paid")
	require.Len(t, recorded.All(), 1)
	assert.Equal(t, map[string]any{
		"request_id": "req-1",
		"user_id":    "user-1",
		"order_id":   "order-1",
	}, recorded.All()[0].ContextMap())
}

func TestContextLogger(t *testing.T) {
	t.Run("logger from context is not enriched twice", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		ctx, _ := WithUserID(context.Background(), zap.New(core), "user-1")

		L(ctx).Info("quoted")

		require.Len(t, recorded.All(), 1)
		assert.Len(t, recorded.All()[0].Context, 1)
	})

	t.Run("explicit logger picks up context ids", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		ctx := context.WithValue(context.Background(), RequestIDKey, "req-9")
		ctx = context.WithValue(ctx, OrderIDKey, "order-9")

		WithLogger(ctx, zap.New(core)).Warn("no rates")

		require.Len(t, recorded.All(), 1)
		entry := recorded.All()[0]
		assert.Equal(t, zapcore.WarnLevel, entry.Level)
		assert.Equal(t, map[string]any{"request_id": "req-9", "order_id": "order-9"}, entry.ContextMap())
	})

	t.Run("empty ids are omitted", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		ctx := context.WithValue(context.Background(), UserIDKey, "")

		WithLogger(ctx, zap.New(core)).Debug("tick")

		require.Len(t, recorded.All(), 1)
		assert.Empty(t, recorded.All()[0].Context)
	})

	t.Run("with adds fields once", func(t *testing.T) {
		core, recorded := observer.New(zapcore.DebugLevel)
		ctx := context.WithValue(context.Background(), UserIDKey, "user-2")

		cl := WithLogger(ctx, zap.New(core)).With(zap.String("rate_id", "rate_1"))
		cl.Error("label failed")
		cl.Zap().Info("again")

		logs := recorded.All()
		require.Len(t, logs, 2)
		for _, entry := range logs {
			assert.Equal(t, map[string]any{"user_id": "user-2", "rate_id": "rate_1"}, entry.ContextMap())
		}
	})

	t.Run("nil logger does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			WithLogger(context.Background(), nil).Info("nothing")
		})
	})
}
