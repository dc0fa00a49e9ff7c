package hostfuncs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestChain_FIFO(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
				order = append(order, name+":before")
				resp, err := next(ctx, args)
				order = append(order, name+":after")
				return resp, err
			}
		}
	}

	fn := Must(func() string {
		order = append(order, "call")
		return "ok"
	}).WithMiddleware(tag("outer"), tag("inner"))

	_, err := fn.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer:before", "inner:before", "call", "inner:after", "outer:after"}, order)
}

func TestWithMiddleware_LeavesOriginal(t *testing.T) {
	base := Must(func() int { return 1 })
	calls := 0
	counted := base.WithMiddleware(func(next Handler) Handler {
		return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
			calls++
			return next(ctx, args)
		}
	})

	_, err := base.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, calls)

	_, err = counted.Call(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	assert.Same(t, base, base.WithMiddleware())
	assert.Equal(t, base.Signature(), counted.Signature())
}

func TestMiddleware_ErrorNormalized(t *testing.T) {
	fn := Must(func() int { return 1 }).WithMiddleware(func(Handler) Handler {
		return func(context.Context, []json.RawMessage) (json.RawMessage, error) {
			return nil, errors.New("rejected by policy")
		}
	})

	_, err := fn.Call(context.Background(), nil)
	detail := requireDetail(t, err)
	assert.Equal(t, "rejected by policy", detail.Message)
}

func TestMiddleware_PanicRecovered(t *testing.T) {
	fn := Must(func() int { return 1 }).WithMiddleware(func(Handler) Handler {
		return func(context.Context, []json.RawMessage) (json.RawMessage, error) {
			panic(errors.New("middleware exploded"))
		}
	})

	_, err := fn.Call(context.Background(), nil)
	detail := requireDetail(t, err)
	assert.Equal(t, "middleware exploded", detail.Message)
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	ok := Must(func(n int) int { return n }).WithMiddleware(LoggingMiddleware(logger))
	_, err := ok.Call(WithCall(context.Background(), "calc", "ident"), rawArgs(t, 3))
	require.NoError(t, err)

	entries := logs.TakeAll()
	require.Len(t, entries, 2)
	assert.Equal(t, "invoking native function", entries[0].Message)
	assert.Equal(t, "native function completed", entries[1].Message)
	fields := entries[1].ContextMap()
	assert.Equal(t, "calc", fields["module"])
	assert.Equal(t, "ident", fields["function"])
	assert.EqualValues(t, 1, fields["args"])

	failing := Must(func() (int, error) { return 0, errors.New("nope") }).WithMiddleware(LoggingMiddleware(logger))
	_, err = failing.Call(context.Background(), nil)
	require.Error(t, err)

	warned := logs.FilterMessage("native function failed").All()
	require.Len(t, warned, 1)
	assert.Equal(t, zapcore.WarnLevel, warned[0].Level)
	assert.Equal(t, "native", warned[0].ContextMap()["error_type"])
}

func TestLoggingMiddleware_NativePanic(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	var after bool

	fn := Must(func() string { panic("kaboom") }).WithMiddleware(
		LoggingMiddleware(zap.New(core)),
		func(next Handler) Handler {
			return func(ctx context.Context, args []json.RawMessage) (json.RawMessage, error) {
				resp, err := next(ctx, args)
				after = true
				return resp, err
			}
		},
	)

	_, err := fn.Call(context.Background(), nil)
	detail := requireDetail(t, err)
	assert.Equal(t, "kaboom", detail.Message)
	assert.True(t, after, "middleware must see the recovered panic as an error")

	failed := logs.FilterMessage("native function failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "panic", failed[0].ContextMap()["error_type"])
}
