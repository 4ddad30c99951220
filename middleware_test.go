package agentrun

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	inner, err := NewFunction("log_me", "desc", nil, func(context.Context, map[string]any) (any, error) {
		return true, nil
	})
	require.NoError(t, err)

	wrapped := WithLogging(logger)(inner)
	out, err := wrapped.Execute(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, true, out)
	logStr := buf.String()
	assert.Contains(t, logStr, "function start")
	assert.Contains(t, logStr, "function end")
	assert.Contains(t, logStr, "log_me")
}

func TestWithLogging_Error(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	boom := errors.New("boom")
	inner, err := NewFunction("fail_me", "", nil, func(context.Context, map[string]any) (any, error) {
		return nil, boom
	})
	require.NoError(t, err)

	_, err = WithLogging(logger)(inner).Execute(context.Background(), nil)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, buf.String(), "function error")
}

func TestWithTimeout(t *testing.T) {
	slow, err := NewFunction("slow", "", nil, func(ctx context.Context, _ map[string]any) (any, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
			return "late", nil
		}
	})
	require.NoError(t, err)

	_, err = WithTimeout(10*time.Millisecond)(slow).Execute(context.Background(), nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWithTimeout_NonPositive(t *testing.T) {
	fn, err := NewFunction("quick", "", nil, func(ctx context.Context, _ map[string]any) (any, error) {
		_, has := ctx.Deadline()
		return has, nil
	})
	require.NoError(t, err)
	out, err := WithTimeout(0)(fn).Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, false, out)
}

func TestChain_OnionOrder(t *testing.T) {
	var order []string
	mark := func(label string) Middleware {
		return func(next Function) Function {
			return &markFunction{functionBase: functionBase{next: next}, run: func() { order = append(order, label) }}
		}
	}
	inner, err := NewFunction("inner", "", nil, func(context.Context, map[string]any) (any, error) {
		order = append(order, "inner")
		return nil, nil
	})
	require.NoError(t, err)

	_, err = Chain(inner, mark("outer"), mark("middle")).Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "middle", "inner"}, order)
}

func TestMiddleware_PreservesDescriptor(t *testing.T) {
	inner, err := NewFunction("get_weather", "Current weather", weatherParams, nopHandler, WithSchemaDir("out"))
	require.NoError(t, err)
	wrapped := Chain(inner, WithLogging(slog.New(slog.DiscardHandler)), WithTimeout(time.Second))
	assert.Equal(t, "get_weather", wrapped.Name())
	assert.Equal(t, "Current weather", wrapped.Description())
	assert.Equal(t, inner.Schema(), wrapped.Schema())
	assert.Equal(t, "out", wrapped.(SchemaLocator).SchemaDir())
	assert.False(t, wrapped.(ExportLogger).LogEnabled())
}

func markMiddleware(order *[]string, label string) Middleware {
	return func(next Function) Function {
		return &markFunction{functionBase: functionBase{next: next}, run: func() { *order = append(*order, label) }}
	}
}

type markFunction struct {
	functionBase
	run func()
}

func (m *markFunction) Execute(ctx context.Context, args map[string]any) (any, error) {
	m.run()
	return m.next.Execute(ctx, args)
}
