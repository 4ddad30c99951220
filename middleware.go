package agentrun

import (
	"context"
	"log/slog"
	"time"
)

// Middleware wraps a Function with cross-cutting behavior (logging, timeout).
type Middleware func(Function) Function

// Chain wraps fn with middlewares in onion order: the first middleware is outermost.
func Chain(fn Function, middlewares ...Middleware) Function {
	for i := len(middlewares) - 1; i >= 0; i-- {
		fn = middlewares[i](fn)
	}
	return fn
}

// WithLogging returns a middleware that logs start, end, duration, and errors.
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Function) Function {
		return &loggingFunction{functionBase: functionBase{next: next}, logger: logger}
	}
}

// WithTimeout returns a middleware that bounds each Execute call to d.
// A non-positive d leaves the call unbounded.
func WithTimeout(d time.Duration) Middleware {
	return func(next Function) Function {
		return &timeoutFunction{functionBase: functionBase{next: next}, timeout: d}
	}
}

// functionBase delegates the descriptor methods to the wrapped Function.
type functionBase struct{ next Function }

func (b *functionBase) Name() string        { return b.next.Name() }
func (b *functionBase) Description() string { return b.next.Description() }
func (b *functionBase) Schema() Schema      { return b.next.Schema() }

func (b *functionBase) SchemaDir() string {
	if sl, ok := b.next.(SchemaLocator); ok {
		return sl.SchemaDir()
	}
	return ""
}

func (b *functionBase) LogEnabled() bool {
	if el, ok := b.next.(ExportLogger); ok {
		return el.LogEnabled()
	}
	return false
}

type loggingFunction struct {
	functionBase
	logger *slog.Logger
}

func (m *loggingFunction) Execute(ctx context.Context, args map[string]any) (any, error) {
	m.logger.InfoContext(ctx, "function start", "function", m.next.Name())
	start := time.Now()
	res, err := m.next.Execute(ctx, args)
	dur := time.Since(start)
	if err != nil {
		m.logger.ErrorContext(ctx, "function error", "function", m.next.Name(), "duration", dur, "error", err)
		return nil, err
	}
	m.logger.InfoContext(ctx, "function end", "function", m.next.Name(), "duration", dur)
	return res, nil
}

type timeoutFunction struct {
	functionBase
	timeout time.Duration
}

func (t *timeoutFunction) Execute(ctx context.Context, args map[string]any) (any, error) {
	if t.timeout <= 0 {
		return t.next.Execute(ctx, args)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Execute(ctx, args)
}

var (
	_ SchemaLocator = (*loggingFunction)(nil)
	_ SchemaLocator = (*timeoutFunction)(nil)
	_ ExportLogger  = (*loggingFunction)(nil)
	_ ExportLogger  = (*timeoutFunction)(nil)
)
