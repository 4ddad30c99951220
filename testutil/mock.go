// Package testutil provides test helpers for agentrun: a configurable
// MockFunction and FakeAssistant, an in-memory Assistants API.
package testutil

import (
	"context"
	"sync"

	"github.com/skosovsky/agentrun"
)

// MockFunction is a configurable Function implementation for tests. It records
// the arguments of every Execute call.
type MockFunction struct {
	NameVal   string
	DescVal   string
	ParamsVal []agentrun.Parameter
	ExecuteFn func(ctx context.Context, args map[string]any) (any, error)

	mu    sync.Mutex
	calls []map[string]any
}

// Name returns the function name.
func (m *MockFunction) Name() string {
	if m.NameVal != "" {
		return m.NameVal
	}
	return "mock"
}

// Description returns the function description.
func (m *MockFunction) Description() string {
	return m.DescVal
}

// Schema projects ParamsVal.
func (m *MockFunction) Schema() agentrun.Schema {
	return agentrun.NewSchema(m.Name(), m.DescVal, m.ParamsVal)
}

// Execute records args and runs ExecuteFn if set, otherwise returns args.
func (m *MockFunction) Execute(ctx context.Context, args map[string]any) (any, error) {
	m.mu.Lock()
	m.calls = append(m.calls, args)
	m.mu.Unlock()
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, args)
	}
	return args, nil
}

// Calls returns the arguments of every Execute call so far.
func (m *MockFunction) Calls() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]map[string]any(nil), m.calls...)
}

// Ensure MockFunction implements Function.
var _ agentrun.Function = (*MockFunction)(nil)
