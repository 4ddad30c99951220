package testutil

import (
	"testing"

	"github.com/skosovsky/agentrun"
)

// NewTestRegistry returns a Registry holding fns that is reset when the test
// ends, so registrations never leak between tests.
func NewTestRegistry(t testing.TB, fns ...agentrun.Function) *agentrun.Registry {
	t.Helper()
	reg := agentrun.NewRegistry()
	reg.Register(fns...)
	t.Cleanup(reg.Reset)
	return reg
}
