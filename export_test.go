package agentrun

import (
	"context"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Hooks exposing Controller internals to the agentrun_test package.

func (c *Controller) SetWait(fn func(ctx context.Context, d time.Duration) error) { c.wait = fn }

func (c *Controller) CreateOrContinueThread(ctx context.Context, text string) (string, string, error) {
	return c.createOrContinueThread(ctx, text)
}

func (c *Controller) PollRun(ctx context.Context, threadID, runID string) (openai.Run, error) {
	return c.pollRun(ctx, threadID, runID)
}

func (c *Controller) DispatchToolCalls(ctx context.Context, run openai.Run) ([]openai.ToolOutput, error) {
	return c.dispatchToolCalls(ctx, run)
}

func (c *Controller) ExecuteFunction(ctx context.Context, name string, args map[string]any) (any, error) {
	return c.executeFunction(ctx, name, args)
}

func (c *Controller) RecoverAnswer(ctx context.Context, threadID string) (string, error) {
	return c.recoverAnswer(ctx, threadID)
}
