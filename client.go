package agentrun

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// AssistantClient captures the subset of the go-openai client used by the
// Controller. *openai.Client satisfies it; tests use testutil.FakeAssistant.
type AssistantClient interface {
	CreateThreadAndRun(ctx context.Context, request openai.CreateThreadAndRunRequest) (openai.Run, error)
	CreateMessage(ctx context.Context, threadID string, request openai.MessageRequest) (openai.Message, error)
	CreateRun(ctx context.Context, threadID string, request openai.RunRequest) (openai.Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (openai.Run, error)
	SubmitToolOutputs(
		ctx context.Context, threadID, runID string, request openai.SubmitToolOutputsRequest,
	) (openai.Run, error)
	ListMessage(
		ctx context.Context, threadID string,
		limit *int, order *string, after *string, before *string, runID *string,
	) (openai.MessagesList, error)
}

var _ AssistantClient = (*openai.Client)(nil)
