package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/agentrun"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMockFunction(t *testing.T) {
	m := &MockFunction{
		NameVal:   "lookup",
		DescVal:   "For tests",
		ParamsVal: []agentrun.Parameter{{Name: "q", Type: "string", Required: true}},
		ExecuteFn: func(_ context.Context, args map[string]any) (any, error) {
			return map[string]any{"done": args["q"]}, nil
		},
	}
	assert.Equal(t, "lookup", m.Name())
	assert.Equal(t, "For tests", m.Description())
	assert.Equal(t, []string{"q"}, m.Schema().Required)
	out, err := m.Execute(context.Background(), map[string]any{"q": "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"done": "x"}, out)
	assert.Equal(t, []map[string]any{{"q": "x"}}, m.Calls())
}

func TestMockFunction_Defaults(t *testing.T) {
	m := &MockFunction{}
	assert.Equal(t, "mock", m.Name())
	out, err := m.Execute(context.Background(), map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1}, out)
}

func TestNewTestRegistry(t *testing.T) {
	var reg *agentrun.Registry
	t.Run("inner", func(t *testing.T) {
		reg = NewTestRegistry(t, &MockFunction{NameVal: "a"}, &MockFunction{NameVal: "b"})
		require.Equal(t, 2, reg.Len())
		assert.Equal(t, "a", reg.GetAll()[0].Name())
	})
	assert.Equal(t, 0, reg.Len(), "registry is reset when the test ends")
}

func TestFakeAssistant_Conversation(t *testing.T) {
	ctx := context.Background()
	fake := NewFakeAssistant("hello",
		RequiresAction(ToolCall("call_1", "echo", `{"a":1}`)),
		Status(openai.RunStatusInProgress),
		Status(openai.RunStatusCompleted),
	)

	run, err := fake.CreateThreadAndRun(ctx, openai.CreateThreadAndRunRequest{
		RunRequest: openai.RunRequest{AssistantID: "asst_1"},
		Thread: openai.ThreadRequest{Messages: []openai.ThreadMessage{
			{Role: openai.ThreadMessageRoleUser, Content: "hi"},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, openai.RunStatusQueued, run.Status)
	require.Len(t, fake.Threads(), 1)

	run, err = fake.RetrieveRun(ctx, run.ThreadID, run.ID)
	require.NoError(t, err)
	require.Equal(t, openai.RunStatusRequiresAction, run.Status)
	require.NotNil(t, run.RequiredAction)
	require.Len(t, run.RequiredAction.SubmitToolOutputs.ToolCalls, 1)

	_, err = fake.SubmitToolOutputs(ctx, run.ThreadID, run.ID, openai.SubmitToolOutputsRequest{
		ToolOutputs: []openai.ToolOutput{{ToolCallID: "call_1", Output: "ok"}},
	})
	require.NoError(t, err)
	_, err = fake.SubmitToolOutputs(ctx, run.ThreadID, run.ID, openai.SubmitToolOutputsRequest{})
	require.Error(t, err, "a second submission in the same cycle is rejected")

	run, err = fake.RetrieveRun(ctx, run.ThreadID, run.ID)
	require.NoError(t, err)
	assert.Equal(t, openai.RunStatusInProgress, run.Status)
	run, err = fake.RetrieveRun(ctx, run.ThreadID, run.ID)
	require.NoError(t, err)
	assert.Equal(t, openai.RunStatusCompleted, run.Status)

	order := "desc"
	list, err := fake.ListMessage(ctx, run.ThreadID, nil, &order, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, list.Messages, 2)
	assert.Equal(t, "hello", list.Messages[0].Content[0].Text.Value)
	assert.Equal(t, "hi", list.Messages[1].Content[0].Text.Value)

	assert.Equal(t, 3, fake.Calls(MethodRetrieveRun))
	assert.Equal(t, []string{"asst_1"}, fake.AssistantIDs())
	require.Len(t, fake.Submissions(), 1)
}

func TestFakeAssistant_InjectedError(t *testing.T) {
	boom := errors.New("boom")
	fake := &FakeAssistant{Errors: map[string]error{MethodCreateThreadAndRun: boom}}
	_, err := fake.CreateThreadAndRun(context.Background(), openai.CreateThreadAndRunRequest{})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, fake.Calls(MethodCreateThreadAndRun))
	assert.Empty(t, fake.Threads())
}

func TestFakeAssistant_UnknownThread(t *testing.T) {
	fake := &FakeAssistant{}
	_, err := fake.CreateRun(context.Background(), "thread_missing", openai.RunRequest{})
	require.Error(t, err)
	_, err = fake.RetrieveRun(context.Background(), "thread_missing", "run_missing")
	require.Error(t, err)
}
