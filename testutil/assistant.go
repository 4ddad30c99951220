package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/skosovsky/agentrun"
)

// Method names accepted as keys of FakeAssistant.Errors and by Calls.
const (
	MethodCreateThreadAndRun = "CreateThreadAndRun"
	MethodCreateMessage      = "CreateMessage"
	MethodCreateRun          = "CreateRun"
	MethodRetrieveRun        = "RetrieveRun"
	MethodSubmitToolOutputs  = "SubmitToolOutputs"
	MethodListMessage        = "ListMessage"
)

// RunStep is one state a fake run reports from RetrieveRun.
type RunStep struct {
	Status    openai.RunStatus
	ToolCalls []openai.ToolCall
	LastError *openai.RunLastError
}

// Submission records one SubmitToolOutputs call.
type Submission struct {
	ThreadID string
	RunID    string
	Outputs  []openai.ToolOutput
}

// FakeAssistant is an in-memory Assistants API. Every run it creates follows
// Steps: each RetrieveRun returns the next step and the last one repeats
// (no steps means the run is completed at once). When a run is first reported
// completed, Answer (or AnswerContent) is appended to its thread as the
// assistant's message.
type FakeAssistant struct {
	Steps         []RunStep
	Answer        string
	AnswerContent []openai.MessageContent
	// Errors makes the named method fail with the given error.
	Errors map[string]error
	// HideMessages makes ListMessage succeed with an empty list.
	HideMessages bool

	mu          sync.Mutex
	threads     map[string][]openai.Message
	threadOrder []string
	runs        map[string]*fakeRun
	calls       map[string]int
	submissions []Submission
	assistants  []string
}

type fakeRun struct {
	threadID    string
	assistantID string
	steps       []RunStep
	current     RunStep
	answered    bool
}

// NewFakeAssistant returns a FakeAssistant whose runs follow steps.
func NewFakeAssistant(answer string, steps ...RunStep) *FakeAssistant {
	return &FakeAssistant{Answer: answer, Steps: steps}
}

// ToolCall builds a function tool call with JSON-encoded arguments.
func ToolCall(id, name, arguments string) openai.ToolCall {
	return openai.ToolCall{
		ID:       id,
		Type:     openai.ToolTypeFunction,
		Function: openai.FunctionCall{Name: name, Arguments: arguments},
	}
}

// RequiresAction is a step asking for the given tool calls.
func RequiresAction(calls ...openai.ToolCall) RunStep {
	return RunStep{Status: openai.RunStatusRequiresAction, ToolCalls: calls}
}

// Status is a step with only a status.
func Status(s openai.RunStatus) RunStep {
	return RunStep{Status: s}
}

// Failed is a failed step carrying message as the remote last error.
func Failed(message string) RunStep {
	return RunStep{
		Status:    openai.RunStatusFailed,
		LastError: &openai.RunLastError{Code: "server_error", Message: message},
	}
}

func (f *FakeAssistant) init() {
	if f.threads == nil {
		f.threads = make(map[string][]openai.Message)
		f.runs = make(map[string]*fakeRun)
		f.calls = make(map[string]int)
	}
}

// record counts a call and returns the injected error, if any. Caller holds mu.
func (f *FakeAssistant) record(method string) error {
	f.init()
	f.calls[method]++
	return f.Errors[method]
}

// CreateThreadAndRun creates a thread seeded with the request messages and starts a run.
func (f *FakeAssistant) CreateThreadAndRun(
	_ context.Context, request openai.CreateThreadAndRunRequest,
) (openai.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(MethodCreateThreadAndRun); err != nil {
		return openai.Run{}, err
	}
	threadID := "thread_" + uuid.NewString()
	f.threadOrder = append(f.threadOrder, threadID)
	f.threads[threadID] = nil
	for _, m := range request.Thread.Messages {
		f.appendMessage(threadID, string(m.Role), textContent(m.Content))
	}
	return f.startRun(threadID, request.AssistantID), nil
}

// CreateMessage appends a message to an existing thread.
func (f *FakeAssistant) CreateMessage(
	_ context.Context, threadID string, request openai.MessageRequest,
) (openai.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(MethodCreateMessage); err != nil {
		return openai.Message{}, err
	}
	if _, ok := f.threads[threadID]; !ok {
		return openai.Message{}, fmt.Errorf("thread %s not found", threadID)
	}
	return f.appendMessage(threadID, request.Role, textContent(request.Content)), nil
}

// CreateRun starts a run on an existing thread.
func (f *FakeAssistant) CreateRun(
	_ context.Context, threadID string, request openai.RunRequest,
) (openai.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(MethodCreateRun); err != nil {
		return openai.Run{}, err
	}
	if _, ok := f.threads[threadID]; !ok {
		return openai.Run{}, fmt.Errorf("thread %s not found", threadID)
	}
	return f.startRun(threadID, request.AssistantID), nil
}

// RetrieveRun advances the run to its next scripted step.
func (f *FakeAssistant) RetrieveRun(_ context.Context, threadID, runID string) (openai.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(MethodRetrieveRun); err != nil {
		return openai.Run{}, err
	}
	r, ok := f.runs[runID]
	if !ok || r.threadID != threadID {
		return openai.Run{}, fmt.Errorf("run %s not found in thread %s", runID, threadID)
	}
	if len(r.steps) > 0 {
		r.current = r.steps[0]
		if len(r.steps) > 1 {
			r.steps = r.steps[1:]
		}
	}
	if r.current.Status == openai.RunStatusCompleted && !r.answered {
		r.answered = true
		content := f.AnswerContent
		if content == nil && f.Answer != "" {
			content = textContent(f.Answer)
		}
		if content != nil {
			f.appendMessage(threadID, openai.ChatMessageRoleAssistant, content)
		}
	}
	return r.toRun(runID), nil
}

// SubmitToolOutputs records a submission. The run must currently require action.
func (f *FakeAssistant) SubmitToolOutputs(
	_ context.Context, threadID, runID string, request openai.SubmitToolOutputsRequest,
) (openai.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(MethodSubmitToolOutputs); err != nil {
		return openai.Run{}, err
	}
	r, ok := f.runs[runID]
	if !ok || r.threadID != threadID {
		return openai.Run{}, fmt.Errorf("run %s not found in thread %s", runID, threadID)
	}
	if r.current.Status != openai.RunStatusRequiresAction {
		return openai.Run{}, fmt.Errorf("run %s does not require action (status %s)", runID, r.current.Status)
	}
	f.submissions = append(f.submissions, Submission{
		ThreadID: threadID,
		RunID:    runID,
		Outputs:  slices.Clone(request.ToolOutputs),
	})
	r.current = RunStep{Status: openai.RunStatusQueued}
	return r.toRun(runID), nil
}

// ListMessage lists a thread's messages, oldest first unless order is "desc".
func (f *FakeAssistant) ListMessage(
	_ context.Context, threadID string, limit *int, order *string, _ *string, _ *string, _ *string,
) (openai.MessagesList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(MethodListMessage); err != nil {
		return openai.MessagesList{}, err
	}
	msgs, ok := f.threads[threadID]
	if !ok {
		return openai.MessagesList{}, fmt.Errorf("thread %s not found", threadID)
	}
	if f.HideMessages {
		return openai.MessagesList{}, nil
	}
	out := slices.Clone(msgs)
	if order != nil && *order == "desc" {
		slices.Reverse(out)
	}
	if limit != nil && *limit >= 0 && *limit < len(out) {
		out = out[:*limit]
	}
	return openai.MessagesList{Messages: out}, nil
}

// AddMessage appends a message with the given content (possibly none) to an
// existing thread without counting as an API call.
func (f *FakeAssistant) AddMessage(threadID, role string, content ...openai.MessageContent) (openai.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.init()
	if _, ok := f.threads[threadID]; !ok {
		return openai.Message{}, fmt.Errorf("thread %s not found", threadID)
	}
	return f.appendMessage(threadID, role, content), nil
}

// Calls returns how many times method was called.
func (f *FakeAssistant) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// Submissions returns every SubmitToolOutputs call in order.
func (f *FakeAssistant) Submissions() []Submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.submissions)
}

// Threads returns the ids of created threads in creation order.
func (f *FakeAssistant) Threads() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.threadOrder)
}

// Messages returns a thread's messages, oldest first.
func (f *FakeAssistant) Messages(threadID string) []openai.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.threads[threadID])
}

// AssistantIDs returns the assistant id of every started run in order.
func (f *FakeAssistant) AssistantIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.assistants)
}

// startRun creates a run following Steps. Caller holds mu.
func (f *FakeAssistant) startRun(threadID, assistantID string) openai.Run {
	runID := "run_" + uuid.NewString()
	steps := slices.Clone(f.Steps)
	if len(steps) == 0 {
		steps = []RunStep{Status(openai.RunStatusCompleted)}
	}
	r := &fakeRun{
		threadID:    threadID,
		assistantID: assistantID,
		steps:       steps,
		current:     RunStep{Status: openai.RunStatusQueued},
	}
	f.runs[runID] = r
	f.assistants = append(f.assistants, assistantID)
	return r.toRun(runID)
}

// appendMessage adds a message to a thread. Caller holds mu.
func (f *FakeAssistant) appendMessage(threadID, role string, content []openai.MessageContent) openai.Message {
	msg := openai.Message{
		ID:       "msg_" + uuid.NewString(),
		Object:   "thread.message",
		ThreadID: threadID,
		Role:     role,
		Content:  content,
	}
	f.threads[threadID] = append(f.threads[threadID], msg)
	return msg
}

func (r *fakeRun) toRun(runID string) openai.Run {
	run := openai.Run{
		ID:          runID,
		Object:      "thread.run",
		ThreadID:    r.threadID,
		AssistantID: r.assistantID,
		Status:      r.current.Status,
		LastError:   r.current.LastError,
	}
	if r.current.Status == openai.RunStatusRequiresAction {
		run.RequiredAction = &openai.RunRequiredAction{
			Type:              "submit_tool_outputs",
			SubmitToolOutputs: &openai.SubmitToolOutputs{ToolCalls: slices.Clone(r.current.ToolCalls)},
		}
	}
	return run
}

func textContent(s string) []openai.MessageContent {
	return []openai.MessageContent{{Type: "text", Text: &openai.MessageText{Value: s}}}
}

var _ agentrun.AssistantClient = (*FakeAssistant)(nil)
