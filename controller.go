package agentrun

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/skosovsky/agentrun/guard"
)

// runStatusIncomplete is reported by the v2 Assistants API when a run stops
// early (e.g. token limits).
const runStatusIncomplete openai.RunStatus = "incomplete"

// Controller drives one conversation with a remote assistant: it creates or
// continues the thread, polls each run to a terminal state, answers tool calls
// with the attached functions, and extracts the final answer.
//
// A Controller holds no lock; calls to Complete on the same Controller must be
// serialized by the caller. Different Controllers may run concurrently.
type Controller struct {
	agentID   string
	client    AssistantClient
	functions map[string]Function
	ordered   []Function
	interval  time.Duration
	logger    *slog.Logger
	store     ThreadStore
	inst      instruments
	wait      func(ctx context.Context, d time.Duration) error
}

// New validates the configuration and builds a Controller. The first violated
// precondition is returned as a *guard.ValidationError.
func New(client AssistantClient, agentID string, opts ...Option) (*Controller, error) {
	o := options{pollingInterval: DefaultPollingInterval}
	for _, opt := range opts {
		opt(&o)
	}

	names := make([]string, 0, len(o.functions))
	nilFunction, blankName := false, false
	for _, fn := range o.functions {
		if fn == nil {
			nilFunction = true
			continue
		}
		names = append(names, fn.Name())
		if strings.TrimSpace(fn.Name()) == "" {
			blankName = true
		}
	}
	if err := guard.First(
		guard.NotEmpty(agentID, "agent ID is required"),
		guard.Guard(o.pollingInterval > MinPollingInterval, "polling interval must be greater than 500ms"),
		guard.NotNil(client, "assistant client is required"),
		guard.Guard(!nilFunction, "function must not be nil"),
		guard.Guard(!blankName, "function name is required"),
		guard.NoDuplicates(names, "function names must be unique"),
	); err != nil {
		return nil, err
	}

	logger := slog.New(slog.DiscardHandler)
	if o.log {
		logger = o.logger
		if logger == nil {
			logger = slog.Default()
		}
	}
	store := o.store
	if store == nil {
		store = NewMemoryThreadStore()
	}
	functions := make(map[string]Function, len(o.functions))
	for _, fn := range o.functions {
		functions[fn.Name()] = fn
	}
	return &Controller{
		agentID:   agentID,
		client:    client,
		functions: functions,
		ordered:   slices.Clone(o.functions),
		interval:  o.pollingInterval,
		logger:    logger,
		store:     store,
		inst:      newInstruments(o.tracer, o.meter),
		wait:      sleepContext,
	}, nil
}

// AgentID returns the remote assistant identifier.
func (c *Controller) AgentID() string { return c.agentID }

// PollingInterval returns the delay between run status reads.
func (c *Controller) PollingInterval() time.Duration { return c.interval }

// Functions returns the attached functions in the order they were given.
func (c *Controller) Functions() []Function { return slices.Clone(c.ordered) }

// ThreadID returns the conversation handle, ok=false before the first Complete.
func (c *Controller) ThreadID(ctx context.Context) (string, bool, error) {
	return c.store.Get(ctx)
}

// Complete sends text to the assistant and waits for its answer. The first call
// starts a new thread; later calls continue it. ok is false when the assistant
// produced no text.
func (c *Controller) Complete(ctx context.Context, text string) (answer string, ok bool, err error) {
	ctx, span := c.inst.tracer.Start(ctx, "agentrun.Complete")
	defer func() { endSpan(span, err) }()

	threadID, runID, err := c.createOrContinueThread(ctx, text)
	if err != nil {
		return "", false, err
	}
	span.SetAttributes(attrThreadID.String(threadID), attrRunID.String(runID))

	if _, err = c.pollRun(ctx, threadID, runID); err != nil {
		return "", false, err
	}
	answer, err = c.recoverAnswer(ctx, threadID)
	if err != nil {
		return "", false, err
	}
	if answer == "" {
		return "", false, nil
	}
	return answer, true, nil
}

// createOrContinueThread starts a thread seeded with text, or appends text to
// the existing thread and starts a new run on it. The thread id is stored only
// when a thread is created.
func (c *Controller) createOrContinueThread(ctx context.Context, text string) (threadID, runID string, err error) {
	threadID, ok, err := c.store.Get(ctx)
	if err != nil {
		return "", "", fmt.Errorf("load conversation thread: %w", err)
	}

	if !ok {
		run, err := c.client.CreateThreadAndRun(ctx, openai.CreateThreadAndRunRequest{
			RunRequest: openai.RunRequest{AssistantID: c.agentID},
			Thread: openai.ThreadRequest{
				Messages: []openai.ThreadMessage{{Role: openai.ChatMessageRoleUser, Content: text}},
			},
		})
		if err != nil {
			return "", "", fmt.Errorf("create thread and run: %w", err)
		}
		if err := c.store.Set(ctx, run.ThreadID); err != nil {
			return "", "", fmt.Errorf("store conversation thread: %w", err)
		}
		c.logger.InfoContext(ctx, "thread created", "thread_id", run.ThreadID, "run_id", run.ID)
		return run.ThreadID, run.ID, nil
	}

	if _, err := c.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	}); err != nil {
		return "", "", fmt.Errorf("create message: %w", err)
	}
	run, err := c.client.CreateRun(ctx, threadID, openai.RunRequest{AssistantID: c.agentID})
	if err != nil {
		return "", "", fmt.Errorf("create run: %w", err)
	}
	c.logger.InfoContext(ctx, "thread continued", "thread_id", threadID, "run_id", run.ID)
	return threadID, run.ID, nil
}

// pollRun reads the run until it reaches a terminal state, answering tool calls
// whenever the run requires action. There is no attempt limit: only ctx bounds
// the loop.
func (c *Controller) pollRun(ctx context.Context, threadID, runID string) (run openai.Run, err error) {
	ctx, span := c.inst.tracer.Start(ctx, "agentrun.pollRun",
		trace.WithAttributes(attrThreadID.String(threadID), attrRunID.String(runID)))
	defer func() { endSpan(span, err) }()

	for {
		c.inst.polls.Add(ctx, 1)
		run, err = c.client.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			return openai.Run{}, fmt.Errorf("retrieve run %s: %w", runID, err)
		}
		c.logger.DebugContext(ctx, "run polled", "thread_id", threadID, "run_id", runID, "status", run.Status)

		switch run.Status {
		case openai.RunStatusRequiresAction:
			var outputs []openai.ToolOutput
			outputs, err = c.dispatchToolCalls(ctx, run)
			if err != nil {
				return openai.Run{}, err
			}
			_, err = c.client.SubmitToolOutputs(ctx, threadID, runID, openai.SubmitToolOutputsRequest{
				ToolOutputs: outputs,
			})
			if err != nil {
				return openai.Run{}, fmt.Errorf("submit tool outputs for run %s: %w", runID, err)
			}
			c.logger.InfoContext(ctx, "tool outputs submitted", "run_id", runID, "outputs", len(outputs))
		case openai.RunStatusCompleted:
			span.SetAttributes(attrStatus.String(string(run.Status)))
			return run, nil
		case openai.RunStatusFailed, openai.RunStatusCancelled, openai.RunStatusExpired, runStatusIncomplete:
			span.SetAttributes(attrStatus.String(string(run.Status)))
			err = runFailure(threadID, runID, run)
			c.logger.ErrorContext(ctx, "run failed", "run_id", runID, "status", run.Status, "error", err)
			return run, err
		}

		if err = c.wait(ctx, c.interval); err != nil {
			return openai.Run{}, err
		}
	}
}

func runFailure(threadID, runID string, run openai.Run) *RunFailedError {
	rf := &RunFailedError{ThreadID: threadID, RunID: runID, Status: run.Status}
	if run.LastError != nil {
		rf.Code = string(run.LastError.Code)
		rf.Message = run.LastError.Message
	}
	return rf
}

// dispatchToolCalls answers every tool call of run, sequentially and in the
// order the remote side listed them. All outputs are returned together because
// the remote side accepts exactly one submission per requires_action cycle.
func (c *Controller) dispatchToolCalls(ctx context.Context, run openai.Run) ([]openai.ToolOutput, error) {
	var calls []openai.ToolCall
	if run.RequiredAction != nil && run.RequiredAction.SubmitToolOutputs != nil {
		calls = run.RequiredAction.SubmitToolOutputs.ToolCalls
	}
	outputs := make([]openai.ToolOutput, 0, len(calls))
	for _, call := range calls {
		args, err := parseArguments(call.Function.Arguments)
		if err != nil {
			return nil, &ToolCallError{CallID: call.ID, Function: call.Function.Name, Err: err}
		}
		out, err := c.executeFunction(ctx, call.Function.Name, args)
		if err != nil {
			return nil, &ToolCallError{CallID: call.ID, Function: call.Function.Name, Err: err}
		}
		outputs = append(outputs, openai.ToolOutput{ToolCallID: call.ID, Output: out})
	}
	return outputs, nil
}

// parseArguments decodes a tool call's JSON arguments. An empty string is an
// empty object.
func parseArguments(raw string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// executeFunction runs the attached function called name. An unknown name is
// not an error: it yields a nil output so one unresolvable call does not abort
// the run. Errors from the function itself are returned unchanged.
func (c *Controller) executeFunction(ctx context.Context, name string, args map[string]any) (out any, err error) {
	fn, ok := c.functions[name]
	if !ok {
		c.logger.WarnContext(ctx, "function not found", "function", name)
		return nil, nil
	}
	ctx, span := c.inst.tracer.Start(ctx, "agentrun.executeFunction",
		trace.WithAttributes(attrFunction.String(name)))
	defer func() { endSpan(span, err) }()

	c.inst.toolCalls.Add(ctx, 1, metric.WithAttributes(attrFunction.String(name)))
	return fn.Execute(ctx, args)
}

// recoverAnswer lists the thread newest first, flattens the message contents
// and returns the first fragment when it is text.
func (c *Controller) recoverAnswer(ctx context.Context, threadID string) (string, error) {
	order := "desc"
	list, err := c.client.ListMessage(ctx, threadID, nil, &order, nil, nil, nil)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}
	for _, msg := range list.Messages {
		for _, content := range msg.Content {
			if content.Text == nil {
				return "", nil
			}
			return content.Text.Value, nil
		}
	}
	return "", nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
