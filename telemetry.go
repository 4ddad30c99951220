package agentrun

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/skosovsky/agentrun"

// Span attribute keys.
const (
	attrThreadID = attribute.Key("agentrun.thread_id")
	attrRunID    = attribute.Key("agentrun.run_id")
	attrFunction = attribute.Key("agentrun.function")
	attrStatus   = attribute.Key("agentrun.run_status")
)

// instruments groups the tracer and counters used by a Controller.
type instruments struct {
	tracer    trace.Tracer
	polls     metric.Int64Counter
	toolCalls metric.Int64Counter
}

// newInstruments uses the global providers unless overridden. Counter creation
// errors fall back to no-op counters so telemetry never blocks a run.
func newInstruments(tracer trace.Tracer, meter metric.Meter) instruments {
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	polls, err := meter.Int64Counter("agentrun.polls",
		metric.WithDescription("Run status reads issued while polling"))
	if err != nil {
		polls = noop.Int64Counter{}
	}
	toolCalls, err := meter.Int64Counter("agentrun.tool_calls",
		metric.WithDescription("Tool calls dispatched to local functions"))
	if err != nil {
		toolCalls = noop.Int64Counter{}
	}
	return instruments{tracer: tracer, polls: polls, toolCalls: toolCalls}
}
