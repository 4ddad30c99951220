package agentrun

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// functionOptions hold optional function settings.
type functionOptions struct {
	registry     *Registry
	schemaDir    string
	validateArgs bool
	log          bool
	middlewares  []Middleware
}

// FunctionOption configures a function built by NewFunction.
type FunctionOption func(*functionOptions)

// WithRegistry appends the function to r when it is constructed.
func WithRegistry(r *Registry) FunctionOption {
	return func(o *functionOptions) {
		o.registry = r
	}
}

// WithSchemaDir sets the directory ExportSchemas writes this function's schema to
// when no directory is passed explicitly.
func WithSchemaDir(dir string) FunctionOption {
	return func(o *functionOptions) {
		o.schemaDir = dir
	}
}

// WithArgumentValidation validates every Execute call against the function's
// schema (types, enums, required) before the handler runs.
func WithArgumentValidation() FunctionOption {
	return func(o *functionOptions) {
		o.validateArgs = true
	}
}

// WithFunctionLog makes ExportSchemas report each schema it writes for this
// function. Failures are logged either way.
func WithFunctionLog(enable bool) FunctionOption {
	return func(o *functionOptions) {
		o.log = enable
	}
}

// WithMiddleware wraps the built function with middlewares (first is outermost)
// before it is registered and returned.
func WithMiddleware(mws ...Middleware) FunctionOption {
	return func(o *functionOptions) {
		o.middlewares = append(o.middlewares, mws...)
	}
}

// DefaultPollingInterval is the delay between two reads of a run's status.
const DefaultPollingInterval = 2 * time.Second

// MinPollingInterval is the exclusive lower bound for WithPollingInterval.
const MinPollingInterval = 500 * time.Millisecond

// Option configures a Controller.
type Option func(*options)

type options struct {
	functions       []Function
	pollingInterval time.Duration
	log             bool
	logger          *slog.Logger
	store           ThreadStore
	tracer          trace.Tracer
	meter           metric.Meter
}

// WithFunctions attaches functions the assistant may call. Names must be
// unique and non-empty within one controller.
func WithFunctions(fns ...Function) Option {
	return func(o *options) {
		o.functions = append(o.functions, fns...)
	}
}

// WithPollingInterval sets the delay between run status reads. Must be greater
// than MinPollingInterval.
func WithPollingInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollingInterval = d
	}
}

// WithLog enables logging to slog.Default (or the WithLogger logger).
func WithLog(enable bool) Option {
	return func(o *options) {
		o.log = enable
	}
}

// WithLogger sets the logger and enables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
		o.log = logger != nil
	}
}

// WithThreadStore sets where the conversation handle is kept. Defaults to a
// MemoryThreadStore owned by the controller.
func WithThreadStore(s ThreadStore) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithTracer overrides the tracer from the global TracerProvider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		o.tracer = t
	}
}

// WithMeter overrides the meter from the global MeterProvider.
func WithMeter(m metric.Meter) Option {
	return func(o *options) {
		o.meter = m
	}
}
