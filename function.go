package agentrun

import (
	"context"
	"fmt"

	"github.com/skosovsky/agentrun/guard"
)

// DefaultSchemaDir is where schemas are exported when no directory is given.
const DefaultSchemaDir = "dist/openai-functions"

// Function is one invocable unit of local work the assistant may call.
// Implementations must be safe to call with any JSON object as args; errors
// they return fail the poll cycle that dispatched them.
type Function interface {
	Name() string
	Description() string
	// Schema returns the derived schema (a pure projection of the descriptor).
	Schema() Schema
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// SchemaLocator is implemented by functions that carry their own export directory.
type SchemaLocator interface {
	SchemaDir() string
}

// ExportLogger is implemented by functions that choose whether schema writes
// are logged.
type ExportLogger interface {
	LogEnabled() bool
}

// FuncHandler runs a function with already-parsed arguments.
type FuncHandler func(ctx context.Context, args map[string]any) (any, error)

// Parameter describes one named argument of a function.
type Parameter struct {
	Name        string   `json:"name" yaml:"name"`
	Type        string   `json:"type" yaml:"type"`
	Description string   `json:"description,omitempty" yaml:"description"`
	Enum        []string `json:"enum,omitempty" yaml:"enum"`
	Required    bool     `json:"required" yaml:"required"`
}

// function is the implementation built by NewFunction.
type function struct {
	name        string
	description string
	schema      Schema
	handler     FuncHandler
	validator   argumentValidator
	opts        functionOptions
}

// NewFunction builds a Function from a descriptor and a handler. The schema is
// computed once here. WithMiddleware wraps the function, and with WithRegistry
// the (wrapped) function is appended to that registry; nothing else about the descriptor is validated (name uniqueness and
// emptiness are checked when functions are attached to a Controller).
func NewFunction(
	name, description string,
	params []Parameter,
	handler FuncHandler,
	opts ...FunctionOption,
) (Function, error) {
	o := functionOptions{schemaDir: DefaultSchemaDir}
	for _, opt := range opts {
		opt(&o)
	}
	if handler == nil {
		return nil, ErrNilHandler
	}
	f := &function{
		name:        name,
		description: description,
		schema:      NewSchema(name, description, params),
		handler:     handler,
		opts:        o,
	}
	if o.validateArgs {
		v, err := compileArgumentSchema(f.schema)
		if err != nil {
			return nil, fmt.Errorf("compile argument schema for %q: %w", name, err)
		}
		f.validator = v
	}
	var out Function = f
	if len(o.middlewares) > 0 {
		out = Chain(f, o.middlewares...)
	}
	if o.registry != nil {
		o.registry.Register(out)
	}
	return out, nil
}

func (f *function) Name() string        { return f.name }
func (f *function) Description() string { return f.description }
func (f *function) Schema() Schema      { return f.schema.clone() }
func (f *function) SchemaDir() string   { return f.opts.schemaDir }
func (f *function) LogEnabled() bool    { return f.opts.log }

func (f *function) Execute(ctx context.Context, args map[string]any) (any, error) {
	if f.validator != nil {
		if err := f.validator.validate(args); err != nil {
			return nil, &guard.ValidationError{
				Reason: fmt.Sprintf("invalid arguments for %s: %v", f.name, err),
				Err:    err,
			}
		}
	}
	return f.handler(ctx, args)
}

var (
	_ Function      = (*function)(nil)
	_ SchemaLocator = (*function)(nil)
	_ ExportLogger  = (*function)(nil)
)
