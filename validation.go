package agentrun

import (
	"bytes"
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const argumentSchemaURL = "mem://agentrun/arguments.json"

// argumentValidator checks tool call arguments against a compiled JSON Schema.
type argumentValidator interface {
	validate(args map[string]any) error
}

type compiledSchema struct {
	schema *jsonschema.Schema
}

// compileArgumentSchema compiles the parameters object of s (with required
// nested) into a validator.
func compileArgumentSchema(s Schema) (*compiledSchema, error) {
	doc, err := toJSONValue(s.argumentSchema())
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(argumentSchemaURL, doc); err != nil {
		return nil, err
	}
	sch, err := c.Compile(argumentSchemaURL)
	if err != nil {
		return nil, err
	}
	return &compiledSchema{schema: sch}, nil
}

func (c *compiledSchema) validate(args map[string]any) error {
	if args == nil {
		args = map[string]any{}
	}
	v, err := toJSONValue(args)
	if err != nil {
		return err
	}
	return c.schema.Validate(v)
}

// toJSONValue round-trips v through JSON so the validator sees json.Number
// values and plain maps, which is the form it is specified against.
func toJSONValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(data))
}
