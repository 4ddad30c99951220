package agentrun

import (
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/invopop/jsonschema"
	"github.com/sashabaranov/go-openai"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Property is the schema of one parameter (Parameter without Name and Required).
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Properties keeps parameter declaration order in the exported JSON.
type Properties = orderedmap.OrderedMap[string, Property]

// ObjectSchema is the "parameters" member of a Schema.
type ObjectSchema struct {
	Type       string      `json:"type"`
	Properties *Properties `json:"properties"`
}

// Schema is the machine-readable description of a function, as exported to
// <name>.schema.json. Required lists the names of required parameters in
// declaration order and is never null.
type Schema struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Parameters  ObjectSchema `json:"parameters"`
	Required    []string     `json:"required"`
}

// NewSchema projects a descriptor onto its Schema. The projection is pure:
// the same inputs always give an equal Schema.
func NewSchema(name, description string, params []Parameter) Schema {
	props := orderedmap.New[string, Property](len(params))
	required := make([]string, 0, len(params))
	for _, p := range params {
		props.Set(p.Name, Property{
			Type:        p.Type,
			Description: p.Description,
			Enum:        slices.Clone(p.Enum),
		})
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return Schema{
		Name:        name,
		Description: description,
		Parameters:  ObjectSchema{Type: "object", Properties: props},
		Required:    required,
	}
}

// Parameters rebuilds the ordered parameter list the schema was projected from.
func (s Schema) Parameters() []Parameter {
	required := make(map[string]bool, len(s.Required))
	for _, name := range s.Required {
		required[name] = true
	}
	var out []Parameter
	if s.Parameters.Properties == nil {
		return out
	}
	for pair := s.Parameters.Properties.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, Parameter{
			Name:        pair.Key,
			Type:        pair.Value.Type,
			Description: pair.Value.Description,
			Enum:        slices.Clone(pair.Value.Enum),
			Required:    required[pair.Key],
		})
	}
	return out
}

// clone returns a deep copy so callers cannot mutate a function's schema.
func (s Schema) clone() Schema {
	return NewSchema(s.Name, s.Description, s.Parameters())
}

// definitionParameters is the JSON Schema object the remote API expects, with
// required nested under parameters.
type definitionParameters struct {
	Type       string      `json:"type"`
	Properties *Properties `json:"properties"`
	Required   []string    `json:"required"`
}

func (s Schema) argumentSchema() definitionParameters {
	props := s.Parameters.Properties
	if props == nil {
		props = orderedmap.New[string, Property]()
	}
	required := s.Required
	if required == nil {
		required = []string{}
	}
	return definitionParameters{Type: "object", Properties: props, Required: required}
}

// Definition renders the schema as a remote tool definition.
func (s Schema) Definition() openai.FunctionDefinition {
	return openai.FunctionDefinition{
		Name:        s.Name,
		Description: s.Description,
		Parameters:  s.argumentSchema(),
	}
}

var errNotStruct = errors.New("parameters can only be derived from a struct type")

// ParametersFor derives a parameter list from the exported fields of struct T.
// Names come from json tags; descriptions and enums from jsonschema tags.
// A field is required unless its json tag has omitempty, or when it is tagged
// jsonschema:"required".
func ParametersFor[T any]() ([]Parameter, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, errNotStruct
	}
	r := &jsonschema.Reflector{DoNotReference: true}
	root := r.ReflectFromType(t)
	if root == nil || root.Properties == nil {
		return nil, errNotStruct
	}
	required := make(map[string]bool, len(root.Required))
	for _, name := range root.Required {
		required[name] = true
	}
	params := make([]Parameter, 0, root.Properties.Len())
	for pair := root.Properties.Oldest(); pair != nil; pair = pair.Next() {
		prop := pair.Value
		if prop == nil {
			continue
		}
		p := Parameter{
			Name:        pair.Key,
			Type:        prop.Type,
			Description: prop.Description,
			Required:    required[pair.Key],
		}
		for _, e := range prop.Enum {
			p.Enum = append(p.Enum, fmt.Sprint(e))
		}
		params = append(params, p)
	}
	return params, nil
}
