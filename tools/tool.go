package tools

import (
	"context"
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// Descriptor is a tool as reported by a tool provider. InputSchema may be a
// JSON string, raw JSON bytes, a decoded object or any JSON-marshallable value.
type Descriptor struct {
	Name        string
	Description string
	InputSchema any
}

// Provider lists and executes tools. CallTool returns the tool's raw result.
type Provider interface {
	ListTools(ctx context.Context) ([]Descriptor, error)
	CallTool(ctx context.Context, name string, args json.RawMessage) (any, error)
}

// Declaration is a registered tool in the shape handed to model providers.
type Declaration struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Properties returns the schema's "properties" object, if any.
func (d Declaration) Properties() map[string]any {
	p, _ := d.InputSchema["properties"].(map[string]any)
	return p
}

// Required returns the schema's "required" list.
func (d Declaration) Required() []string {
	var out []string
	switch v := d.InputSchema["required"].(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for _, s := range v {
			if name, ok := s.(string); ok {
				out = append(out, name)
			}
		}
	}
	return out
}

// GenerateSchema reflects T into a JSON Schema object without $ref indirection.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)

	b, err := json.Marshal(schema)
	if err != nil {
		panic("tools: marshal generated schema: " + err.Error())
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		panic("tools: decode generated schema: " + err.Error())
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out
}
