package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// ToolDefinition is an in-process tool: name, description, JSON input schema, handler.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
	Function    func(ctx context.Context, args map[string]any) (any, error)
}

// Local serves ToolDefinitions as a Provider.
type Local struct {
	defs  map[string]ToolDefinition
	order []string
}

func NewLocal(defs ...ToolDefinition) *Local {
	l := &Local{defs: make(map[string]ToolDefinition, len(defs))}
	for _, d := range defs {
		if _, ok := l.defs[d.Name]; !ok {
			l.order = append(l.order, d.Name)
		}
		l.defs[d.Name] = d
	}
	return l
}

func (l *Local) ListTools(context.Context) ([]Descriptor, error) {
	out := make([]Descriptor, 0, len(l.order))
	for _, name := range l.order {
		d := l.defs[name]
		out = append(out, Descriptor{Name: d.Name, Description: d.Description, InputSchema: d.InputSchema})
	}
	return out, nil
}

func (l *Local) CallTool(ctx context.Context, name string, args json.RawMessage) (any, error) {
	def, ok := l.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	m := map[string]any{}
	if trimmed := bytes.TrimSpace(args); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return nil, fmt.Errorf("%s: arguments must be a JSON object: %w", name, err)
		}
	}
	return def.Function(ctx, m)
}

// decodeArgs maps loosely typed tool arguments onto T using its json tags.
func decodeArgs[T any](args map[string]any) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           &out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(args); err != nil {
		return out, err
	}
	return out, nil
}
