package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// Registry holds the active tool declarations.
type Registry struct {
	mu    sync.RWMutex
	decls []Declaration
	log   zerolog.Logger
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{log: log}
}

// Register replaces the active tool set. Descriptors with unusable schemas are
// kept with an empty schema; the returned warnings describe them. Unnamed and
// duplicate tools are skipped (first wins).
func (r *Registry) Register(descs []Descriptor) []error {
	var warnings []error
	decls := make([]Declaration, 0, len(descs))
	seen := make(map[string]struct{}, len(descs))

	for _, d := range descs {
		if d.Name == "" {
			err := &SchemaParseError{Tool: d.Name, Err: errors.New("tool has no name")}
			r.log.Warn().Err(err).Msg("skipping unnamed tool")
			warnings = append(warnings, err)
			continue
		}
		if _, dup := seen[d.Name]; dup {
			err := fmt.Errorf("tools: duplicate tool %q ignored", d.Name)
			r.log.Warn().Str("tool", d.Name).Msg("duplicate tool name; keeping first declaration")
			warnings = append(warnings, err)
			continue
		}
		seen[d.Name] = struct{}{}

		schema, err := parseSchema(d.InputSchema)
		if err != nil {
			perr := &SchemaParseError{Tool: d.Name, Err: err}
			r.log.Warn().Err(perr).Str("tool", d.Name).Msg("registering tool with empty input schema")
			warnings = append(warnings, perr)
			schema = map[string]any{}
		}
		decls = append(decls, Declaration{Name: d.Name, Description: d.Description, InputSchema: schema})
	}

	r.mu.Lock()
	r.decls = decls
	r.mu.Unlock()
	return warnings
}

// Load discovers the provider's tools and registers them.
func (r *Registry) Load(ctx context.Context, p Provider) ([]error, error) {
	descs, err := p.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	return r.Register(descs), nil
}

// ProviderFormat returns a copy of the declarations, or nil when no tools are
// registered (the provider request then carries no tool configuration).
func (r *Registry) ProviderFormat() []Declaration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.decls) == 0 {
		return nil
	}
	out := make([]Declaration, len(r.decls))
	for i, d := range r.decls {
		d.InputSchema = maps.Clone(d.InputSchema)
		out[i] = d
	}
	return out
}

// Names lists the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.decls))
	for i, d := range r.decls {
		names[i] = d.Name
	}
	return names
}

func parseSchema(raw any) (map[string]any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, errors.New("schema is missing")
	case map[string]any:
		return maps.Clone(v), nil
	case string:
		return parseSchemaJSON([]byte(v))
	case json.RawMessage:
		return parseSchemaJSON(v)
	case []byte:
		return parseSchemaJSON(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("schema is not serializable: %w", err)
		}
		return parseSchemaJSON(b)
	}
}

func parseSchemaJSON(b []byte) (map[string]any, error) {
	if !gjson.ValidBytes(b) {
		return nil, errors.New("schema is not valid JSON")
	}
	if !gjson.ParseBytes(b).IsObject() {
		return nil, errors.New("schema is not a JSON object")
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
