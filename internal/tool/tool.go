// Package tool defines the function-calling capabilities exposed to the
// conversational engine and the registry they are dispatched through.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownTool is returned when a call names a tool that was never
// registered.
var ErrUnknownTool = errors.New("unknown tool")

// Definition describes a tool in the function-calling format of the
// realtime session configuration.
type Definition struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Tool is one callable capability. Invoke receives the decoded call
// arguments and returns a JSON-serializable result.
type Tool interface {
	Definition() Definition
	Invoke(ctx context.Context, params map[string]any) (any, error)
}

// Registry maps tool names to their handlers. Built once at bridge setup
// and read-only afterwards, so lookups need no locking.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry indexes the given tools by definition name.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Definition().Name] = t
	}
	return r
}

// Definitions returns every registered tool definition, for session
// configuration payloads.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.tools))
	for _, t := range r.tools {
		defs = append(defs, t.Definition())
	}
	return defs
}

// Dispatch invokes the named tool with JSON-encoded arguments and returns
// the JSON-encoded result. A missing tool yields ErrUnknownTool.
func (r *Registry) Dispatch(ctx context.Context, name, arguments string) (string, error) {
	t, ok := r.tools[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	params := map[string]any{}
	if arguments != "" {
		if err := json.Unmarshal([]byte(arguments), &params); err != nil {
			return "", fmt.Errorf("decode arguments for %s: %w", name, err)
		}
	}
	result, err := t.Invoke(ctx, params)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", name, err)
	}
	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode result of %s: %w", name, err)
	}
	return string(out), nil
}
