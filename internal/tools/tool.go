// Package tools holds the external capabilities a role may invoke during a
// run (web search, email delivery). Tool failures are reported as text so the
// reasoning loop can see them and react; Invoke never returns a Go error.
package tools

import (
	"context"
	"sync"
)

// Tool is one external capability exposed to the model as a function.
type Tool interface {
	Name() string
	Description() string
	// Schema returns the JSON-schema parameters object for function calling.
	Schema() map[string]any
	// Invoke runs the tool. Failures come back as descriptive text.
	Invoke(ctx context.Context, args map[string]any) string
}

// Registry holds tools by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Names returns registered tool names (unordered).
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tools))
	for name := range r.tools {
		out = append(out, name)
	}
	return out
}
