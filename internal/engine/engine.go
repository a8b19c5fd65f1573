// Package engine executes an ordered, dependency-linked set of tasks against
// capability roles. The Engine interface is the boundary between the pipeline
// and whatever actually does the reasoning; CrewEngine drives a chat model
// with tool calls, StubEngine is deterministic for tests and offline mode.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/ahmedtarek-mel/prime-brief/internal/agent"
)

// TaskSpec is one declared unit of work. Upstream lists the tasks whose
// outputs must be available as context before this one runs; references must
// point at tasks declared earlier in the run (no forward references).
type TaskSpec struct {
	Name           string
	Instructions   string
	ExpectedOutput string
	Role           *agent.Role
	Upstream       []*TaskSpec
}

// Request is one run handed to an engine.
type Request struct {
	Tasks   []*TaskSpec
	MaxRPM  int  // pass-through pacing for model calls; 0 = unpaced
	Memory  bool // widen context to all completed stages, not just declared upstream
	Verbose bool
}

// StageOutput is the raw text a task produced, in declaration order.
type StageOutput struct {
	TaskName string
	Raw      string
}

// Event is a coarse execution signal for subscribers (SSE, logs).
type Event struct {
	Type      string         `json:"type"`
	Stage     string         `json:"stage,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Engine runs tasks in dependency order, feeding each upstream task's output
// to its dependents. On failure it returns the outputs of all stages that
// completed before the error, so callers can keep partial results.
type Engine interface {
	Name() string
	Kickoff(ctx context.Context, req Request, emit func(Event)) ([]StageOutput, error)
}

// ResolveOrder returns tasks in an order satisfying every Upstream link.
// Declaration order is kept wherever dependencies allow it, so a fully linear
// chain comes back unchanged. Unknown upstream references and cycles are errors.
func ResolveOrder(tasks []*TaskSpec) ([]*TaskSpec, error) {
	declared := make(map[*TaskSpec]bool, len(tasks))
	for _, t := range tasks {
		declared[t] = true
	}
	for _, t := range tasks {
		for _, up := range t.Upstream {
			if !declared[up] {
				return nil, fmt.Errorf("task %q references upstream task %q not in the run", t.Name, up.Name)
			}
		}
	}

	scheduled := make(map[*TaskSpec]bool, len(tasks))
	out := make([]*TaskSpec, 0, len(tasks))
	for len(out) < len(tasks) {
		progressed := false
		for _, t := range tasks {
			if scheduled[t] {
				continue
			}
			ready := true
			for _, up := range t.Upstream {
				if !scheduled[up] {
					ready = false
					break
				}
			}
			if ready {
				scheduled[t] = true
				out = append(out, t)
				progressed = true
			}
		}
		if !progressed {
			return nil, fmt.Errorf("task dependency cycle detected")
		}
	}
	return out, nil
}

func emitSafe(emit func(Event), ev Event) {
	if emit != nil {
		ev.Timestamp = time.Now().UTC()
		emit(ev)
	}
}
