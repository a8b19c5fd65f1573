package engine

import (
	"context"
	"fmt"
)

// StubEngine is a deterministic Engine for tests and offline dry runs. It
// honors task ordering and event emission but produces canned outputs instead
// of calling a model.
type StubEngine struct {
	// Outputs overrides the canned output per task name.
	Outputs map[string]string
	// FailStage, when set, makes that stage fail after all earlier stages
	// completed, exercising the partial-output path.
	FailStage string
}

func (s *StubEngine) Name() string { return "stub" }

func (s *StubEngine) Kickoff(ctx context.Context, req Request, emit func(Event)) ([]StageOutput, error) {
	ordered, err := ResolveOrder(req.Tasks)
	if err != nil {
		return nil, err
	}
	outputs := make([]StageOutput, 0, len(ordered))
	for _, task := range ordered {
		if err := ctx.Err(); err != nil {
			return outputs, err
		}
		emitSafe(emit, Event{Type: EventStageStarted, Stage: task.Name})
		if task.Name == s.FailStage {
			emitSafe(emit, Event{Type: EventStageFailed, Stage: task.Name, Data: map[string]any{"error": "stub failure"}})
			return outputs, fmt.Errorf("stage %q: stub failure", task.Name)
		}
		raw, ok := s.Outputs[task.Name]
		if !ok {
			raw = fmt.Sprintf("stub output for %s", task.Name)
		}
		outputs = append(outputs, StageOutput{TaskName: task.Name, Raw: raw})
		emitSafe(emit, Event{Type: EventStageCompleted, Stage: task.Name, Data: map[string]any{"output_bytes": len(raw)}})
	}
	return outputs, nil
}
