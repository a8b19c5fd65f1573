package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ahmedtarek-mel/prime-brief/internal/agent"
	"github.com/ahmedtarek-mel/prime-brief/internal/llm"
	"github.com/ahmedtarek-mel/prime-brief/internal/otel"
	"github.com/ahmedtarek-mel/prime-brief/internal/tools"
)

// Event types emitted during a run.
const (
	EventStageStarted   = "stage_started"
	EventStageCompleted = "stage_completed"
	EventStageFailed    = "stage_failed"
	EventToolCall       = "tool_call"
)

// CrewEngine executes tasks sequentially by driving each task's role through
// a chat-completion tool-call loop, bounded by the role's iteration limit.
type CrewEngine struct{}

func NewCrewEngine() *CrewEngine { return &CrewEngine{} }

func (e *CrewEngine) Name() string { return "crew" }

// Kickoff runs every task in dependency order. The first stage failure stops
// the run; outputs of stages completed before the failure are still returned.
func (e *CrewEngine) Kickoff(ctx context.Context, req Request, emit func(Event)) ([]StageOutput, error) {
	ordered, err := ResolveOrder(req.Tasks)
	if err != nil {
		return nil, err
	}
	pace := newPacer(req.MaxRPM)

	completed := make(map[*TaskSpec]string, len(ordered))
	outputs := make([]StageOutput, 0, len(ordered))
	for _, task := range ordered {
		if err := ctx.Err(); err != nil {
			return outputs, err
		}
		emitSafe(emit, Event{Type: EventStageStarted, Stage: task.Name, Data: map[string]any{"role": task.Role.Title}})
		start := time.Now()

		raw, err := e.runTask(ctx, task, stageContext(task, ordered, completed, req.Memory), pace, req.Verbose, emit)
		otel.RecordStage(ctx, task.Name, time.Since(start))
		if err != nil {
			slog.Error("stage failed", "stage", task.Name, "err", err)
			emitSafe(emit, Event{Type: EventStageFailed, Stage: task.Name, Data: map[string]any{"error": err.Error()}})
			return outputs, fmt.Errorf("stage %q: %w", task.Name, err)
		}

		completed[task] = raw
		outputs = append(outputs, StageOutput{TaskName: task.Name, Raw: raw})
		slog.Info("stage completed", "stage", task.Name, "elapsed", time.Since(start), "output_bytes", len(raw))
		emitSafe(emit, Event{Type: EventStageCompleted, Stage: task.Name, Data: map[string]any{"output_bytes": len(raw)}})
	}
	return outputs, nil
}

// stageContext renders the upstream outputs a task should see. With Memory on,
// every completed stage is included in run order, not just declared upstream.
func stageContext(task *TaskSpec, ordered []*TaskSpec, completed map[*TaskSpec]string, memory bool) string {
	var sources []*TaskSpec
	if memory {
		for _, t := range ordered {
			if _, ok := completed[t]; ok {
				sources = append(sources, t)
			}
		}
	} else {
		sources = task.Upstream
	}
	if len(sources) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Context from previous tasks:\n")
	for _, src := range sources {
		out, ok := completed[src]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n### %s\n%s\n", src.Name, out)
	}
	return b.String()
}

func (e *CrewEngine) runTask(ctx context.Context, task *TaskSpec, taskContext string, pace *pacer, verbose bool, emit func(Event)) (string, error) {
	role := task.Role
	if role == nil || role.LLM == nil {
		return "", fmt.Errorf("task has no role bound")
	}

	messages := []llm.Message{
		{Role: "system", Content: systemPrompt(role)},
		{Role: "user", Content: userPrompt(task, taskContext)},
	}
	toolDefs := toolDefinitions(role.Tools)

	var lastContent string
	for i := 0; i < role.MaxIterations; i++ {
		if err := pace.wait(ctx); err != nil {
			return "", err
		}
		resp, err := role.LLM.Chat(ctx, llm.ChatRequest{
			Messages:  messages,
			Tools:     toolDefs,
			MaxTokens: role.MaxTokens,
		})
		if err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("model returned no choices")
		}
		msg := resp.Choices[0].Message
		if strings.TrimSpace(msg.Content) != "" {
			lastContent = msg.Content
		}
		if len(msg.ToolCalls) == 0 {
			if lastContent == "" {
				continue
			}
			return lastContent, nil
		}

		messages = append(messages, msg)
		for _, call := range msg.ToolCalls {
			result := e.invokeTool(ctx, role, call, verbose)
			otel.RecordToolCall(ctx, call.Function.Name)
			emitSafe(emit, Event{Type: EventToolCall, Stage: task.Name, Data: map[string]any{"tool": call.Function.Name}})
			messages = append(messages, llm.Message{
				Role:       "tool",
				ToolCallID: call.ID,
				Name:       call.Function.Name,
				Content:    result,
			})
		}
	}
	if lastContent != "" {
		return lastContent, nil
	}
	return "", fmt.Errorf("%s exhausted %d iterations without a final answer", role.Title, role.MaxIterations)
}

// invokeTool resolves and runs one model-requested tool call. Unknown tools
// and malformed arguments are reported back to the model as text, like any
// other tool failure.
func (e *CrewEngine) invokeTool(ctx context.Context, role *agent.Role, call llm.ToolCall, verbose bool) string {
	var tool tools.Tool
	for _, t := range role.Tools {
		if t.Name() == call.Function.Name {
			tool = t
			break
		}
	}
	if tool == nil {
		return fmt.Sprintf("Error: tool %q is not available to this role", call.Function.Name)
	}
	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return fmt.Sprintf("Error: tool arguments are not valid JSON: %v", err)
		}
	}
	if verbose {
		slog.Debug("invoking tool", "tool", tool.Name(), "args", len(args))
	}
	return tool.Invoke(ctx, args)
}

func systemPrompt(r *agent.Role) string {
	return fmt.Sprintf("You are %s.\n\n%s\n\nYour objective: %s", r.Title, r.Persona, r.Objective)
}

func userPrompt(task *TaskSpec, taskContext string) string {
	var b strings.Builder
	b.WriteString(task.Instructions)
	if taskContext != "" {
		b.WriteString("\n\n")
		b.WriteString(taskContext)
	}
	if task.ExpectedOutput != "" {
		b.WriteString("\n\nExpected output:\n")
		b.WriteString(task.ExpectedOutput)
	}
	return b.String()
}

func toolDefinitions(ts []tools.Tool) []llm.Tool {
	if len(ts) == 0 {
		return nil
	}
	defs := make([]llm.Tool, 0, len(ts))
	for _, t := range ts {
		defs = append(defs, llm.Tool{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Schema(),
			},
		})
	}
	return defs
}

// pacer enforces a minimum interval between model calls across the whole run.
type pacer struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

func newPacer(maxRPM int) *pacer {
	p := &pacer{}
	if maxRPM > 0 {
		p.interval = time.Minute / time.Duration(maxRPM)
	}
	return p
}

func (p *pacer) wait(ctx context.Context) error {
	if p.interval == 0 {
		return nil
	}
	p.mu.Lock()
	now := time.Now()
	var delay time.Duration
	if now.Before(p.next) {
		delay = p.next.Sub(now)
		p.next = p.next.Add(p.interval)
	} else {
		p.next = now.Add(p.interval)
	}
	p.mu.Unlock()

	if delay == 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
