package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/ahmedtarek-mel/prime-brief/internal/agent"
	"github.com/ahmedtarek-mel/prime-brief/internal/config"
	"github.com/ahmedtarek-mel/prime-brief/internal/engine"
	"github.com/ahmedtarek-mel/prime-brief/internal/otel"
)

// Request describes one research run.
type Request struct {
	Topic          string
	RecipientEmail string
	ReportFormat   agent.ReportFormat
	NumResults     int
	FocusAreas     []string
}

// Service orchestrates the research workflow: it builds fresh roles and tasks
// for every run, hands them to the engine, and aggregates the outcome.
type Service struct {
	Settings *config.Settings
	Engine   engine.Engine
	RolesDir string
	// Events, when set, receives engine events for fan-out (SSE, logs).
	Events func(engine.Event)
}

func NewService(settings *config.Settings, eng engine.Engine, rolesDir string) *Service {
	return &Service{Settings: settings, Engine: eng, RolesDir: rolesDir}
}

const defaultNumResults = 5

// Execute runs the full pipeline. It never returns a Go error: failures come
// back as a Result with Success=false, an error message, and whatever stage
// outputs completed before the failure.
func (s *Service) Execute(ctx context.Context, req Request, progress ProgressFunc) *Result {
	start := time.Now()
	result := &Result{CreatedAt: start.UTC()}

	if req.NumResults <= 0 {
		req.NumResults = defaultNumResults
	}
	format := req.ReportFormat
	if format == "" {
		format = agent.FormatSummaryReport
	}
	slog.Info("starting research workflow", "topic", clip(req.Topic, 50), "format", string(format))

	notify(progress, progressTeam, msgTeam)
	factory := &agent.Factory{Settings: s.Settings, RolesDir: s.RolesDir}
	researcher := factory.Researcher(req.Topic, req.NumResults)
	summarizer := factory.Summarizer(format)
	emailSender := factory.EmailSender()

	notify(progress, progressTasks, msgTasks)
	research := ResearchTask(researcher, req.Topic, req.NumResults, req.FocusAreas)
	summarize := SummarizeTask(summarizer, format, research)
	deliver := DeliverTask(emailSender, req.RecipientEmail, req.Topic, format, summarize)

	notify(progress, progressInitiate, msgInitiate)
	engReq := engine.Request{
		Tasks:   []*engine.TaskSpec{research, summarize, deliver},
		MaxRPM:  s.Settings.MaxRPM,
		Memory:  s.Settings.EnableMemory,
		Verbose: s.Settings.EnableVerbose,
	}

	notify(progress, progressWorking, msgWorking)
	outputs, err := s.Engine.Kickoff(ctx, engReq, s.Events)

	notify(progress, progressFinalize, msgFinalize)
	result.aggregate(outputs)
	result.ElapsedSeconds = time.Since(start).Seconds()

	if err != nil {
		result.Success = false
		result.ErrorMessage = err.Error()
		slog.Error("research workflow failed", "err", err, "elapsed", time.Since(start))
		otel.RecordRun(ctx, "failure", string(format), time.Since(start))
		return result
	}

	result.Success = true
	notify(progress, progressComplete, msgComplete)
	slog.Info("research workflow completed", "elapsed", time.Since(start))
	otel.RecordRun(ctx, "success", string(format), time.Since(start))
	return result
}
