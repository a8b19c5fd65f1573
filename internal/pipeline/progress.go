package pipeline

import "log/slog"

// ProgressFunc receives coarse progress updates during a run. Callbacks fire
// in strictly increasing percentage order; a failed run stops short of 100.
type ProgressFunc func(percent int, message string)

// Progress milestones, fired in this order during Execute.
const (
	progressTeam     = 10
	progressTasks    = 25
	progressInitiate = 40
	progressWorking  = 50
	progressFinalize = 90
	progressComplete = 100
)

const (
	msgTeam     = "Assembling AI research team..."
	msgTasks    = "Configuring research tasks..."
	msgInitiate = "Initiating research process..."
	msgWorking  = "AI agents working on research..."
	msgFinalize = "Finalizing results..."
	msgComplete = "Research complete!"
)

// notify is nil-safe and logs every milestone regardless of callback.
func notify(fn ProgressFunc, percent int, message string) {
	slog.Info("pipeline progress", "percent", percent, "message", message)
	if fn != nil {
		fn(percent, message)
	}
}
