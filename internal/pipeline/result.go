package pipeline

import (
	"time"

	"github.com/ahmedtarek-mel/prime-brief/internal/engine"
)

// Result is the outcome of one pipeline run. A failed run may still carry the
// outputs of the stages that completed before the failure.
type Result struct {
	Success        bool      `json:"success"`
	ResearchOutput string    `json:"research_output,omitempty"`
	SummaryOutput  string    `json:"summary_output,omitempty"`
	EmailOutput    string    `json:"email_output,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	CreatedAt      time.Time `json:"created_at"`
}

// Outputs returns the non-empty stage outputs in pipeline order.
func (r *Result) Outputs() []string {
	var out []string
	for _, s := range []string{r.ResearchOutput, r.SummaryOutput, r.EmailOutput} {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// aggregate maps engine stage outputs onto the Result by position: slot 0 is
// research, 1 summary, 2 email. A shorter list leaves the later slots unset.
func (r *Result) aggregate(outputs []engine.StageOutput) {
	for i, out := range outputs {
		switch i {
		case 0:
			r.ResearchOutput = out.Raw
		case 1:
			r.SummaryOutput = out.Raw
		case 2:
			r.EmailOutput = out.Raw
		}
	}
}
