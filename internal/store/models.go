package store

import (
	"time"

	"github.com/google/uuid"
)

// Run is one pipeline execution: the request parameters plus the outcome,
// including whatever stage outputs survived a failure.
type Run struct {
	ID             string    `json:"id"`
	Topic          string    `json:"topic"`
	RecipientEmail string    `json:"recipient_email"`
	ReportFormat   string    `json:"report_format"`
	NumResults     int       `json:"num_results"`
	Success        bool      `json:"success"`
	ResearchOutput string    `json:"research_output,omitempty"`
	SummaryOutput  string    `json:"summary_output,omitempty"`
	EmailOutput    string    `json:"email_output,omitempty"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}
