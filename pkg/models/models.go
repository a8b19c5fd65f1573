// Package models holds the JSON types shared by the HTTP API and its clients.
package models

import "time"

// ResearchRequest is the POST /research payload.
type ResearchRequest struct {
	Topic          string   `json:"topic"`
	RecipientEmail string   `json:"recipient_email"`
	ReportFormat   string   `json:"report_format,omitempty"`
	NumResults     int      `json:"num_results,omitempty"`
	FocusAreas     []string `json:"focus_areas,omitempty"`
}

// ResearchAccepted is the POST /research response: the run was validated and
// started in the background.
type ResearchAccepted struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// Run mirrors a stored run over the wire.
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

// RunStatus describes an in-flight run returned by GET /runs/{id} before the
// run completes and is persisted.
type RunStatus struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Topic     string    `json:"topic"`
	StartedAt time.Time `json:"started_at"`
}

// ConfigInfo is the GET /config response.
type ConfigInfo struct {
	Provider      string   `json:"provider"`
	Model         string   `json:"model"`
	MissingKeys   []string `json:"missing_keys"`
	ReportFormats []string `json:"report_formats"`
}

// Known report formats, in UI display order.
var ReportFormats = []string{"Summary Report", "Detailed Analysis", "Executive Brief"}

// Valid bounds for num_results.
const (
	MinNumResults = 1
	MaxNumResults = 10
)

// DefaultRunListLimit caps GET /runs responses.
const DefaultRunListLimit = 50
