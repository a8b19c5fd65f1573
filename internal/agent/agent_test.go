package agent

import (
	"strings"
	"testing"

	"github.com/ahmedtarek-mel/prime-brief/internal/config"
)

func testSettings() *config.Settings {
	return &config.Settings{
		LLMProvider:  config.ProviderGemini,
		GoogleAPIKey: "test-key",
		GeminiModel:  "gemini/gemini-2.5-flash",
		SerperAPIKey: "serper-key",
		EmailUser:    "bot@example.com",
		EmailPass:    "pass",
		SMTPServer:   "smtp.example.com",
		SMTPPort:     587,
		Temperature:  0.7,
		MaxRPM:       4,
	}
}

func TestResearcherRole(t *testing.T) {
	ResetClient()
	f := &Factory{Settings: testSettings()}
	r := f.Researcher("quantum computing", 3)
	if r.Title != "Senior Web Research Specialist" {
		t.Fatalf("title = %q", r.Title)
	}
	if !strings.Contains(r.Objective, "quantum computing") {
		t.Fatalf("objective = %q", r.Objective)
	}
	if len(r.Tools) != 1 || r.Tools[0].Name() != "web_search" {
		t.Fatalf("tools = %v", r.Tools)
	}
	if r.MaxIterations != 5 {
		t.Fatalf("max iterations = %d", r.MaxIterations)
	}
	if r.AllowDelegation {
		t.Fatal("delegation must be disabled")
	}
	if r.LLM == nil {
		t.Fatal("role missing shared LLM")
	}
}

func TestSummarizerFormatBlock(t *testing.T) {
	ResetClient()
	f := &Factory{Settings: testSettings()}

	r := f.Summarizer(FormatExecutiveBrief)
	if len(r.Tools) != 0 {
		t.Fatal("summarizer should bind no tools")
	}
	if r.MaxIterations != 3 {
		t.Fatalf("max iterations = %d", r.MaxIterations)
	}
	if !strings.Contains(r.Persona, "executive brief") {
		t.Fatal("persona missing executive brief block")
	}

	// Unrecognized format falls back to Summary Report.
	r = f.Summarizer(ReportFormat("Interpretive Dance"))
	if !strings.Contains(r.Persona, "Key Findings (3-5 bullet points)") {
		t.Fatal("unknown format should use Summary Report block")
	}
	if !strings.Contains(r.Objective, "Summary Report") {
		t.Fatalf("objective = %q", r.Objective)
	}
}

func TestEmailSenderRole(t *testing.T) {
	ResetClient()
	f := &Factory{Settings: testSettings()}
	r := f.EmailSender()
	if r.MaxIterations != 2 {
		t.Fatalf("max iterations = %d", r.MaxIterations)
	}
	if len(r.Tools) != 1 || r.Tools[0].Name() != "send_email" {
		t.Fatalf("tools = %v", r.Tools)
	}
}

func TestGlobalIterationCapWins(t *testing.T) {
	ResetClient()
	s := testSettings()
	s.MaxIterations = 7
	f := &Factory{Settings: s}
	if got := f.Researcher("x", 3).MaxIterations; got != 7 {
		t.Fatalf("researcher cap = %d", got)
	}
	if got := f.EmailSender().MaxIterations; got != 7 {
		t.Fatalf("email cap = %d", got)
	}
}

func TestSharedClientIdempotent(t *testing.T) {
	ResetClient()
	s := testSettings()
	a := SharedClient(s)
	b := SharedClient(s)
	if a != b {
		t.Fatal("SharedClient returned different instances without reset")
	}
	ResetClient()
	c := SharedClient(s)
	if c == a {
		t.Fatal("expected a fresh instance after reset")
	}
}

func TestRoleOverride(t *testing.T) {
	ResetClient()
	dir := t.TempDir()
	if err := SaveOverride(dir, "researcher", &Override{Model: "gpt-4o-mini", MaxTokens: 2048}); err != nil {
		t.Fatalf("SaveOverride: %v", err)
	}
	f := &Factory{Settings: testSettings(), RolesDir: dir}
	r := f.Researcher("x", 3)
	if r.MaxTokens != 2048 {
		t.Fatalf("max tokens = %d", r.MaxTokens)
	}
	if r.LLM == SharedClient(testSettings()) {
		t.Fatal("override model should get a dedicated client")
	}

	// Missing file is not an error and keeps the shared handle.
	r2 := f.Summarizer(FormatSummaryReport)
	if r2.LLM != SharedClient(testSettings()) {
		t.Fatal("summarizer should use the shared client")
	}
}

func TestFormatRequirementsClosedSet(t *testing.T) {
	t.Parallel()
	if !strings.Contains(FormatRequirements(FormatDetailedAnalysis), "comprehensive analysis") {
		t.Fatal("detailed analysis block wrong")
	}
	if FormatRequirements("bogus") != FormatRequirements(FormatSummaryReport) {
		t.Fatal("unknown format must default to Summary Report")
	}
}
