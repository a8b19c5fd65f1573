// Package agent defines the capability roles that execute pipeline stages:
// a persona, an objective, tool bindings, and an iteration limit, all bound
// to the shared LLM handle. Roles are stateless templates rebuilt per run.
package agent

import (
	"fmt"
	"log/slog"

	"github.com/ahmedtarek-mel/prime-brief/internal/config"
	"github.com/ahmedtarek-mel/prime-brief/internal/llm"
	"github.com/ahmedtarek-mel/prime-brief/internal/tools"
)

// Role is one behavioral profile assignable to a task.
type Role struct {
	Title           string
	Objective       string
	Persona         string
	Tools           []tools.Tool
	MaxIterations   int
	AllowDelegation bool
	MaxTokens       int // 0 = provider default
	LLM             *llm.Client
}

// ReportFormat names the known summary shapes. Unrecognized values fall back
// to FormatSummaryReport.
type ReportFormat string

const (
	FormatSummaryReport    ReportFormat = "Summary Report"
	FormatDetailedAnalysis ReportFormat = "Detailed Analysis"
	FormatExecutiveBrief   ReportFormat = "Executive Brief"
)

// Factory builds the three pipeline roles from settings. RolesDir, when set,
// points at per-role override files (<dir>/<name>.yaml).
type Factory struct {
	Settings *config.Settings
	RolesDir string
}

const researcherPersona = `You are an elite web research specialist with over a decade
of experience in investigative journalism and academic research. Your expertise lies in
finding credible, authoritative sources across the internet, distinguishing reliable
information from misinformation, synthesizing complex data from multiple sources,
identifying emerging trends and expert opinions, and fact-checking.

You approach every research task methodically:
1. First, understand the core question and its context
2. Search for primary sources and expert opinions
3. Cross-reference information across multiple sources
4. Note publication dates and source credibility
5. Compile findings with proper citations

You are known for your thoroughness and accuracy. You always prioritize quality over quantity.`

const summarizerPersona = `You are a world-class content analyst and strategic communicator
with extensive experience in business intelligence and executive reporting. You transform
complex research data into clear, actionable insights, identify key patterns and
implications, and structure information for different audiences.

Your approach to content analysis:
1. Review all research findings comprehensively
2. Identify the most significant and actionable insights
3. Organize information in a logical, hierarchical structure
4. Highlight implications and potential impacts
5. Craft recommendations based on evidence

You excel at making complex information accessible and actionable,
always tailoring your communication style to the intended format and audience.`

const emailPersona = `You are a senior communications specialist with expertise in
corporate communications and professional correspondence. You craft clear, engaging
professional emails, adapt tone for the audience, and structure information for
maximum impact and readability.

Your approach to professional email communication:
1. Open with a clear, professional greeting
2. State the purpose immediately
3. Present key information in a scannable format
4. Close professionally with an appropriate sign-off

You treat every message as an opportunity to demonstrate professionalism and value.`

// FormatRequirements returns the persona instruction block for a report
// format. Unknown formats get the Summary Report block.
func FormatRequirements(format ReportFormat) string {
	switch format {
	case FormatDetailedAnalysis:
		return `
Create a comprehensive analysis with:
- Executive overview
- Detailed findings with supporting evidence
- Trend analysis and implications
- Expert opinions and perspectives
- Strategic recommendations
- Complete source citations
`
	case FormatExecutiveBrief:
		return `
Create a one-page executive brief with:
- Critical headline findings
- Business implications
- Immediate recommendations
- Risk factors (if any)
- Key takeaways for leadership
`
	default:
		return `
Create a concise summary with:
- Key Findings (3-5 bullet points)
- Main trends and developments
- Actionable insights
- Source references
`
	}
}

// Researcher builds the web-research role, bound to a search tool capped at
// numResults and a 5-iteration limit.
func (f *Factory) Researcher(topic string, numResults int) *Role {
	slog.Debug("creating researcher role", "topic", clip(topic, 50))
	search := tools.NewSearchTool(f.Settings.SerperAPIKey, numResults)
	return f.build("researcher", &Role{
		Title:         "Senior Web Research Specialist",
		Objective:     fmt.Sprintf("Conduct comprehensive, accurate web research on: %s", topic),
		Persona:       researcherPersona,
		Tools:         []tools.Tool{search},
		MaxIterations: 5,
	})
}

// Summarizer builds the content-analysis role. It binds no tools; its persona
// is extended with the format-specific instruction block.
func (f *Factory) Summarizer(format ReportFormat) *Role {
	slog.Debug("creating summarizer role", "format", string(format))
	return f.build("summarizer", &Role{
		Title:         "Content Analysis & Summarization Expert",
		Objective:     fmt.Sprintf("Create an exceptional %s that transforms research data into actionable insights", displayFormat(format)),
		Persona:       summarizerPersona + "\n\nCurrent Task Requirements:" + FormatRequirements(format),
		MaxIterations: 3,
	})
}

// EmailSender builds the delivery role, bound to the email tool and capped at
// 2 iterations.
func (f *Factory) EmailSender() *Role {
	slog.Debug("creating email sender role")
	email := tools.NewEmailTool(f.Settings.SMTPServer, f.Settings.SMTPPort, f.Settings.EmailUser, f.Settings.EmailPass)
	return f.build("email_sender", &Role{
		Title:         "Email Communication Specialist",
		Objective:     "Compose and send professional, well-formatted research reports via email",
		Persona:       emailPersona,
		Tools:         []tools.Tool{email},
		MaxIterations: 2,
	})
}

// build finalizes a role: global iteration cap wins over role defaults,
// per-role override files may swap the model, and the shared LLM handle is
// attached last.
func (f *Factory) build(name string, r *Role) *Role {
	if cap := f.Settings.MaxIterations; cap > 0 {
		r.MaxIterations = cap
	}
	r.AllowDelegation = false
	r.LLM = SharedClient(f.Settings)

	if f.RolesDir != "" {
		ov, err := LoadOverride(f.RolesDir, name)
		if err != nil {
			slog.Warn("role override unreadable", "role", name, "err", err)
		} else if ov != nil {
			if ov.Model != "" {
				r.LLM = llm.New(llm.Options{
					APIKey:      f.Settings.CurrentAPIKey(),
					Model:       ov.Model,
					Temperature: f.Settings.Temperature,
				})
			}
			if ov.MaxTokens > 0 {
				r.MaxTokens = ov.MaxTokens
			}
		}
	}

	slog.Info("created role", "role", r.Title, "max_iterations", r.MaxIterations, "tools", len(r.Tools))
	return r
}

func displayFormat(f ReportFormat) string {
	switch f {
	case FormatDetailedAnalysis, FormatExecutiveBrief, FormatSummaryReport:
		return string(f)
	default:
		return string(FormatSummaryReport)
	}
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
