// Package pipeline assembles and executes the three-stage research workflow:
// web research, summarization, and email delivery. It owns the task templates,
// progress milestones, and the aggregation of engine outputs into a Result.
package pipeline

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahmedtarek-mel/prime-brief/internal/agent"
	"github.com/ahmedtarek-mel/prime-brief/internal/engine"
)

// Stage names, also used as event stage identifiers and output keys.
const (
	StageResearch  = "research"
	StageSummarize = "summarize"
	StageDeliver   = "deliver"
)

// ResearchTask builds the web-research task. focusAreas, when non-empty, are
// appended to the instructions as an explicit focus list.
func ResearchTask(role *agent.Role, topic string, numResults int, focusAreas []string) *engine.TaskSpec {
	slog.Info("creating research task", "topic", clip(topic, 50))

	focusSection := ""
	if len(focusAreas) > 0 {
		var b strings.Builder
		b.WriteString("\n\nFocus Areas:\n")
		for i, area := range focusAreas {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("- " + area)
		}
		focusSection = b.String()
	}

	instructions := fmt.Sprintf(`Conduct comprehensive web research on: %s

Research Requirements:
1. Search for the most current and relevant information
2. Focus on credible, authoritative sources
3. Gather information from at least %d different perspectives or sources
4. Include:
   - Current trends and developments
   - Expert opinions and analysis
   - Key statistics and data points
   - Recent news and announcements
5. Note publication dates and assess source credibility
6. Look for both supporting and contrasting viewpoints
%s

Quality Standards:
- Prioritize recency (prefer sources from the last 12 months)
- Verify key facts across multiple sources when possible
- Include direct quotes from experts where available
- Note any limitations or gaps in available information

Provide detailed findings with proper source citations.`, topic, numResults, focusSection)

	expected := fmt.Sprintf(`A comprehensive research report containing:
- %d+ credible sources with full citations
- Key findings organized by theme
- Current trends and developments
- Expert insights and opinions
- Data and statistics (with sources)
- Publication dates for all sources`, numResults)

	return &engine.TaskSpec{
		Name:           StageResearch,
		Instructions:   instructions,
		ExpectedOutput: expected,
		Role:           role,
	}
}

// SummarizeTask builds the analysis task, linked to the research task so its
// findings flow in as context.
func SummarizeTask(role *agent.Role, format agent.ReportFormat, research *engine.TaskSpec) *engine.TaskSpec {
	slog.Info("creating summarization task", "format", string(format))

	display := displayFormat(format)
	instructions := fmt.Sprintf(`Analyze the research findings and create a %s.

Your Task:
1. Review all research findings provided
2. Identify the most significant and actionable insights
3. Synthesize information from multiple sources
4. Create a well-structured %s
5. Ensure the output is professional and actionable

%s

Writing Guidelines:
- Use clear, professional language
- Avoid jargon unless necessary (explain when used)
- Make the content scannable with headers and bullets
- Highlight surprising or particularly important findings
- Be objective and balanced in your analysis
- Use Markdown formatting for structure`, display, display, formatStructure(format))

	expected := fmt.Sprintf(`A professionally formatted %s in Markdown with:
- Clear structure and organization
- Key insights prominently featured
- Actionable takeaways
- Proper source attribution
- Professional tone suitable for email delivery`, display)

	return &engine.TaskSpec{
		Name:           StageSummarize,
		Instructions:   instructions,
		ExpectedOutput: expected,
		Role:           role,
		Upstream:       []*engine.TaskSpec{research},
	}
}

// DeliverTask builds the email-delivery task, linked to the summarization
// task for its content.
func DeliverTask(role *agent.Role, recipient, topic string, format agent.ReportFormat, summarize *engine.TaskSpec) *engine.TaskSpec {
	slog.Info("creating email task", "recipient", recipient)

	instructions := fmt.Sprintf(`Send a professional email with the research report to: %s

Email Requirements:
1. Subject Line: "AI Research Report: %s - %s"
2. Opening: Professional greeting
3. Introduction: Brief explanation of what this report contains
4. Body: The complete research summary/analysis
5. Closing: Professional sign-off with note about AI research methodology
6. Format: Use Markdown formatting (it will be converted to HTML)

Email Best Practices:
- Keep the introduction brief (2-3 sentences)
- Let the research content be the focus
- Include a call-to-action if appropriate (e.g., "reply with questions")
- Maintain a helpful, professional tone
- Don't over-explain the AI methodology

Send the email and confirm successful delivery.`, recipient, topic, displayFormat(format))

	expected := fmt.Sprintf(`Confirmation that:
1. Email was composed with proper formatting
2. Email was successfully sent to %s
3. Subject line follows the specified format
4. Content includes the full research summary`, recipient)

	return &engine.TaskSpec{
		Name:           StageDeliver,
		Instructions:   instructions,
		ExpectedOutput: expected,
		Role:           role,
		Upstream:       []*engine.TaskSpec{summarize},
	}
}

// formatStructure returns the report-structure block for a format. Unknown
// formats get the Summary Report structure.
func formatStructure(format agent.ReportFormat) string {
	switch format {
	case agent.FormatDetailedAnalysis:
		return `Structure your report as:
1. **Executive Overview** (1 paragraph summary)
2. **Background & Context** (Why this matters)
3. **Detailed Findings** (Organized by theme with supporting evidence)
4. **Trend Analysis** (Patterns and trajectories)
5. **Expert Perspectives** (What thought leaders say)
6. **Implications & Recommendations** (What to do with this information)
7. **Appendix: Sources & Methodology**`
	case agent.FormatExecutiveBrief:
		return `Structure your report as:
1. **Bottom Line Up Front** (The single most important takeaway)
2. **Critical Findings** (3 bullet points maximum)
3. **Business Impact** (Why leadership should care)
4. **Recommended Actions** (Next steps)
5. **Key Sources** (2-3 most credible references)

Keep the entire brief to one page maximum.`
	default:
		return `Structure your report as:
1. **Executive Summary** (2-3 sentences)
2. **Key Findings** (3-5 bullet points with brief explanations)
3. **Current Trends** (What's happening now)
4. **Actionable Insights** (What this means for the reader)
5. **Sources** (List of references used)`
	}
}

func displayFormat(f agent.ReportFormat) string {
	switch f {
	case agent.FormatSummaryReport, agent.FormatDetailedAnalysis, agent.FormatExecutiveBrief:
		return string(f)
	default:
		return string(agent.FormatSummaryReport)
	}
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
