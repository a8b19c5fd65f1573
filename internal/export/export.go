// Package export names downloadable report artifacts. Topics become
// filename stems safe for filesystems and Content-Disposition headers.
package export

import (
	"strings"
	"unicode"
)

// ContentType is the media type served for report downloads.
const ContentType = "text/markdown; charset=utf-8"

const maxStemLength = 50

// SafeTopic reduces a topic to a filename stem: letters, digits, space,
// hyphen and underscore survive; everything else becomes an underscore.
// The stem is truncated to 50 characters and trimmed of surrounding space.
func SafeTopic(topic string) string {
	var b strings.Builder
	for _, r := range topic {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == ' ', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	stem := []rune(b.String())
	if len(stem) > maxStemLength {
		stem = stem[:maxStemLength]
	}
	return strings.TrimSpace(string(stem))
}

// ResearchFilename is the download name for the raw research report.
func ResearchFilename(topic string) string {
	return "research_report_" + SafeTopic(topic) + ".md"
}

// SummaryFilename is the download name for the formatted summary.
func SummaryFilename(topic string) string {
	return "summary_" + SafeTopic(topic) + ".md"
}
