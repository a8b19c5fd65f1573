// Package validate checks user-supplied inputs before a pipeline run starts.
// All functions are pure and return a Result instead of an error so callers
// can surface the message directly.
package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// Result carries the outcome of a validation check. When OK is false, Err
// holds a human-readable message and Value the sanitized input so far.
type Result struct {
	OK    bool
	Value string
	Err   string
}

// RFC 5322, simplified.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Frequent domain typos; a match produces a suggestion, never a silent fix.
var commonDomainTypos = map[string]string{
	"gmial.com":  "gmail.com",
	"gmal.com":   "gmail.com",
	"gamil.com":  "gmail.com",
	"yaho.com":   "yahoo.com",
	"hotmal.com": "hotmail.com",
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Basic XSS signatures; not full HTML sanitization.
var dangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
}

// Email validates an email address, returning the trimmed, lowercased value.
func Email(email string) Result {
	if email == "" {
		return Result{Err: "Email address is required"}
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if !emailPattern.MatchString(email) {
		return Result{Value: email, Err: "Invalid email format. Please enter a valid email address."}
	}
	domain := email[strings.LastIndex(email, "@")+1:]
	if fixed, ok := commonDomainTypos[domain]; ok {
		suggested := strings.Replace(email, domain, fixed, 1)
		return Result{Value: email, Err: fmt.Sprintf("Did you mean '%s'?", suggested)}
	}
	return Result{OK: true, Value: email}
}

// Topic validates a research topic: trims, collapses whitespace runs, checks
// length bounds, and rejects script-injection signatures.
func Topic(topic string, minLen, maxLen int) Result {
	if topic == "" {
		return Result{Err: "Research topic is required"}
	}
	topic = whitespaceRun.ReplaceAllString(strings.TrimSpace(topic), " ")
	if len(topic) < minLen {
		return Result{Value: topic, Err: fmt.Sprintf("Topic must be at least %d characters long", minLen)}
	}
	if len(topic) > maxLen {
		return Result{Value: topic, Err: fmt.Sprintf("Topic must be less than %d characters", maxLen)}
	}
	for _, p := range dangerousPatterns {
		if p.MatchString(topic) {
			return Result{Value: topic, Err: "Topic contains invalid characters"}
		}
	}
	return Result{OK: true, Value: topic}
}

// TopicDefault applies the standard 5..500 bounds.
func TopicDefault(topic string) Result {
	return Topic(topic, 5, 500)
}

// NumResults bounds the requested search result count.
func NumResults(v, min, max int) Result {
	if v < min {
		return Result{Value: fmt.Sprintf("%d", v), Err: fmt.Sprintf("Value must be at least %d", min)}
	}
	if v > max {
		return Result{Value: fmt.Sprintf("%d", v), Err: fmt.Sprintf("Value must be at most %d", max)}
	}
	return Result{OK: true, Value: fmt.Sprintf("%d", v)}
}
