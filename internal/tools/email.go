package tools

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wneessen/go-mail"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Sender delivers a rendered email. Split out so tests can avoid SMTP.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody string) error
}

// EmailTool sends the final report over SMTP. The Markdown body is converted
// to HTML, with the original Markdown kept as the text alternative.
type EmailTool struct {
	From   string
	Sender Sender
}

// NewEmailTool builds an email tool backed by an SMTP sender.
func NewEmailTool(host string, port int, user, pass string) *EmailTool {
	return &EmailTool{
		From:   user,
		Sender: &smtpSender{host: host, port: port, user: user, pass: pass},
	}
}

func (e *EmailTool) Name() string { return "send_email" }

func (e *EmailTool) Description() string {
	return "Send a professional email with the research report. " +
		"Accepts recipient, subject, and a Markdown body; the body is converted to HTML before delivery."
}

func (e *EmailTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recipient": map[string]any{"type": "string", "description": "Recipient email address"},
			"subject":   map[string]any{"type": "string", "description": "Email subject line"},
			"body":      map[string]any{"type": "string", "description": "Email body in Markdown"},
		},
		"required": []string{"recipient", "subject", "body"},
	}
}

// Invoke sends the email. Failures come back as "Email failed:" text so the
// agent loop can see the outcome.
func (e *EmailTool) Invoke(ctx context.Context, args map[string]any) string {
	recipient, _ := args["recipient"].(string)
	subject, _ := args["subject"].(string)
	body, _ := args["body"].(string)
	if recipient == "" || subject == "" || body == "" {
		return "Email failed: recipient, subject, and body are all required"
	}

	htmlBody, err := MarkdownToHTML(body)
	if err != nil {
		return fmt.Sprintf("Email failed: could not render body: %v", err)
	}

	if err := e.Sender.Send(ctx, recipient, subject, htmlBody, body); err != nil {
		slog.Error("email delivery failed", "recipient", recipient, "err", err)
		return fmt.Sprintf("Email failed: %v", err)
	}
	slog.Info("email delivered", "recipient", recipient, "subject", subject)
	return fmt.Sprintf("Email successfully sent to %s with subject %q", recipient, subject)
}

// MarkdownToHTML renders Markdown with GFM extensions.
func MarkdownToHTML(md string) (string, error) {
	var buf bytes.Buffer
	converter := goldmark.New(goldmark.WithExtensions(extension.GFM))
	if err := converter.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type smtpSender struct {
	host string
	port int
	user string
	pass string
}

func (s *smtpSender) Send(ctx context.Context, to, subject, htmlBody, textBody string) error {
	msg := mail.NewMsg()
	if err := msg.From(s.user); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, textBody)
	msg.AddAlternativeString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(s.host,
		mail.WithPort(s.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.user),
		mail.WithPassword(s.pass),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// SubjectLine renders the required report subject format.
func SubjectLine(topic, reportFormat string) string {
	return fmt.Sprintf("AI Research Report: %s - %s", strings.TrimSpace(topic), strings.TrimSpace(reportFormat))
}
