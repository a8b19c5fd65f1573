// Package llm is a minimal OpenAI-compatible chat-completions client with
// function-calling support. Both supported providers (OpenAI, Gemini's
// OpenAI-compatible endpoint) speak this wire format.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

	defaultMaxRetries = 5
	requestTimeout    = 120 * time.Second
)

// Options configures a Client.
type Options struct {
	BaseURL     string // if empty, derived from the model prefix
	APIKey      string
	Model       string // e.g. "gpt-4-turbo-preview" or "gemini/gemini-2.5-flash"
	Temperature float64
	MaxRetries  uint64 // transient-failure retries per call; 0 means 5
	HTTPClient  *http.Client
}

// Client is safe for concurrent use; all fields are read-only after New.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxRetries  uint64
	http        *http.Client
}

// New builds a client. Models with a "gemini/" prefix route to the Gemini
// OpenAI-compatibility endpoint with the prefix stripped.
func New(opts Options) *Client {
	model := opts.Model
	base := opts.BaseURL
	if base == "" {
		if strings.HasPrefix(model, "gemini/") {
			base = geminiBaseURL
			model = strings.TrimPrefix(model, "gemini/")
		} else {
			base = openAIBaseURL
		}
	}
	retries := opts.MaxRetries
	if retries == 0 {
		retries = defaultMaxRetries
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: requestTimeout}
	}
	return &Client{
		baseURL:     strings.TrimSuffix(base, "/"),
		apiKey:      opts.APIKey,
		model:       model,
		temperature: opts.Temperature,
		maxRetries:  retries,
		http:        hc,
	}
}

// Model returns the effective model identifier (provider prefix stripped).
func (c *Client) Model() string { return c.model }

// Message is one chat turn.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	Name       string     `json:"name,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// ToolFunction describes a callable function exposed to the model.
type ToolFunction struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

// Tool wraps a function definition in the tools array.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolCallFunction is the invoked function name plus raw JSON arguments.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is a model-requested function invocation.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ChatRequest is the /chat/completions payload. Model and temperature are
// filled in by the client when unset.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Tools       []Tool    `json:"tools,omitempty"`
	ToolChoice  string    `json:"tool_choice,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type Choice struct {
	Index        int     `json:"index"`
	FinishReason string  `json:"finish_reason"`
	Message      Message `json:"message"`
}

type ChatResponse struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// StatusError is returned for non-2xx responses that are not retried away.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm api returned %d: %s", e.StatusCode, e.Body)
}

// Chat executes one completion request, retrying transient failures
// (network errors, 429, 5xx) with exponential backoff.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if req.Model == "" {
		req.Model = c.model
	}
	if req.Temperature == 0 {
		req.Temperature = c.temperature
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var out *ChatResponse
	op := func() error {
		resp, err := c.do(ctx, body)
		if err != nil {
			return err // network error: retryable
		}
		defer func() { _ = resp.Body.Close() }()
		if resp.StatusCode == http.StatusOK {
			var cr ChatResponse
			if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
				return backoff.Permanent(fmt.Errorf("decode response: %w", err))
			}
			out = &cr
			return nil
		}
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		serr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			slog.Warn("llm request will be retried", "status", resp.StatusCode)
			return serr
		}
		return backoff.Permanent(serr)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.maxRetries), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.http.Do(req)
}
