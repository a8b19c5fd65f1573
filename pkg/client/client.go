// Package client is a typed Go client for the Prime Brief HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ahmedtarek-mel/prime-brief/pkg/models"
)

// Client talks to a Prime Brief server. Zero value is not usable; use New.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Options configures a Client.
type Options struct {
	BaseURL    string // e.g. "http://localhost:8787"
	APIKey     string // optional; sent as X-API-Key
	HTTPClient *http.Client
}

func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		http:    hc,
	}
}

// APIError is a non-2xx response with the server's error message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Message)
}

// Health reports whether the server answers its health check.
func (c *Client) Health(ctx context.Context) error {
	return c.getJSON(ctx, "/health", &struct {
		OK bool `json:"ok"`
	}{})
}

// Config fetches provider, model, and missing-configuration info.
func (c *Client) Config(ctx context.Context) (*models.ConfigInfo, error) {
	var info models.ConfigInfo
	if err := c.getJSON(ctx, "/config", &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// StartResearch validates and starts a run, returning its ID.
func (c *Client) StartResearch(ctx context.Context, req models.ResearchRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/research", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusAccepted {
		return "", apiError(resp)
	}
	var accepted models.ResearchAccepted
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return "", err
	}
	return accepted.RunID, nil
}

// GetRun fetches a completed run.
func (c *Client) GetRun(ctx context.Context, id string) (*models.Run, error) {
	var run models.Run
	if err := c.getJSON(ctx, "/runs/"+id, &run); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns fetches recent runs, newest first.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]models.Run, error) {
	path := "/runs"
	if limit > 0 {
		path = fmt.Sprintf("/runs?limit=%d", limit)
	}
	var runs []models.Run
	if err := c.getJSON(ctx, path, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// WaitForRun polls until the run completes or ctx is done.
func (c *Client) WaitForRun(ctx context.Context, id string, interval time.Duration) (*models.Run, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		run, err := c.GetRun(ctx, id)
		if err != nil {
			return nil, err
		}
		// In-flight runs come back without a created_at timestamp.
		if !run.CreatedAt.IsZero() {
			return run, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// DownloadResearch fetches the raw research report artifact.
func (c *Client) DownloadResearch(ctx context.Context, id string) ([]byte, error) {
	return c.download(ctx, id, "research")
}

// DownloadSummary fetches the formatted summary artifact.
func (c *Client) DownloadSummary(ctx context.Context, id string) ([]byte, error) {
	return c.download(ctx, id, "summary")
}

func (c *Client) download(ctx context.Context, id, artifact string) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/runs/"+id+"/download/"+artifact, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	return req, nil
}

func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(b, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(b))
	}
	return &APIError{StatusCode: resp.StatusCode, Message: body.Error}
}
