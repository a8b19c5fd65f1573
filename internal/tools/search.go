package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	serperEndpoint    = "https://google.serper.dev/search"
	searchTimeout     = 30 * time.Second
	maxQueryLength    = 500
	maxRelatedResults = 5
)

// SearchTool queries the Serper API and formats results for the model.
type SearchTool struct {
	APIKey     string
	MaxResults int
	Endpoint   string       // overridable for tests; defaults to Serper
	HTTPClient *http.Client // defaults to a 30s-timeout client
}

// NewSearchTool builds a search tool capped at maxResults organic hits.
func NewSearchTool(apiKey string, maxResults int) *SearchTool {
	if maxResults <= 0 {
		maxResults = 5
	}
	return &SearchTool{APIKey: apiKey, MaxResults: maxResults}
}

func (s *SearchTool) Name() string { return "web_search" }

func (s *SearchTool) Description() string {
	return "Search the internet for current information on any topic. " +
		"Returns relevant web results with titles, links, and snippets."
}

func (s *SearchTool) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"search_query": map[string]any{
				"type":        "string",
				"description": "The search query to execute",
				"minLength":   1,
				"maxLength":   maxQueryLength,
			},
		},
		"required": []string{"search_query"},
	}
}

type serperResult struct {
	KnowledgeGraph *struct {
		Title       string `json:"title"`
		Type        string `json:"type"`
		Description string `json:"description"`
	} `json:"knowledgeGraph"`
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
	RelatedSearches []struct {
		Query string `json:"query"`
	} `json:"relatedSearches"`
}

// Invoke runs the search. All failure modes return a "Search failed:" message
// instead of an error so the agent loop can observe and recover.
func (s *SearchTool) Invoke(ctx context.Context, args map[string]any) string {
	query, _ := args["search_query"].(string)
	query = strings.TrimSpace(query)
	if query == "" || len(query) > maxQueryLength {
		return "Search failed: query must be between 1 and 500 characters"
	}
	if s.APIKey == "" {
		slog.Error("serper API key not configured")
		return "Search failed: Serper API key not configured"
	}

	slog.Info("searching", "query", truncate(query, 50))

	payload, err := json.Marshal(map[string]any{"q": query, "num": s.MaxResults})
	if err != nil {
		return fmt.Sprintf("Search failed: %v", err)
	}
	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = serperEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Sprintf("Search failed: %v", err)
	}
	req.Header.Set("X-API-KEY", s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: searchTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(err) {
			slog.Error("search request timed out")
			return "Search failed: Request timed out. Please try again."
		}
		slog.Error("network error during search", "err", err)
		return "Search failed: Network error. Please check your connection."
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		slog.Error("http error during search", "status", resp.StatusCode)
		if resp.StatusCode == http.StatusForbidden {
			return "Search failed: Invalid API key or quota exceeded"
		}
		return fmt.Sprintf("Search failed: HTTP error %d", resp.StatusCode)
	}

	var results serperResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return fmt.Sprintf("Search failed: %v", err)
	}
	slog.Info("search complete", "results", len(results.Organic))
	return s.format(results)
}

func (s *SearchTool) format(results serperResult) string {
	var b strings.Builder

	if kg := results.KnowledgeGraph; kg != nil {
		fmt.Fprintf(&b, "**Knowledge Graph**\nTitle: %s\nType: %s\nDescription: %s\n\n",
			orNA(kg.Title), orNA(kg.Type), orNA(kg.Description))
	}

	if len(results.Organic) > 0 {
		b.WriteString("**Search Results**\n")
		n := len(results.Organic)
		if n > s.MaxResults {
			n = s.MaxResults
		}
		for i := 0; i < n; i++ {
			r := results.Organic[i]
			fmt.Fprintf(&b, "\n**%d. %s**\nLink: %s\n%s\n", i+1, orNA(r.Title), orNA(r.Link), orNA(r.Snippet))
		}
	}

	if len(results.RelatedSearches) > 0 {
		terms := make([]string, 0, maxRelatedResults)
		for i, r := range results.RelatedSearches {
			if i == maxRelatedResults {
				break
			}
			terms = append(terms, r.Query)
		}
		fmt.Fprintf(&b, "\n**Related Searches**: %s\n", strings.Join(terms, ", "))
	}

	if b.Len() == 0 {
		return "No results found for this search query."
	}
	return b.String()
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	var ue *url.Error
	if errors.As(err, &ue) && ue.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
