package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSearchMissingKey(t *testing.T) {
	t.Parallel()
	s := NewSearchTool("", 5)
	out := s.Invoke(context.Background(), map[string]any{"search_query": "golang"})
	if out != "Search failed: Serper API key not configured" {
		t.Fatalf("out = %q", out)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	t.Parallel()
	s := NewSearchTool("k", 5)
	if out := s.Invoke(context.Background(), map[string]any{"search_query": "  "}); !strings.HasPrefix(out, "Search failed:") {
		t.Fatalf("out = %q", out)
	}
	long := strings.Repeat("q", 501)
	if out := s.Invoke(context.Background(), map[string]any{"search_query": long}); !strings.HasPrefix(out, "Search failed:") {
		t.Fatalf("long query accepted: %q", out)
	}
}

func TestSearchFormatsResults(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-KEY") != "k1" {
			t.Errorf("missing api key header")
		}
		_, _ = w.Write([]byte(`{
			"knowledgeGraph": {"title": "Go", "type": "Language", "description": "A programming language"},
			"organic": [
				{"title": "Go homepage", "link": "https://go.dev", "snippet": "Build simple software"},
				{"title": "Go spec", "link": "https://go.dev/ref/spec", "snippet": "Language spec"},
				{"title": "Extra", "link": "https://example.com", "snippet": "Over the cap"}
			],
			"relatedSearches": [{"query": "golang tutorial"}, {"query": "go generics"}]
		}`))
	}))
	defer ts.Close()

	s := NewSearchTool("k1", 2)
	s.Endpoint = ts.URL
	out := s.Invoke(context.Background(), map[string]any{"search_query": "golang"})

	for _, want := range []string{
		"**Knowledge Graph**",
		"Title: Go",
		"**1. Go homepage**",
		"**2. Go spec**",
		"**Related Searches**: golang tutorial, go generics",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Extra") {
		t.Fatal("organic results not capped at MaxResults")
	}
}

func TestSearch403(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	s := NewSearchTool("k", 5)
	s.Endpoint = ts.URL
	out := s.Invoke(context.Background(), map[string]any{"search_query": "golang"})
	if out != "Search failed: Invalid API key or quota exceeded" {
		t.Fatalf("out = %q", out)
	}
}

func TestSearchOtherHTTPError(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	s := NewSearchTool("k", 5)
	s.Endpoint = ts.URL
	out := s.Invoke(context.Background(), map[string]any{"search_query": "golang"})
	if out != "Search failed: HTTP error 502" {
		t.Fatalf("out = %q", out)
	}
}

func TestSearchTimeout(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer ts.Close()

	s := NewSearchTool("k", 5)
	s.Endpoint = ts.URL
	s.HTTPClient = &http.Client{Timeout: 20 * time.Millisecond}
	out := s.Invoke(context.Background(), map[string]any{"search_query": "golang"})
	if out != "Search failed: Request timed out. Please try again." {
		t.Fatalf("out = %q", out)
	}
}

func TestSearchNetworkError(t *testing.T) {
	t.Parallel()
	s := NewSearchTool("k", 5)
	s.Endpoint = "http://127.0.0.1:1" // nothing listens here
	out := s.Invoke(context.Background(), map[string]any{"search_query": "golang"})
	if out != "Search failed: Network error. Please check your connection." {
		t.Fatalf("out = %q", out)
	}
}

func TestSearchEmptyResults(t *testing.T) {
	t.Parallel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	s := NewSearchTool("k", 5)
	s.Endpoint = ts.URL
	out := s.Invoke(context.Background(), map[string]any{"search_query": "golang"})
	if out != "No results found for this search query." {
		t.Fatalf("out = %q", out)
	}
}
