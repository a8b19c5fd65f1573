package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ahmedtarek-mel/prime-brief/internal/agent"
	"github.com/ahmedtarek-mel/prime-brief/internal/config"
	"github.com/ahmedtarek-mel/prime-brief/internal/engine"
	"github.com/ahmedtarek-mel/prime-brief/internal/pipeline"
	"github.com/ahmedtarek-mel/prime-brief/pkg/models"
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

func newTestApp(t *testing.T, eng engine.Engine, opts ServerOptions) *App {
	t.Helper()
	agent.ResetClient()
	opts.Home = t.TempDir()
	opts.Settings = testSettings()
	opts.Engine = eng
	if opts.RunTimeout == 0 {
		opts.RunTimeout = 5 * time.Second
	}
	app, err := NewApp(opts)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	t.Cleanup(func() { _ = app.Store.Close() })
	return app
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// waitForRun polls until the background run is persisted.
func waitForRun(t *testing.T, app *App, h http.Handler, id string) models.Run {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		app.mu.Lock()
		_, running := app.active[id]
		app.mu.Unlock()
		if !running {
			rec := doJSON(t, h, http.MethodGet, "/runs/"+id, "")
			if rec.Code == http.StatusOK {
				var run models.Run
				if err := json.Unmarshal(rec.Body.Bytes(), &run); err != nil {
					t.Fatalf("decode run: %v", err)
				}
				return run
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("run never completed")
	return models.Run{}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, &engine.StubEngine{}, ServerOptions{})
	rec := doJSON(t, app.Server.Handler, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok":true`) {
		t.Fatalf("health: %d %s", rec.Code, rec.Body.String())
	}
}

func TestConfigReportsMissingKeys(t *testing.T) {
	agent.ResetClient()
	s := &config.Settings{LLMProvider: config.ProviderGemini}
	app, err := NewApp(ServerOptions{Home: t.TempDir(), Settings: s, Engine: &engine.StubEngine{}})
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	defer func() { _ = app.Store.Close() }()

	rec := doJSON(t, app.Server.Handler, http.MethodGet, "/config", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("config: %d", rec.Code)
	}
	var info models.ConfigInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(info.MissingKeys) == 0 || info.MissingKeys[0] != "GOOGLE_API_KEY" {
		t.Fatalf("missing keys = %v", info.MissingKeys)
	}
	if len(info.ReportFormats) != 3 {
		t.Fatalf("formats = %v", info.ReportFormats)
	}
}

func TestResearchValidation(t *testing.T) {
	app := newTestApp(t, &engine.StubEngine{}, ServerOptions{})
	h := app.Server.Handler

	cases := []struct {
		body    string
		wantErr string
	}{
		{`{"topic":"electric vehicles","recipient_email":""}`, "Email address is required"},
		{`{"topic":"electric vehicles","recipient_email":"user@gmial.com"}`, "Did you mean 'user@gmail.com'?"},
		{`{"topic":"ab","recipient_email":"user@example.com"}`, "Topic must be at least 5 characters long"},
		{`{"topic":"<script>alert(1)</script> trends","recipient_email":"user@example.com"}`, "Topic contains invalid characters"},
		{`{"topic":"electric vehicles","recipient_email":"user@example.com","num_results":99}`, "Value must be at most 10"},
		{`not json`, "invalid json"},
	}
	for _, tc := range cases {
		rec := doJSON(t, h, http.MethodPost, "/research", tc.body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status %d", tc.body, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), tc.wantErr) {
			t.Fatalf("body %q: got %s, want %q", tc.body, rec.Body.String(), tc.wantErr)
		}
	}

	if rec := doJSON(t, h, http.MethodGet, "/research", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /research: %d", rec.Code)
	}
}

func TestResearchRunLifecycle(t *testing.T) {
	stub := &engine.StubEngine{Outputs: map[string]string{
		pipeline.StageResearch:  "# Findings\ndetails",
		pipeline.StageSummarize: "# Summary\nbullets",
		pipeline.StageDeliver:   "Email sent successfully",
	}}
	app := newTestApp(t, stub, ServerOptions{})
	h := app.Server.Handler

	events := app.Hub.Subscribe()
	defer app.Hub.Unsubscribe(events)

	rec := doJSON(t, h, http.MethodPost, "/research",
		`{"topic":"Electric vehicle battery trends 2025","recipient_email":"User@Example.com","report_format":"Summary Report","num_results":3}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /research: %d %s", rec.Code, rec.Body.String())
	}
	var accepted models.ResearchAccepted
	if err := json.Unmarshal(rec.Body.Bytes(), &accepted); err != nil || accepted.RunID == "" {
		t.Fatalf("accepted = %+v err = %v", accepted, err)
	}

	run := waitForRun(t, app, h, accepted.RunID)
	if !run.Success {
		t.Fatalf("run failed: %q", run.ErrorMessage)
	}
	if run.RecipientEmail != "user@example.com" {
		t.Fatalf("email not normalized: %q", run.RecipientEmail)
	}
	if run.SummaryOutput != "# Summary\nbullets" {
		t.Fatalf("summary = %q", run.SummaryOutput)
	}

	// Progress and completion events reached the hub.
	var sawProgress, sawCompleted bool
	for done := false; !done; {
		select {
		case msg := <-events:
			s := string(msg)
			if strings.Contains(s, `"type":"progress"`) {
				sawProgress = true
			}
			if strings.Contains(s, `"type":"run_completed"`) {
				sawCompleted = true
				done = true
			}
		case <-time.After(time.Second):
			done = true
		}
	}
	if !sawProgress || !sawCompleted {
		t.Fatalf("events: progress=%v completed=%v", sawProgress, sawCompleted)
	}

	// Listing includes the run.
	rec = doJSON(t, h, http.MethodGet, "/runs?limit=10", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), accepted.RunID) {
		t.Fatalf("GET /runs: %d %s", rec.Code, rec.Body.String())
	}

	// Downloads carry the sanitized filename.
	rec = doJSON(t, h, http.MethodGet, "/runs/"+accepted.RunID+"/download/research", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("download research: %d", rec.Code)
	}
	cd := rec.Header().Get("Content-Disposition")
	if !strings.Contains(cd, "research_report_Electric vehicle battery trends 2") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	if rec.Body.String() != "# Findings\ndetails" {
		t.Fatalf("download body = %q", rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodGet, "/runs/"+accepted.RunID+"/download/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("download summary: %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/runs/"+accepted.RunID+"/download/bogus", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("bogus artifact: %d", rec.Code)
	}
}

func TestFailedRunKeepsPartialDownloads(t *testing.T) {
	stub := &engine.StubEngine{
		Outputs:   map[string]string{pipeline.StageResearch: "partial findings"},
		FailStage: pipeline.StageSummarize,
	}
	app := newTestApp(t, stub, ServerOptions{})
	h := app.Server.Handler

	rec := doJSON(t, h, http.MethodPost, "/research",
		`{"topic":"battery trends","recipient_email":"user@example.com"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST: %d", rec.Code)
	}
	var accepted models.ResearchAccepted
	_ = json.Unmarshal(rec.Body.Bytes(), &accepted)

	run := waitForRun(t, app, h, accepted.RunID)
	if run.Success {
		t.Fatal("expected failed run")
	}
	if run.ResearchOutput != "partial findings" {
		t.Fatalf("research output = %q", run.ResearchOutput)
	}

	if rec := doJSON(t, h, http.MethodGet, "/runs/"+accepted.RunID+"/download/research", ""); rec.Code != http.StatusOK {
		t.Fatalf("research download: %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/runs/"+accepted.RunID+"/download/summary", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("summary download should 404: %d", rec.Code)
	}
}

func TestRunNotFound(t *testing.T) {
	app := newTestApp(t, &engine.StubEngine{}, ServerOptions{})
	rec := doJSON(t, app.Server.Handler, http.MethodGet, "/runs/no-such-run", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAPIKeyMiddleware(t *testing.T) {
	app := newTestApp(t, &engine.StubEngine{}, ServerOptions{APIKey: "secret"})
	h := app.Server.Handler

	// Health stays open.
	if rec := doJSON(t, h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/runs", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no key: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	req.Header.Set("X-API-Key", "secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("with key: %d", rec.Code)
	}

	// Query-param key also works (used by EventSource).
	if rec := doJSON(t, h, http.MethodGet, "/runs?api_key=secret", ""); rec.Code != http.StatusOK {
		t.Fatalf("query key: %d", rec.Code)
	}
}

func TestDevCORS(t *testing.T) {
	app := newTestApp(t, &engine.StubEngine{}, ServerOptions{Dev: true})
	req := httptest.NewRequest(http.MethodOptions, "/research", nil)
	rec := httptest.NewRecorder()
	app.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("OPTIONS: %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
}
