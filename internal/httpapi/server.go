package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ahmedtarek-mel/prime-brief/internal/agent"
	"github.com/ahmedtarek-mel/prime-brief/internal/config"
	"github.com/ahmedtarek-mel/prime-brief/internal/engine"
	"github.com/ahmedtarek-mel/prime-brief/internal/export"
	"github.com/ahmedtarek-mel/prime-brief/internal/pipeline"
	"github.com/ahmedtarek-mel/prime-brief/internal/store"
	"github.com/ahmedtarek-mel/prime-brief/internal/store/postgres"
	"github.com/ahmedtarek-mel/prime-brief/internal/ui"
	"github.com/ahmedtarek-mel/prime-brief/internal/validate"
	"github.com/ahmedtarek-mel/prime-brief/pkg/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// defaultMaxRequestBodyBytes is the default limit for request body size (1 MiB) to prevent OOM.
const defaultMaxRequestBodyBytes = 1 << 20

// defaultRunTimeout bounds a single background pipeline run.
const defaultRunTimeout = 30 * time.Minute

// limitBody wraps r.Body with http.MaxBytesReader so handlers cannot read more than maxBytes.
func limitBody(w http.ResponseWriter, r *http.Request, maxBytes int64) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
}

// bodyLimitMiddleware limits request body size for POST, PUT, PATCH to prevent OOM.
func bodyLimitMiddleware(maxBytes int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			limitBody(w, r, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware sets CORS headers for dev mode (UI dev server on a different origin).
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ServerOptions configures the HTTP server (home dir, listen addr, API key, DB, metrics).
type ServerOptions struct {
	Home           string
	Addr           string
	Dev            bool
	APIKey         string           // if set, require X-API-Key header or query api_key
	DBDriver       string           // "sqlite" (default) or "postgres"
	DBURL          string           // for postgres: connection string (or set DATABASE_URL env)
	MetricsHandler http.Handler     // if set, used for /metrics (e.g. OTel Prometheus handler)
	UseOtelHTTP    bool             // if true, wrap handler with otelhttp for request metrics
	Settings       *config.Settings // if nil, loaded from the environment
	Engine         engine.Engine    // if nil, the chat-completions crew engine
	RunTimeout     time.Duration    // per-run deadline; 0 means 30 minutes
}

// App holds the HTTP server, SSE hub, store, settings, and the active-run set.
type App struct {
	Server   *http.Server
	Hub      *SSEHub
	Store    store.Store
	Settings *config.Settings
	Engine   engine.Engine
	Home     string

	runTimeout time.Duration

	mu     sync.Mutex
	active map[string]activeRun
}

type activeRun struct {
	Topic     string
	StartedAt time.Time
}

// NewApp creates the HTTP app (server, hub, store) and registers all routes.
func NewApp(opts ServerOptions) (*App, error) {
	settings := opts.Settings
	if settings == nil {
		settings = config.Load()
	}
	eng := opts.Engine
	if eng == nil {
		eng = engine.NewCrewEngine()
	}
	runTimeout := opts.RunTimeout
	if runTimeout == 0 {
		runTimeout = defaultRunTimeout
	}

	var st store.Store
	var err error
	if opts.DBDriver == "postgres" {
		st, err = postgres.Open(opts.DBURL)
	} else {
		st, err = store.Open(opts.Home)
	}
	if err != nil {
		return nil, err
	}

	hub := NewSSEHub()
	app := &App{
		Hub:        hub,
		Store:      st,
		Settings:   settings,
		Engine:     eng,
		Home:       opts.Home,
		runTimeout: runTimeout,
		active:     make(map[string]activeRun),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"ok": true})
	})

	if opts.MetricsHandler != nil {
		mux.Handle("/metrics", opts.MetricsHandler)
	} else {
		mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			runs, _ := st.ListRuns(r.Context(), 0)
			var ok, failed int64
			for _, run := range runs {
				if run.Success {
					ok++
				} else {
					failed++
				}
			}
			_, _ = fmt.Fprintf(w, "# TYPE primebrief_runs_total gauge\n")
			_, _ = fmt.Fprintf(w, "primebrief_runs_total{outcome=\"success\"} %d\n", ok)
			_, _ = fmt.Fprintf(w, "primebrief_runs_total{outcome=\"failure\"} %d\n", failed)
		})
	}

	mux.HandleFunc("/config", func(w http.ResponseWriter, r *http.Request) {
		missing := settings.MissingKeys()
		if missing == nil {
			missing = []string{}
		}
		writeJSON(w, models.ConfigInfo{
			Provider:      string(settings.LLMProvider),
			Model:         settings.CurrentModel(),
			MissingKeys:   missing,
			ReportFormats: models.ReportFormats,
		})
	})

	mux.HandleFunc("/research", app.handleResearch)
	mux.HandleFunc("/runs", app.handleListRuns)
	mux.HandleFunc("/runs/", app.handleRun)
	mux.HandleFunc("/stream", hub.Handler())

	// UI: embedded static front end (go:embed).
	mux.Handle("/", ui.Handler())

	var handler http.Handler = mux
	handler = bodyLimitMiddleware(defaultMaxRequestBodyBytes, handler)
	if opts.Dev {
		handler = corsMiddleware(handler)
	}
	if opts.APIKey != "" {
		handler = apiKeyMiddleware(opts.APIKey, handler)
	}
	handler = requestLogMiddleware(handler)
	if opts.UseOtelHTTP {
		handler = otelhttp.NewHandler(handler, "primebrief")
	}
	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.RegisterOnShutdown(func() {
		_ = st.Close()
	})
	app.Server = srv
	return app, nil
}

// handleResearch validates the request and starts a background run. Responses:
// 202 with a run_id on success, 400 with the validator's message otherwise.
func (a *App) handleResearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body models.ResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	email := validate.Email(body.RecipientEmail)
	if !email.OK {
		writeJSONError(w, http.StatusBadRequest, email.Err)
		return
	}
	topic := validate.TopicDefault(body.Topic)
	if !topic.OK {
		writeJSONError(w, http.StatusBadRequest, topic.Err)
		return
	}
	if body.NumResults == 0 {
		body.NumResults = 5
	}
	if res := validate.NumResults(body.NumResults, models.MinNumResults, models.MaxNumResults); !res.OK {
		writeJSONError(w, http.StatusBadRequest, res.Err)
		return
	}

	runID := store.NewRunID()
	req := pipeline.Request{
		Topic:          topic.Value,
		RecipientEmail: email.Value,
		ReportFormat:   agent.ReportFormat(body.ReportFormat),
		NumResults:     body.NumResults,
		FocusAreas:     body.FocusAreas,
	}

	a.mu.Lock()
	a.active[runID] = activeRun{Topic: req.Topic, StartedAt: time.Now().UTC()}
	a.mu.Unlock()

	go a.executeRun(runID, req)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(models.ResearchAccepted{RunID: runID, Status: "started"})
}

// executeRun drives one pipeline run to completion and persists the result.
func (a *App) executeRun(runID string, req pipeline.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), a.runTimeout)
	defer cancel()

	svc := pipeline.NewService(a.Settings, a.Engine, config.RolesDir(a.Home))
	svc.Events = func(ev engine.Event) {
		a.Hub.PublishEngineEvent(runID, ev)
	}
	res := svc.Execute(ctx, req, func(percent int, message string) {
		a.Hub.PublishJSON(map[string]any{
			"type":    "progress",
			"run_id":  runID,
			"percent": percent,
			"message": message,
		})
	})

	run := store.Run{
		ID:             runID,
		Topic:          req.Topic,
		RecipientEmail: req.RecipientEmail,
		ReportFormat:   string(req.ReportFormat),
		NumResults:     req.NumResults,
		Success:        res.Success,
		ResearchOutput: res.ResearchOutput,
		SummaryOutput:  res.SummaryOutput,
		EmailOutput:    res.EmailOutput,
		ErrorMessage:   res.ErrorMessage,
		ElapsedSeconds: res.ElapsedSeconds,
		CreatedAt:      res.CreatedAt,
	}
	if run.ReportFormat == "" {
		run.ReportFormat = string(agent.FormatSummaryReport)
	}
	// Persist with a fresh context so a run-deadline expiry cannot lose the record.
	if err := a.Store.CreateRun(context.Background(), run); err != nil {
		slog.Error("persist run failed", "run_id", runID, "err", err)
	}

	a.mu.Lock()
	delete(a.active, runID)
	a.mu.Unlock()

	a.Hub.PublishJSON(map[string]any{
		"type":    "run_completed",
		"run_id":  runID,
		"success": res.Success,
		"error":   res.ErrorMessage,
	})
}

func (a *App) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, _ := fmt.Sscanf(l, "%d", &limit); n == 1 && limit > 0 {
			if limit > models.DefaultRunListLimit {
				limit = models.DefaultRunListLimit
			}
		}
	}
	runs, err := a.Store.ListRuns(r.Context(), limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []store.Run{}
	}
	writeJSON(w, runs)
}

// handleRun serves /runs/{id} and /runs/{id}/download/{artifact}.
func (a *App) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/runs/")
	parts := strings.Split(rest, "/")
	if len(parts) < 1 || parts[0] == "" {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	runID := parts[0]

	// In-flight runs are not persisted yet; report their status directly.
	a.mu.Lock()
	act, running := a.active[runID]
	a.mu.Unlock()

	if len(parts) == 1 || parts[1] == "" {
		if running {
			writeJSON(w, models.RunStatus{ID: runID, Status: "running", Topic: act.Topic, StartedAt: act.StartedAt})
			return
		}
		run, err := a.Store.GetRun(r.Context(), runID)
		if err != nil {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, run)
		return
	}

	if parts[1] != "download" || len(parts) < 3 {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	if running {
		writeJSONError(w, http.StatusConflict, "run still in progress")
		return
	}
	run, err := a.Store.GetRun(r.Context(), runID)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}

	var content, filename string
	switch parts[2] {
	case "research":
		content = run.ResearchOutput
		filename = export.ResearchFilename(run.Topic)
	case "summary":
		content = run.SummaryOutput
		filename = export.SummaryFilename(run.Topic)
	default:
		writeJSONError(w, http.StatusNotFound, "unknown artifact; use research or summary")
		return
	}
	if content == "" {
		writeJSONError(w, http.StatusNotFound, "no "+parts[2]+" output for this run")
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write([]byte(content))
}

// responseRecorder captures status code for logging and forwards Flusher if supported.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func apiKeyMiddleware(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/health" || path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		if key != apiKey {
			writeJSONError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		slog.Info("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeJSONError sends a JSON body {"error": "message"} with the given status code.
func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}
