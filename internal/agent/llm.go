package agent

import (
	"log/slog"
	"sync"

	"github.com/ahmedtarek-mel/prime-brief/internal/config"
	"github.com/ahmedtarek-mel/prime-brief/internal/llm"
)

var (
	sharedMu     sync.Mutex
	sharedClient *llm.Client
)

// SharedClient returns the process-wide LLM handle, constructing it from
// settings on first use. Subsequent calls return the identical instance until
// ResetClient. The returned client is read-only and safe for concurrent runs.
func SharedClient(s *config.Settings) *llm.Client {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if sharedClient == nil {
		slog.Info("initializing LLM", "provider", string(s.LLMProvider), "model", s.CurrentModel())
		sharedClient = llm.New(llm.Options{
			APIKey:      s.CurrentAPIKey(),
			Model:       s.CurrentModel(),
			Temperature: s.Temperature,
			MaxRetries:  5,
		})
	}
	return sharedClient
}

// ResetClient drops the cached handle so the next SharedClient call rebuilds
// it. Used by tests and after configuration changes.
func ResetClient() {
	sharedMu.Lock()
	sharedClient = nil
	sharedMu.Unlock()
}
