package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Provider selects which LLM backend the pipeline talks to.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// Settings holds all environment-backed configuration for the service.
// Load once at startup; the struct is read-only afterwards and safe to share.
type Settings struct {
	// LLM
	GoogleAPIKey string
	OpenAIAPIKey string
	LLMProvider  Provider
	GeminiModel  string
	OpenAIModel  string
	Temperature  float64

	// Search
	SerperAPIKey string

	// Email
	EmailUser  string
	EmailPass  string
	SMTPServer string
	SMTPPort   int

	// Application
	LogLevel       string
	EnableMemory   bool
	EnableVerbose  bool
	MaxIterations  int // global cap; 0 means use role defaults
	MaxRPM         int
}

// Load reads settings from the environment. A .env file in the working
// directory is merged in first when present (never overriding real env vars).
func Load() *Settings {
	_ = godotenv.Load()

	s := &Settings{
		GoogleAPIKey:  os.Getenv("GOOGLE_API_KEY"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		LLMProvider:   ProviderGemini,
		GeminiModel:   envOr("GEMINI_MODEL", "gemini/gemini-2.5-flash"),
		OpenAIModel:   envOr("OPENAI_MODEL", "gpt-4-turbo-preview"),
		Temperature:   envFloat("LLM_TEMPERATURE", 0.7),
		SerperAPIKey:  os.Getenv("SERPER_API_KEY"),
		EmailUser:     os.Getenv("EMAIL_USER"),
		EmailPass:     os.Getenv("EMAIL_PASS"),
		SMTPServer:    envOr("SMTP_SERVER", "smtp.gmail.com"),
		SMTPPort:      envInt("SMTP_PORT", 587),
		LogLevel:      envOr("LOG_LEVEL", "INFO"),
		EnableMemory:  envBool("ENABLE_MEMORY", true),
		EnableVerbose: envBool("ENABLE_VERBOSE", true),
		MaxIterations: envInt("MAX_AGENT_ITERATIONS", 0),
		MaxRPM:        envInt("MAX_RPM", 4),
	}
	if p := strings.ToLower(os.Getenv("LLM_PROVIDER")); p == string(ProviderOpenAI) {
		s.LLMProvider = ProviderOpenAI
	}
	if s.Temperature < 0 || s.Temperature > 2 {
		s.Temperature = 0.7
	}
	if s.MaxIterations < 0 || s.MaxIterations > 20 {
		s.MaxIterations = 0
	}
	if s.MaxRPM < 1 {
		s.MaxRPM = 4
	}
	return s
}

// CurrentModel returns the model identifier for the selected provider.
func (s *Settings) CurrentModel() string {
	if s.LLMProvider == ProviderOpenAI {
		return s.OpenAIModel
	}
	return s.GeminiModel
}

// CurrentAPIKey returns the API key for the selected provider.
func (s *Settings) CurrentAPIKey() string {
	if s.LLMProvider == ProviderOpenAI {
		return s.OpenAIAPIKey
	}
	return s.GoogleAPIKey
}

// MissingKeys reports required configuration that is absent, by env var name.
// An empty slice means the pipeline can run end to end.
func (s *Settings) MissingKeys() []string {
	var missing []string
	if s.CurrentAPIKey() == "" {
		if s.LLMProvider == ProviderOpenAI {
			missing = append(missing, "OPENAI_API_KEY")
		} else {
			missing = append(missing, "GOOGLE_API_KEY")
		}
	}
	if s.SerperAPIKey == "" {
		missing = append(missing, "SERPER_API_KEY")
	}
	if s.EmailUser == "" {
		missing = append(missing, "EMAIL_USER")
	}
	if s.EmailPass == "" {
		missing = append(missing, "EMAIL_PASS")
	}
	return missing
}

// SlogLevel maps the configured LOG_LEVEL to a slog.Level.
func (s *Settings) SlogLevel() slog.Level {
	switch strings.ToUpper(s.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING", "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}
