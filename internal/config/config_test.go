package config

import (
	"context"
	"path/filepath"
	"testing"
)

func TestResolveHomeOverride(t *testing.T) {
	h, err := ResolveHome("/tmp/pb-home")
	if err != nil {
		t.Fatalf("ResolveHome: %v", err)
	}
	if h != filepath.Clean("/tmp/pb-home") {
		t.Fatalf("got %q", h)
	}
}

func TestResolveHomeEnv(t *testing.T) {
	t.Setenv("PRIMEBRIEF_HOME", "/tmp/pb-env")
	h, err := ResolveHome("")
	if err != nil {
		t.Fatalf("ResolveHome: %v", err)
	}
	if h != filepath.Clean("/tmp/pb-env") {
		t.Fatalf("got %q", h)
	}
}

func TestHomeContext(t *testing.T) {
	ctx := WithHome(context.Background(), "/tmp/pb")
	h, ok := HomeFrom(ctx)
	if !ok || h != "/tmp/pb" {
		t.Fatalf("HomeFrom: %q %v", h, ok)
	}
	if MustHomeFrom(ctx) != "/tmp/pb" {
		t.Fatal("MustHomeFrom mismatch")
	}
}

func TestMustHomeFromPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic without home in context")
		}
	}()
	MustHomeFrom(context.Background())
}

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"GOOGLE_API_KEY", "OPENAI_API_KEY", "LLM_PROVIDER", "GEMINI_MODEL", "OPENAI_MODEL",
		"LLM_TEMPERATURE", "SERPER_API_KEY", "EMAIL_USER", "EMAIL_PASS", "SMTP_SERVER",
		"SMTP_PORT", "LOG_LEVEL", "ENABLE_MEMORY", "ENABLE_VERBOSE", "MAX_AGENT_ITERATIONS", "MAX_RPM",
	} {
		t.Setenv(k, "")
	}
	s := Load()
	if s.LLMProvider != ProviderGemini {
		t.Fatalf("provider = %q", s.LLMProvider)
	}
	if s.CurrentModel() != "gemini/gemini-2.5-flash" {
		t.Fatalf("model = %q", s.CurrentModel())
	}
	if s.SMTPServer != "smtp.gmail.com" || s.SMTPPort != 587 {
		t.Fatalf("smtp = %s:%d", s.SMTPServer, s.SMTPPort)
	}
	if s.MaxRPM != 4 {
		t.Fatalf("max rpm = %d", s.MaxRPM)
	}
	if s.Temperature != 0.7 {
		t.Fatalf("temperature = %f", s.Temperature)
	}
}

func TestMissingKeysNamesEach(t *testing.T) {
	s := &Settings{LLMProvider: ProviderGemini}
	got := s.MissingKeys()
	want := []string{"GOOGLE_API_KEY", "SERPER_API_KEY", "EMAIL_USER", "EMAIL_PASS"}
	if len(got) != len(want) {
		t.Fatalf("missing = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("missing[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	s = &Settings{LLMProvider: ProviderOpenAI, SerperAPIKey: "x", EmailUser: "u", EmailPass: "p"}
	got = s.MissingKeys()
	if len(got) != 1 || got[0] != "OPENAI_API_KEY" {
		t.Fatalf("missing = %v", got)
	}

	s = &Settings{LLMProvider: ProviderOpenAI, OpenAIAPIKey: "k", SerperAPIKey: "x", EmailUser: "u", EmailPass: "p"}
	if len(s.MissingKeys()) != 0 {
		t.Fatalf("expected no missing keys, got %v", s.MissingKeys())
	}
}

func TestCurrentAPIKeyByProvider(t *testing.T) {
	s := &Settings{LLMProvider: ProviderOpenAI, OpenAIAPIKey: "oa", GoogleAPIKey: "gg"}
	if s.CurrentAPIKey() != "oa" {
		t.Fatal("expected openai key")
	}
	s.LLMProvider = ProviderGemini
	if s.CurrentAPIKey() != "gg" {
		t.Fatal("expected google key")
	}
}
