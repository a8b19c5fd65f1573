package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMigrationsAndRunCRUD(t *testing.T) {
	t.Parallel()

	home := filepath.Join(t.TempDir(), "home")
	st, err := Open(home)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = st.Close() }()

	ctx := context.Background()

	id := NewRunID()
	run := Run{
		ID:             id,
		Topic:          "EV battery trends",
		RecipientEmail: "user@example.com",
		ReportFormat:   "Summary Report",
		NumResults:     5,
		Success:        true,
		ResearchOutput: "findings",
		SummaryOutput:  "summary",
		EmailOutput:    "sent",
		ElapsedSeconds: 42.5,
		CreatedAt:      time.Now().UTC(),
	}
	if err := st.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	got, err := st.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Topic != run.Topic || !got.Success || got.SummaryOutput != "summary" {
		t.Fatalf("got %+v", got)
	}
	if got.ElapsedSeconds != 42.5 {
		t.Fatalf("elapsed = %f", got.ElapsedSeconds)
	}

	// Failed runs keep partial outputs.
	failed := Run{
		ID:             NewRunID(),
		Topic:          "x",
		RecipientEmail: "u@example.com",
		ReportFormat:   "Executive Brief",
		NumResults:     3,
		ResearchOutput: "partial findings",
		ErrorMessage:   `stage "summarize": boom`,
		CreatedAt:      time.Now().UTC().Add(time.Second),
	}
	if err := st.CreateRun(ctx, failed); err != nil {
		t.Fatalf("CreateRun failed run: %v", err)
	}

	runs, err := st.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("len = %d", len(runs))
	}
	// Newest first.
	if runs[0].ID != failed.ID {
		t.Fatalf("order: got %s first", runs[0].ID)
	}
	if runs[0].Success || runs[0].ResearchOutput != "partial findings" {
		t.Fatalf("failed run roundtrip: %+v", runs[0])
	}
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = st.Close() }()
	_, err = st.GetRun(context.Background(), "missing")
	if err == nil || !strings.Contains(err.Error(), "run not found") {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateRunRequiresID(t *testing.T) {
	t.Parallel()
	st, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = st.Close() }()
	if err := st.CreateRun(context.Background(), Run{}); err == nil {
		t.Fatal("expected error for empty ID")
	}
}

func TestOpenWithOptionsDSN(t *testing.T) {
	t.Parallel()
	dsn := filepath.Join(t.TempDir(), "runs.sqlite")
	st, err := OpenWithOptions(OpenOptions{DSN: dsn})
	if err != nil {
		t.Fatalf("OpenWithOptions: %v", err)
	}
	defer func() { _ = st.Close() }()

	if _, err := st.ListRuns(context.Background(), 10); err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
}

func TestOpenWithOptionsPostgresRedirects(t *testing.T) {
	t.Parallel()
	if _, err := OpenWithOptions(OpenOptions{Driver: "postgres"}); err == nil {
		t.Fatal("expected redirect error for postgres driver")
	}
}
