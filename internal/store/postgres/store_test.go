package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/ahmedtarek-mel/prime-brief/internal/store"
)

func TestOpen_skipIfNoDatabaseURL(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping postgres test")
	}
	st, err := Open(dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = st.Close() }()

	ctx := context.Background()
	id := store.NewRunID()
	if err := st.CreateRun(ctx, store.Run{ID: id, Topic: "t", RecipientEmail: "u@example.com", ReportFormat: "Summary Report"}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	got, err := st.GetRun(ctx, id)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Topic != "t" {
		t.Fatalf("got %+v", got)
	}
	runs, err := st.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) == 0 {
		t.Fatal("runs should not be empty")
	}
}
