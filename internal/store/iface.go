package store

import "context"

// Store is the persistence interface for run history.
// Implementations: the in-package SQLite store and *postgres.Store.
type Store interface {
	// CreateRun persists a completed run (successful or failed).
	CreateRun(ctx context.Context, run Run) error
	// GetRun fetches one run by ID.
	GetRun(ctx context.Context, id string) (*Run, error)
	// ListRuns returns the most recent runs, newest first. limit <= 0 uses
	// the default of 50.
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	Close() error
}
