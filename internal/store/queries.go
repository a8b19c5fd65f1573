package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const defaultListLimit = 50

func (s *sqliteStore) CreateRun(ctx context.Context, run Run) error {
	if run.ID == "" {
		return errors.New("run ID required")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := s.stmtCreateRun.ExecContext(ctx,
		run.ID, run.Topic, run.RecipientEmail, run.ReportFormat, run.NumResults,
		boolToInt(run.Success), run.ResearchOutput, run.SummaryOutput, run.EmailOutput,
		run.ErrorMessage, run.ElapsedSeconds, run.CreatedAt.Unix())
	return err
}

func (s *sqliteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.stmtGetRun.QueryRowContext(ctx, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run not found: %s", id)
		}
		return nil, err
	}
	return run, nil
}

func (s *sqliteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT run_id, topic, recipient_email, report_format, num_results, success,
       research_output, summary_output, email_output, error_message,
       elapsed_seconds, created_at
FROM runs ORDER BY created_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run       Run
		success   int
		createdAt int64
	)
	err := row.Scan(&run.ID, &run.Topic, &run.RecipientEmail, &run.ReportFormat,
		&run.NumResults, &success, &run.ResearchOutput, &run.SummaryOutput,
		&run.EmailOutput, &run.ErrorMessage, &run.ElapsedSeconds, &createdAt)
	if err != nil {
		return nil, err
	}
	run.Success = success != 0
	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
