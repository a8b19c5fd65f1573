package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahmedtarek-mel/prime-brief/internal/store"
	"github.com/jackc/pgx/v5"
)

const defaultListLimit = 50

func (s *Store) CreateRun(ctx context.Context, run store.Run) error {
	if run.ID == "" {
		return errors.New("run ID required")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := s.Pool.Exec(ctx, `
INSERT INTO runs(run_id, topic, recipient_email, report_format, num_results, success,
                 research_output, summary_output, email_output, error_message,
                 elapsed_seconds, created_at)
VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		run.ID, run.Topic, run.RecipientEmail, run.ReportFormat, run.NumResults,
		run.Success, run.ResearchOutput, run.SummaryOutput, run.EmailOutput,
		run.ErrorMessage, run.ElapsedSeconds, run.CreatedAt.Unix())
	return err
}

func (s *Store) GetRun(ctx context.Context, id string) (*store.Run, error) {
	row := s.Pool.QueryRow(ctx, `
SELECT run_id, topic, recipient_email, report_format, num_results, success,
       research_output, summary_output, email_output, error_message,
       elapsed_seconds, created_at
FROM runs WHERE run_id = $1`, id)
	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("run not found: %s", id)
		}
		return nil, err
	}
	return run, nil
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.Pool.Query(ctx, `
SELECT run_id, topic, recipient_email, report_format, num_results, success,
       research_output, summary_output, email_output, error_message,
       elapsed_seconds, created_at
FROM runs ORDER BY created_at DESC, run_id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.Run
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

func scanRun(row rowScanner) (*store.Run, error) {
	var (
		run       store.Run
		createdAt int64
	)
	err := row.Scan(&run.ID, &run.Topic, &run.RecipientEmail, &run.ReportFormat,
		&run.NumResults, &run.Success, &run.ResearchOutput, &run.SummaryOutput,
		&run.EmailOutput, &run.ErrorMessage, &run.ElapsedSeconds, &createdAt)
	if err != nil {
		return nil, err
	}
	run.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &run, nil
}
