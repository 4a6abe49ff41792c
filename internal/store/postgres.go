package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the subset of pgxpool.Pool the run log uses. pgxmock satisfies
// it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// NewPostgres connects to PostgreSQL and verifies the connection.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS dataset_runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	dataset      TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	stats        JSONB,
	error        TEXT,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_dataset_runs_dataset ON dataset_runs(dataset);
CREATE INDEX IF NOT EXISTS idx_dataset_runs_status ON dataset_runs(status);
CREATE INDEX IF NOT EXISTS idx_dataset_runs_started_at ON dataset_runs(started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) StartRun(ctx context.Context, dataset string) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO dataset_runs (id, dataset, status, started_at) VALUES ($1, $2, $3, $4)`,
		id, dataset, string(StatusRunning), now,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: start run for %s", dataset)
	}
	return id, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, id string, stats *RunStats) error {
	var statsJSON []byte
	if stats != nil {
		var err error
		statsJSON, err = json.Marshal(stats)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal stats")
		}
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE dataset_runs SET status = $1, stats = $2, completed_at = $3 WHERE id = $4`,
		string(StatusCompleted), statsJSON, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, id string, errMsg string) error {
	return s.finishRun(ctx, id, StatusFailed, errMsg)
}

func (s *PostgresStore) SkipRun(ctx context.Context, id string, reason string) error {
	return s.finishRun(ctx, id, StatusSkipped, reason)
}

func (s *PostgresStore) finishRun(ctx context.Context, id string, status Status, msg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE dataset_runs SET status = $1, error = $2, completed_at = $3 WHERE id = $4`,
		string(status), msg, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: %s run %s", status, id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error) {
	query := `SELECT id, dataset, status, stats, error, started_at, completed_at
	          FROM dataset_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Dataset != "" {
		query += fmt.Sprintf(` AND dataset = $%d`, argIdx)
		args = append(args, filter.Dataset)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var r RunRecord
		var statsJSON []byte
		var errStr *string
		var completedAt *time.Time

		if err := rows.Scan(&r.ID, &r.Dataset, &r.Status, &statsJSON, &errStr, &r.StartedAt, &completedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if statsJSON != nil {
			r.Stats = &RunStats{}
			if err := json.Unmarshal(statsJSON, r.Stats); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal stats")
			}
		}
		if errStr != nil {
			r.Error = *errStr
		}
		r.CompletedAt = completedAt
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) LastSuccess(ctx context.Context, dataset string) (*time.Time, error) {
	var t time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT started_at FROM dataset_runs
		 WHERE dataset = $1 AND status = $2
		 ORDER BY started_at DESC LIMIT 1`,
		dataset, string(StatusCompleted),
	).Scan(&t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: last success for %s", dataset)
	}
	return &t, nil
}
