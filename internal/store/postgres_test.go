package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresStore(mock), mock
}

func TestPostgresStore_StartRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO dataset_runs`).
		WithArgs(pgxmock.AnyArg(), "crime", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := s.StartRun(context.Background(), "crime")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE dataset_runs SET status`).
		WithArgs("completed", pgxmock.AnyArg(), pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteRun(context.Background(), "run-1", &RunStats{Processed: 42, Areas: 7})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE dataset_runs SET status`).
		WithArgs("completed", pgxmock.AnyArg(), pgxmock.AnyArg(), "ghost").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteRun(context.Background(), "ghost", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestPostgresStore_FailRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE dataset_runs SET status`).
		WithArgs("failed", "header unreadable", pgxmock.AnyArg(), "run-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.FailRun(context.Background(), "run-2", "header unreadable")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SkipRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE dataset_runs SET status`).
		WithArgs("skipped", "input file missing", pgxmock.AnyArg(), "run-3").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.SkipRun(context.Background(), "run-3", "input file missing")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	started := time.Now().UTC()
	completed := started.Add(2 * time.Second)
	skipReason := "input file missing"
	rows := pgxmock.NewRows([]string{"id", "dataset", "status", "stats", "error", "started_at", "completed_at"}).
		AddRow("run-1", "crime", Status("completed"), []byte(`{"processed":10,"areas":3}`), nil, started, &completed).
		AddRow("run-2", "food", Status("skipped"), nil, &skipReason, started, &completed)

	mock.ExpectQuery(`SELECT id, dataset, status`).
		WithArgs(100).
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, StatusCompleted, runs[0].Status)
	require.NotNil(t, runs[0].Stats)
	assert.Equal(t, 10, runs[0].Stats.Processed)
	assert.Equal(t, 3, runs[0].Stats.Areas)

	assert.Equal(t, StatusSkipped, runs[1].Status)
	assert.Nil(t, runs[1].Stats)
	assert.Equal(t, "input file missing", runs[1].Error)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_DatasetFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"id", "dataset", "status", "stats", "error", "started_at", "completed_at"})
	mock.ExpectQuery(`SELECT id, dataset, status`).
		WithArgs("requests", 50).
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), RunFilter{Dataset: "requests", Limit: 50})
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LastSuccess(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	started := time.Now().UTC().Add(-time.Hour)
	mock.ExpectQuery(`SELECT started_at FROM dataset_runs`).
		WithArgs("crime", "completed").
		WillReturnRows(pgxmock.NewRows([]string{"started_at"}).AddRow(started))

	ts, err := s.LastSuccess(context.Background(), "crime")
	require.NoError(t, err)
	require.NotNil(t, ts)
	assert.WithinDuration(t, started, *ts, time.Second)
}

func TestPostgresStore_LastSuccess_Never(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT started_at FROM dataset_runs`).
		WithArgs("development", "completed").
		WillReturnError(pgx.ErrNoRows)

	ts, err := s.LastSuccess(context.Background(), "development")
	require.NoError(t, err)
	assert.Nil(t, ts)
}
