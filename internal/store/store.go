// Package store persists the dataset run log. Every processor run is
// recorded with its outcome and counters so operators can see what was
// ingested when, and why a dataset was skipped or failed.
package store

import (
	"context"
	"time"
)

// Status is the lifecycle state of one dataset run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// RunStats carries the per-run counters recorded on completion.
type RunStats struct {
	Processed    int            `json:"processed"`
	Skipped      int            `json:"skipped"`
	Geolocated   int            `json:"geolocated"`
	WardAssigned int            `json:"ward_assigned"`
	NameMatched  int            `json:"name_matched"`
	Unassigned   int            `json:"unassigned"`
	Areas        int            `json:"areas"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// RunRecord is one row of the run log. Error doubles as the skip reason
// for skipped runs.
type RunRecord struct {
	ID          string     `json:"id"`
	Dataset     string     `json:"dataset"`
	Status      Status     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Stats       *RunStats  `json:"stats,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Dataset string `json:"dataset,omitempty"`
	Status  Status `json:"status,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

// Store defines the run-log persistence interface.
type Store interface {
	// StartRun records the beginning of a dataset run and returns its id.
	StartRun(ctx context.Context, dataset string) (string, error)

	// CompleteRun marks a run as completed with its counters.
	CompleteRun(ctx context.Context, id string, stats *RunStats) error

	// FailRun marks a run as failed with an error message.
	FailRun(ctx context.Context, id string, errMsg string) error

	// SkipRun marks a run as skipped, recording why.
	SkipRun(ctx context.Context, id string, reason string) error

	// ListRuns returns runs matching the filter, most recent first.
	ListRuns(ctx context.Context, filter RunFilter) ([]RunRecord, error)

	// LastSuccess returns when the dataset last completed, nil if never.
	LastSuccess(ctx context.Context, dataset string) (*time.Time, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
