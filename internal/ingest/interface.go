// Package ingest turns raw city open-data extracts into per-neighbourhood
// JSON artifacts. Each dataset processor assigns its records to areas
// through the boundary store, accumulates counts and rates, and writes one
// artifact consumed by the scoring stage.
package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/openneighbourhoods/civic-cli/internal/categorize"
	"github.com/openneighbourhoods/civic-cli/internal/config"
	"github.com/openneighbourhoods/civic-cli/internal/ons"
)

// ErrInputMissing marks a dataset input file that does not exist. Optional
// datasets skip with a warning on it; required ones fail the run.
var ErrInputMissing = eris.New("input file missing")

// Env is the shared read-only context handed to each dataset processor.
type Env struct {
	Config *config.Config
	Areas  *ons.Store
	Now    time.Time

	catOnce sync.Once
	cat     *categorize.Categorizer
	catErr  error
}

// Categorizer returns the establishment categorizer, built from the
// configured override, rule, and reference files on first call. Only the
// food processor pays the reference-loading cost.
func (e *Env) Categorizer() (*categorize.Categorizer, error) {
	e.catOnce.Do(func() {
		e.cat, e.catErr = buildCategorizer(e.Config)
	})
	return e.cat, e.catErr
}

// Result carries the counters for one dataset run. Every dropped row shows
// up in exactly one counter; nothing is lost silently.
type Result struct {
	Dataset      string         `json:"dataset"`
	Processed    int            `json:"processed"`
	Skipped      int            `json:"skipped"`
	Geolocated   int            `json:"geolocated"`
	WardAssigned int            `json:"ward_assigned"`
	NameMatched  int            `json:"name_matched"`
	Unassigned   int            `json:"unassigned"`
	Areas        int            `json:"areas"`
	OutputPath   string         `json:"output_path"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Dataset is one ingestible source processed into a per-area artifact.
type Dataset interface {
	// Name returns the unique dataset identifier (also the run-log key).
	Name() string

	// OutputFile returns the artifact filename written under the output dir.
	OutputFile() string

	// Optional reports whether a missing input skips this dataset with a
	// warning instead of failing the run.
	Optional() bool

	// Process ingests the input file(s) and writes the artifact.
	Process(ctx context.Context, env *Env) (*Result, error)
}
