package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/openneighbourhoods/civic-cli/internal/ingest"
	"github.com/openneighbourhoods/civic-cli/internal/ons"
	"github.com/openneighbourhoods/civic-cli/internal/store"
)

// initStore opens the run-log store for the configured driver.
func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}

	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.Path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// loadBoundaries builds the boundary store from the configured reference
// inputs. Areas and ward membership are required; the census extract is
// optional and its absence only costs demographic attributes.
func loadBoundaries() (*ons.Store, error) {
	if err := cfg.Validate("boundary"); err != nil {
		return nil, err
	}

	areas, err := ons.LoadAreas(cfg.InputPath(cfg.Boundary.AreasFile))
	if err != nil {
		return nil, err
	}
	if err := ons.LoadWards(areas, cfg.InputPath(cfg.Boundary.WardsFile)); err != nil {
		return nil, err
	}

	if cfg.Boundary.CensusFile != "" {
		path := cfg.InputPath(cfg.Boundary.CensusFile)
		if err := ons.LoadCensus(areas, path); err != nil {
			if eris.Is(err, fs.ErrNotExist) {
				zap.L().Warn("census file missing, demographic attributes unavailable",
					zap.String("path", path))
			} else {
				return nil, err
			}
		}
	}

	return areas, nil
}

// newIngestEnv assembles the shared processor environment.
func newIngestEnv(areas *ons.Store) *ingest.Env {
	return &ingest.Env{
		Config: cfg,
		Areas:  areas,
		Now:    time.Now(),
	}
}

// runDatasets validates, assembles the environment, and processes the
// named datasets sequentially, printing a summary for each completed one.
func runDatasets(ctx context.Context, names ...string) error {
	sections := names
	if len(sections) == 0 {
		sections = ingest.NewRegistry().AllNames()
	}
	for _, section := range sections {
		if err := cfg.Validate(section); err != nil {
			return err
		}
	}

	areas, err := loadBoundaries()
	if err != nil {
		return err
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck
	if err := st.Migrate(ctx); err != nil {
		return err
	}

	eng := ingest.NewEngine(st, ingest.NewRegistry(), newIngestEnv(areas))
	results, runErr := eng.Run(ctx, names)
	for _, res := range results {
		printRunSummary(res)
	}
	return runErr
}

// printRunSummary writes the per-dataset counters and an area ranking by
// the dataset's headline metric to stdout.
func printRunSummary(res *ingest.Result) {
	fmt.Printf("\n--- %s ---\n", res.Dataset)
	fmt.Printf("Processed:     %d\n", res.Processed)
	fmt.Printf("Skipped:       %d\n", res.Skipped)
	fmt.Printf("Geolocated:    %d\n", res.Geolocated)
	fmt.Printf("Ward-assigned: %d\n", res.WardAssigned)
	fmt.Printf("Name-matched:  %d\n", res.NameMatched)
	fmt.Printf("Unassigned:    %d\n", res.Unassigned)
	fmt.Printf("Areas:         %d\n", res.Areas)
	fmt.Printf("Artifact:      %s\n", res.OutputPath)

	printAreaRanking(res, cfg.Scoring.SummaryCount)
}

// headlineMetrics names the artifact field that ranks areas in the
// printed summary, per dataset.
var headlineMetrics = map[string]string{
	"crime":       "rate_per_1000",
	"requests":    "rate_per_1000",
	"development": "total",
	"food":        "establishments_per_1000",
}

type rankedArea struct {
	name  string
	value float64
}

// printAreaRanking reads the just-written artifact back and prints the
// top and bottom areas by the dataset's headline metric. Ranking is a
// courtesy view; any read problem is silently skipped.
func printAreaRanking(res *ingest.Result, n int) {
	field, ok := headlineMetrics[res.Dataset]
	if !ok || res.OutputPath == "" {
		return
	}

	data, err := os.ReadFile(res.OutputPath)
	if err != nil {
		return
	}
	var doc map[string]map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return
	}

	entries := make([]rankedArea, 0, len(doc))
	for id, area := range doc {
		name, _ := area["name"].(string)
		if name == "" {
			name = id
		}
		value, _ := area[field].(float64)
		entries = append(entries, rankedArea{name: name, value: value})
	}
	if len(entries) == 0 {
		return
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].value != entries[j].value {
			return entries[i].value > entries[j].value
		}
		return entries[i].name < entries[j].name
	})

	if n <= 0 {
		n = 5
	}
	if len(entries) <= 2*n {
		fmt.Printf("\nAreas by %s:\n", field)
		printRankedAreas(entries)
		return
	}
	fmt.Printf("\nTop %d by %s:\n", n, field)
	printRankedAreas(entries[:n])
	fmt.Printf("Bottom %d by %s:\n", n, field)
	printRankedAreas(entries[len(entries)-n:])
}

func printRankedAreas(entries []rankedArea) {
	for _, e := range entries {
		fmt.Printf("  %-32s %10.2f\n", e.name, e.value)
	}
}
