package ingest

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/openneighbourhoods/civic-cli/internal/store"
)

// Engine runs dataset processors and records every outcome in the run log.
type Engine struct {
	runlog store.Store
	reg    *Registry
	env    *Env
}

// NewEngine creates a processing engine.
func NewEngine(runlog store.Store, reg *Registry, env *Env) *Engine {
	return &Engine{
		runlog: runlog,
		reg:    reg,
		env:    env,
	}
}

// runOutcome classifies one dataset run for the engine's tally.
type runOutcome int

const (
	outcomeCompleted runOutcome = iota
	outcomeSkipped
	outcomeFailed
)

// runOne processes a single dataset and records its lifecycle in the run
// log. Run-log write failures are logged but never abort the run itself.
func (e *Engine) runOne(ctx context.Context, ds Dataset) (*Result, runOutcome) {
	log := zap.L().With(
		zap.String("component", "ingest.engine"),
		zap.String("dataset", ds.Name()),
	)

	log.Info("starting run")
	runID, err := e.runlog.StartRun(ctx, ds.Name())
	if err != nil {
		log.Error("failed to open run log entry", zap.Error(err))
		return nil, outcomeFailed
	}

	start := time.Now()
	result, err := ds.Process(ctx, e.env)
	elapsed := time.Since(start)

	if err != nil {
		if ds.Optional() && eris.Is(err, ErrInputMissing) {
			log.Warn("input missing, dataset skipped", zap.Error(err))
			if logErr := e.runlog.SkipRun(ctx, runID, err.Error()); logErr != nil {
				log.Error("failed to record run skip", zap.Error(logErr))
			}
			return nil, outcomeSkipped
		}

		log.Error("run failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		if logErr := e.runlog.FailRun(ctx, runID, err.Error()); logErr != nil {
			log.Error("failed to record run failure", zap.Error(logErr))
		}
		return nil, outcomeFailed
	}

	if err := e.runlog.CompleteRun(ctx, runID, runStats(result)); err != nil {
		log.Error("failed to record run completion", zap.Error(err))
	}

	log.Info("run complete",
		zap.Int("processed", result.Processed),
		zap.Int("unassigned", result.Unassigned),
		zap.Int("areas", result.Areas),
		zap.Duration("elapsed", elapsed),
	)
	return result, outcomeCompleted
}

// Run processes the named datasets (all registered ones when names is
// empty) sequentially in registration order. A missing optional input
// skips that dataset with a warning; any other failure is recorded and
// reported after the remaining datasets have run.
func (e *Engine) Run(ctx context.Context, names []string) ([]*Result, error) {
	log := zap.L().With(zap.String("component", "ingest.engine"))

	datasets, err := e.reg.Select(names)
	if err != nil {
		return nil, err
	}
	if len(datasets) == 0 {
		log.Info("no datasets selected")
		return nil, nil
	}
	log.Info("selected datasets", zap.Int("count", len(datasets)))

	var results []*Result
	var completed, skipped, failed int

	for _, ds := range datasets {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		result, outcome := e.runOne(ctx, ds)
		switch outcome {
		case outcomeCompleted:
			results = append(results, result)
			completed++
		case outcomeSkipped:
			skipped++
		case outcomeFailed:
			failed++
		}
	}

	log.Info("engine run complete",
		zap.Int("completed", completed),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	if failed > 0 {
		return results, eris.Errorf("engine: %d dataset run(s) failed", failed)
	}
	return results, nil
}

// RunParallel processes the named datasets concurrently with at most
// limit in flight. Processors own their accumulators and the boundary
// store is read-only during ingestion, so datasets never contend.
// Results come back in registration order; one dataset failing never
// cancels its siblings.
func (e *Engine) RunParallel(ctx context.Context, names []string, limit int) ([]*Result, error) {
	log := zap.L().With(zap.String("component", "ingest.engine"))

	datasets, err := e.reg.Select(names)
	if err != nil {
		return nil, err
	}
	if len(datasets) == 0 {
		log.Info("no datasets selected")
		return nil, nil
	}
	if limit <= 0 {
		limit = len(datasets)
	}
	log.Info("selected datasets",
		zap.Int("count", len(datasets)),
		zap.Int("limit", limit),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	ordered := make([]*Result, len(datasets))
	var skipped, failed atomic.Int64

	for i, ds := range datasets {
		i, ds := i, ds
		g.Go(func() error {
			select {
			case <-gctx.Done():
				failed.Add(1)
				return nil
			default:
			}

			result, outcome := e.runOne(gctx, ds)
			switch outcome {
			case outcomeCompleted:
				ordered[i] = result
			case outcomeSkipped:
				skipped.Add(1)
			case outcomeFailed:
				failed.Add(1)
			}
			return nil
		})
	}
	// Workers never return errors, so Wait only collects.
	_ = g.Wait()

	results := make([]*Result, 0, len(datasets))
	for _, r := range ordered {
		if r != nil {
			results = append(results, r)
		}
	}

	log.Info("engine run complete",
		zap.Int("completed", len(results)),
		zap.Int64("skipped", skipped.Load()),
		zap.Int64("failed", failed.Load()),
	)
	if n := failed.Load(); n > 0 {
		return results, eris.Errorf("engine: %d dataset run(s) failed", n)
	}
	return results, nil
}

// runStats converts an ingest.Result into the run-log stats record.
func runStats(r *Result) *store.RunStats {
	return &store.RunStats{
		Processed:    r.Processed,
		Skipped:      r.Skipped,
		Geolocated:   r.Geolocated,
		WardAssigned: r.WardAssigned,
		NameMatched:  r.NameMatched,
		Unassigned:   r.Unassigned,
		Areas:        r.Areas,
		Metadata:     r.Metadata,
	}
}
