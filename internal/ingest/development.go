package ingest

import (
	"context"
	"io"
	"math"

	"go.uber.org/zap"
)

// devMinFields is the narrowest usable row: application number, date,
// type, status.
const devMinFields = 4

// devRow is one parsed development-application record.
type devRow struct {
	AppNumber string
	Year      int
	Type      string
	Status    string
	Ward      string
	Lat       float64
	Lng       float64
	Active    bool
	Approved  bool
}

func parseDevRow(record []string, colIdx map[string]int) devRow {
	lat, lng := parseLatLng(
		firstCol(record, colIdx, "lat", "latitude", "y"),
		firstCol(record, colIdx, "lng", "lon", "longitude", "x"))
	return devRow{
		AppNumber: firstCol(record, colIdx, "app_number", "application_number", "application"),
		Year:      parseYearOr(firstCol(record, colIdx, "date", "received_date", "submitted"), 0),
		Type:      firstCol(record, colIdx, "type", "application_type"),
		Status:    firstCol(record, colIdx, "status"),
		Ward:      firstCol(record, colIdx, "ward", "ward_id"),
		Lat:       lat,
		Lng:       lng,
		Active:    parseBoolYN(firstCol(record, colIdx, "active", "is_active")),
		Approved:  parseBoolYN(firstCol(record, colIdx, "approved", "is_approved")),
	}
}

// DevelopmentAreaMetrics extends the common per-area output with the
// active and approved subtotals. ApprovalShare is approved over total,
// the headline growth signal.
type DevelopmentAreaMetrics struct {
	AreaMetrics
	Active        float64 `json:"active"`
	Approved      float64 `json:"approved"`
	ApprovalShare float64 `json:"approval_share"`
}

// Development aggregates development applications per area. The extract
// is published separately from the rest, so a missing file skips this
// processor instead of failing the run.
type Development struct{}

func (d *Development) Name() string       { return "development" }
func (d *Development) OutputFile() string { return "development.json" }
func (d *Development) Optional() bool     { return true }

func (d *Development) Process(ctx context.Context, env *Env) (*Result, error) {
	log := zap.L().With(zap.String("dataset", d.Name()))
	path := env.Config.InputPath(env.Config.Development.File)

	f, r, colIdx, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res := &Result{Dataset: d.Name()}
	acc := NewAccumulator()
	active := NewAccumulator()
	approved := NewAccumulator()
	recentSince := env.Now.Year() - env.Config.Development.RecentYears

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(record) < devMinFields {
			res.Skipped++
			continue
		}

		row := parseDevRow(record, colIdx)
		shares, how := resolveCoord(env.Areas, row.Lat, row.Lng, row.Ward)
		switch how {
		case attributedCoord:
			res.Geolocated++
		case attributedWard:
			res.WardAssigned++
		default:
			res.Unassigned++
			continue
		}

		recent := row.Year >= recentSince
		for id, w := range shares {
			acc.Add(id, w)
			acc.AddType(id, row.Type, w)
			if recent {
				acc.AddRecent(id, w)
			}
			if row.Active {
				active.Add(id, w)
			}
			if row.Approved {
				approved.Add(id, w)
			}
		}
		res.Processed++
	}

	base := acc.Finalize(env.Areas, env.Config.Development.TopTypes)
	raw := acc.Tallies()
	activeTallies := active.Tallies()
	approvedTallies := approved.Tallies()

	metrics := make(map[string]*DevelopmentAreaMetrics, len(base))
	for id, m := range base {
		out := &DevelopmentAreaMetrics{AreaMetrics: *m}
		if t, ok := activeTallies[id]; ok {
			out.Active = math.Round(t.Total)
		}
		if t, ok := approvedTallies[id]; ok {
			out.Approved = math.Round(t.Total)
			if total := raw[id].Total; total > 0 {
				out.ApprovalShare = round2(t.Total / total)
			}
		}
		metrics[id] = out
	}
	res.Areas = len(metrics)

	outPath, err := WriteArtifact(env.Config.Data.OutputDir, d.OutputFile(), metrics)
	if err != nil {
		return nil, err
	}
	res.OutputPath = outPath

	log.Info("dataset aggregated",
		zap.Int("processed", res.Processed),
		zap.Int("skipped", res.Skipped),
		zap.Int("geolocated", res.Geolocated),
		zap.Int("ward_assigned", res.WardAssigned),
		zap.Int("unassigned", res.Unassigned),
		zap.Int("areas", res.Areas))
	return res, nil
}
