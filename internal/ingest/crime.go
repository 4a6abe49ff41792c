package ingest

import (
	"context"
	"io"

	"go.uber.org/zap"
)

// crimeMinFields is the narrowest usable row: year, category, neighbourhood.
const crimeMinFields = 3

// crimeRow is one parsed record of the police crime extract. The extract
// carries no coordinates, so attribution goes by neighbourhood name with a
// ward fallback.
type crimeRow struct {
	Year          int
	Category      string
	Neighbourhood string
	Ward          string
}

func parseCrimeRow(record []string, colIdx map[string]int) crimeRow {
	return crimeRow{
		Year:          parseYearOr(firstCol(record, colIdx, "year", "report_year", "occurred_date"), 0),
		Category:      firstCol(record, colIdx, "category", "offence_category", "offence", "offense"),
		Neighbourhood: firstCol(record, colIdx, "neighbourhood", "neighbourhood_name", "neighborhood", "ons_name"),
		Ward:          firstCol(record, colIdx, "ward", "ward_id"),
	}
}

// Crime aggregates the police crime extract into per-area totals, a top-N
// offence breakdown, a recent-window subtotal, and a rate per 1,000
// residents.
type Crime struct{}

func (d *Crime) Name() string       { return "crime" }
func (d *Crime) OutputFile() string { return "crime.json" }
func (d *Crime) Optional() bool     { return false }

func (d *Crime) Process(ctx context.Context, env *Env) (*Result, error) {
	log := zap.L().With(zap.String("dataset", d.Name()))
	path := env.Config.InputPath(env.Config.Crime.File)

	f, r, colIdx, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res := &Result{Dataset: d.Name()}
	acc := NewAccumulator()
	recentSince := env.Now.Year() - env.Config.Crime.RecentYears

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(record) < crimeMinFields {
			res.Skipped++
			continue
		}

		row := parseCrimeRow(record, colIdx)
		shares, how := resolveName(env.Areas, row.Neighbourhood, row.Ward)
		switch how {
		case attributedName:
			res.NameMatched++
		case attributedWard:
			res.WardAssigned++
		default:
			res.Unassigned++
			continue
		}

		recent := row.Year >= recentSince
		for id, w := range shares {
			acc.Add(id, w)
			acc.AddType(id, row.Category, w)
			if recent {
				acc.AddRecent(id, w)
			}
		}
		res.Processed++
	}

	metrics := acc.Finalize(env.Areas, env.Config.Crime.TopTypes)
	res.Areas = len(metrics)

	outPath, err := WriteArtifact(env.Config.Data.OutputDir, d.OutputFile(), metrics)
	if err != nil {
		return nil, err
	}
	res.OutputPath = outPath

	log.Info("dataset aggregated",
		zap.Int("processed", res.Processed),
		zap.Int("skipped", res.Skipped),
		zap.Int("name_matched", res.NameMatched),
		zap.Int("ward_assigned", res.WardAssigned),
		zap.Int("unassigned", res.Unassigned),
		zap.Int("areas", res.Areas))
	return res, nil
}
