package ingest

import (
	"context"
	"io"
	"io/fs"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/openneighbourhoods/civic-cli/internal/categorize"
	"github.com/openneighbourhoods/civic-cli/internal/config"
)

const (
	businessMinFields   = 2
	inspectionMinFields = 2
)

// foodBusiness is one establishment with its joined inspection history.
// Inspections and violations arrive in separate extracts linked by
// foreign key and are folded in before aggregation.
type foodBusiness struct {
	ID       string
	Name     string
	Lat      float64
	Lng      float64
	Ward     string
	Category categorize.Category

	shares      map[string]float64
	inspections int
	violations  int
}

func parseBusinessRow(record []string, colIdx map[string]int) foodBusiness {
	lat, lng := parseLatLng(
		firstCol(record, colIdx, "lat", "latitude", "y"),
		firstCol(record, colIdx, "lng", "lon", "longitude", "x"))
	return foodBusiness{
		ID:   firstCol(record, colIdx, "id", "business_id"),
		Name: sanitizeUTF8(firstCol(record, colIdx, "name", "business_name")),
		Lat:  lat,
		Lng:  lng,
		Ward: firstCol(record, colIdx, "ward", "ward_id"),
	}
}

// FoodAreaMetrics is the per-area output of the food-safety aggregation.
// AvgViolationsPerInspection is computed over inspected businesses only;
// an area whose establishments were never inspected reports 0 inspections
// and the scorer treats its average as missing, not perfect.
type FoodAreaMetrics struct {
	Name                       string             `json:"name"`
	Establishments             float64            `json:"establishments"`
	Categories                 map[string]float64 `json:"categories,omitempty"`
	Uncategorized              float64            `json:"uncategorized"`
	Inspections                float64            `json:"inspections"`
	Violations                 float64            `json:"violations"`
	AvgViolationsPerInspection float64            `json:"avg_violations_per_inspection"`
	EstablishmentsPer1000      float64            `json:"establishments_per_1000"`
}

// Food joins the three linked food-safety extracts (businesses,
// inspections, violations), categorizes each establishment, and
// aggregates per area.
type Food struct{}

func (d *Food) Name() string       { return "food" }
func (d *Food) OutputFile() string { return "food.json" }
func (d *Food) Optional() bool     { return true }

func (d *Food) Process(ctx context.Context, env *Env) (*Result, error) {
	log := zap.L().With(zap.String("dataset", d.Name()))

	cat, err := env.Categorizer()
	if err != nil {
		return nil, err
	}

	res := &Result{Dataset: d.Name()}
	businesses, err := d.loadBusinesses(env, cat, res)
	if err != nil {
		return nil, err
	}

	inspectionOwner, err := d.loadInspections(env, businesses, res)
	if err != nil {
		return nil, err
	}
	if err := d.loadViolations(env, businesses, inspectionOwner, res); err != nil {
		return nil, err
	}

	metrics := d.aggregate(env, businesses)
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

// loadBusinesses reads the establishment extract, categorizes each row,
// and resolves its area attribution. Unassignable businesses stay in the
// map so inspections can still join, but carry no shares.
func (d *Food) loadBusinesses(env *Env, cat *categorize.Categorizer, res *Result) (map[string]*foodBusiness, error) {
	path := env.Config.InputPath(env.Config.Food.BusinessesFile)
	f, r, colIdx, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	categorized := 0
	businesses := make(map[string]*foodBusiness)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(record) < businessMinFields {
			res.Skipped++
			continue
		}

		b := parseBusinessRow(record, colIdx)
		if b.ID == "" || b.Name == "" {
			res.Skipped++
			continue
		}

		match := cat.Categorize(b.Name, b.Lat, b.Lng)
		b.Category = match.Category
		if match.Source != categorize.SourceNone {
			categorized++
		}

		shares, how := resolveCoord(env.Areas, b.Lat, b.Lng, b.Ward)
		switch how {
		case attributedCoord:
			res.Geolocated++
		case attributedWard:
			res.WardAssigned++
		default:
			res.Unassigned++
		}
		b.shares = shares

		businesses[b.ID] = &b
		if shares != nil {
			res.Processed++
		}
	}

	res.Metadata = map[string]any{
		"businesses":  len(businesses),
		"categorized": categorized,
	}
	return businesses, nil
}

// loadInspections joins inspections onto businesses and returns the
// inspection→business ownership map the violations join needs.
func (d *Food) loadInspections(env *Env, businesses map[string]*foodBusiness, res *Result) (map[string]string, error) {
	path := env.Config.InputPath(env.Config.Food.InspectionsFile)
	f, r, colIdx, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	orphans := 0
	total := 0
	owner := make(map[string]string)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(record) < inspectionMinFields {
			res.Skipped++
			continue
		}

		inspectionID := firstCol(record, colIdx, "inspection_id", "id")
		businessID := firstCol(record, colIdx, "business_id")
		b, ok := businesses[businessID]
		if inspectionID == "" || !ok {
			orphans++
			res.Skipped++
			continue
		}

		owner[inspectionID] = businessID
		b.inspections++
		total++
	}

	res.Metadata["inspections"] = total
	res.Metadata["orphan_inspections"] = orphans
	return owner, nil
}

// loadViolations joins violation rows onto businesses through the
// inspection ownership map. One row is one violation.
func (d *Food) loadViolations(env *Env, businesses map[string]*foodBusiness, owner map[string]string, res *Result) error {
	path := env.Config.InputPath(env.Config.Food.ViolationsFile)
	f, r, colIdx, err := openCSV(path)
	if err != nil {
		return err
	}
	defer f.Close()

	orphans := 0
	total := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Skipped++
			continue
		}

		inspectionID := firstCol(record, colIdx, "inspection_id")
		businessID, ok := owner[inspectionID]
		if !ok {
			orphans++
			res.Skipped++
			continue
		}

		businesses[businessID].violations++
		total++
	}

	res.Metadata["violations"] = total
	res.Metadata["orphan_violations"] = orphans
	return nil
}

// aggregate folds the joined businesses into per-area metrics. The
// violation average divides weighted violation sums by weighted
// inspection sums, so a business with no inspections contributes to the
// establishment count without dragging the average toward zero.
func (d *Food) aggregate(env *Env, businesses map[string]*foodBusiness) map[string]*FoodAreaMetrics {
	type foodTally struct {
		establishments float64
		uncategorized  float64
		inspections    float64
		violations     float64
		categories     map[string]float64
	}
	tallies := make(map[string]*foodTally)

	for _, b := range businesses {
		for id, w := range b.shares {
			t, ok := tallies[id]
			if !ok {
				t = &foodTally{categories: make(map[string]float64)}
				tallies[id] = t
			}
			t.establishments += w
			if b.Category == "" {
				t.uncategorized += w
			} else {
				t.categories[string(b.Category)] += w
			}
			t.inspections += w * float64(b.inspections)
			t.violations += w * float64(b.violations)
		}
	}

	out := make(map[string]*FoodAreaMetrics, len(tallies))
	for id, t := range tallies {
		area, ok := env.Areas.Get(id)
		if !ok {
			continue
		}
		m := &FoodAreaMetrics{
			Name:           area.Name,
			Establishments: math.Round(t.establishments),
			Uncategorized:  math.Round(t.uncategorized),
			Inspections:    math.Round(t.inspections),
			Violations:     math.Round(t.violations),
		}
		if len(t.categories) > 0 {
			m.Categories = make(map[string]float64, len(t.categories))
			for label, count := range t.categories {
				m.Categories[label] = math.Round(count)
			}
		}
		if t.inspections > 0 {
			m.AvgViolationsPerInspection = round2(t.violations / t.inspections)
		}
		if area.Population > 0 {
			m.EstablishmentsPer1000 = round2(t.establishments / area.Population * 1000)
		}
		out[id] = m
	}
	return out
}

// buildCategorizer assembles the cascade from configuration. Missing
// override and rule files fall back to the built-in tables; missing
// reference extracts degrade the crossref stage with a warning. A file
// that exists but cannot be parsed is a configuration error and fatal.
func buildCategorizer(cfg *config.Config) (*categorize.Categorizer, error) {
	cc := cfg.Categorize

	overrides := categorize.DefaultOverrides()
	if cc.OverridesFile != "" {
		path := cfg.InputPath(cc.OverridesFile)
		o, err := categorize.LoadOverrides(path)
		switch {
		case err == nil:
			overrides = o
		case eris.Is(err, fs.ErrNotExist):
			zap.L().Debug("no override file", zap.String("path", path))
		default:
			return nil, err
		}
	}

	rules := categorize.DefaultRules()
	if cc.RulesFile != "" {
		path := cfg.InputPath(cc.RulesFile)
		loaded, err := categorize.LoadRules(path)
		switch {
		case err == nil:
			rules = loaded
		case eris.Is(err, fs.ErrNotExist):
			zap.L().Debug("no rules file, using built-in rules", zap.String("path", path))
		default:
			return nil, err
		}
	}

	var refs []categorize.Reference
	if cc.OSMFile != "" {
		path := cfg.InputPath(cc.OSMFile)
		osm, err := categorize.LoadOSMReferences(path)
		switch {
		case err == nil:
			refs = append(refs, osm...)
		case eris.Is(err, fs.ErrNotExist):
			zap.L().Warn("open-map reference missing, crossref matching degraded",
				zap.String("path", path))
		default:
			return nil, err
		}
	}
	if cc.GroceryFile != "" {
		path := cfg.InputPath(cc.GroceryFile)
		grocery, err := categorize.LoadGroceryReferences(path)
		switch {
		case err == nil:
			refs = append(refs, grocery...)
		case eris.Is(err, fs.ErrNotExist):
			zap.L().Warn("grocery reference missing, crossref matching degraded",
				zap.String("path", path))
		default:
			return nil, err
		}
	}

	return categorize.New(overrides, rules, refs, cc.CoordTolerance, cc.SimilarityThreshold)
}
