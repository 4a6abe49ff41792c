package ingest

import (
	"context"
	"io"
	"math"
	"strings"

	"go.uber.org/zap"
)

// requestsMinFields is the narrowest usable row: type, lat, lng.
const requestsMinFields = 3

// requestRow is one parsed 311 service-request record.
type requestRow struct {
	Type        string
	Description string
	Lat         float64
	Lng         float64
	Ward        string
	Year        int
}

func parseRequestRow(record []string, colIdx map[string]int) requestRow {
	lat, lng := parseLatLng(
		firstCol(record, colIdx, "lat", "latitude", "y"),
		firstCol(record, colIdx, "lng", "lon", "longitude", "x"))
	return requestRow{
		Type:        firstCol(record, colIdx, "type", "request_type", "service_request_type"),
		Description: firstCol(record, colIdx, "description", "details"),
		Lat:         lat,
		Lng:         lng,
		Ward:        firstCol(record, colIdx, "ward", "ward_id"),
		Year:        parseYearOr(firstCol(record, colIdx, "date", "opened", "created_date"), 0),
	}
}

// isRoadComplaint reports whether a request concerns the road network,
// matching the configured keyword list against type and description.
func isRoadComplaint(row requestRow, roadTypes []string) bool {
	haystack := strings.ToLower(row.Type + " " + row.Description)
	for _, kw := range roadTypes {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" && strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

// RequestsAreaMetrics extends the common per-area output with the
// road-complaint subtotal and its per-km² density, a proxy for road
// network condition.
type RequestsAreaMetrics struct {
	AreaMetrics
	RoadComplaints       float64 `json:"road_complaints"`
	RoadComplaintsPerKm2 float64 `json:"road_complaints_per_km2"`
}

// Requests aggregates 311 service requests per area: totals, top-N type
// breakdown, recent window, rate per 1,000, and road-complaint density.
type Requests struct{}

func (d *Requests) Name() string       { return "requests" }
func (d *Requests) OutputFile() string { return "requests.json" }
func (d *Requests) Optional() bool     { return false }

func (d *Requests) Process(ctx context.Context, env *Env) (*Result, error) {
	log := zap.L().With(zap.String("dataset", d.Name()))
	path := env.Config.InputPath(env.Config.Requests.File)

	f, r, colIdx, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	res := &Result{Dataset: d.Name()}
	acc := NewAccumulator()
	roads := NewAccumulator()
	recentSince := env.Now.Year() - env.Config.Requests.RecentYears

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(record) < requestsMinFields {
			res.Skipped++
			continue
		}

		row := parseRequestRow(record, colIdx)
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
		road := isRoadComplaint(row, env.Config.Requests.RoadTypes)
		for id, w := range shares {
			acc.Add(id, w)
			acc.AddType(id, row.Type, w)
			if recent {
				acc.AddRecent(id, w)
			}
			if road {
				roads.Add(id, w)
			}
		}
		res.Processed++
	}

	base := acc.Finalize(env.Areas, env.Config.Requests.TopTypes)
	roadTallies := roads.Tallies()

	metrics := make(map[string]*RequestsAreaMetrics, len(base))
	for id, m := range base {
		out := &RequestsAreaMetrics{AreaMetrics: *m}
		if t, ok := roadTallies[id]; ok {
			out.RoadComplaints = math.Round(t.Total)
			if area, found := env.Areas.Get(id); found && area.AreaKm2 > 0 {
				out.RoadComplaintsPerKm2 = round2(t.Total / area.AreaKm2)
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
