package scoring

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/openneighbourhoods/civic-cli/internal/ons"
)

// RawMetrics maps area id → metric name → raw value. An absent metric
// key means no data: its source artifact was missing, or the value is
// undefined for the area (an average over zero inspections).
type RawMetrics map[string]map[string]float64

// Read-side views of the dataset artifacts. Only the fields the scorer
// consumes are declared; the artifacts are a JSON contract, not a shared
// Go type.
type crimeEntry struct {
	RatePer1000 float64 `json:"rate_per_1000"`
}

type requestsEntry struct {
	RatePer1000          float64 `json:"rate_per_1000"`
	RoadComplaintsPerKm2 float64 `json:"road_complaints_per_km2"`
}

type developmentEntry struct {
	Recent        float64 `json:"recent"`
	ApprovalShare float64 `json:"approval_share"`
}

type foodEntry struct {
	Inspections                float64 `json:"inspections"`
	AvgViolationsPerInspection float64 `json:"avg_violations_per_inspection"`
	EstablishmentsPer1000      float64 `json:"establishments_per_1000"`
}

// LoadRawMetrics reads the four dataset artifacts from the output dir.
// An area missing from a present artifact had zero observations, so its
// metrics fill in as zero and the zero policies apply. A missing
// artifact leaves its metrics absent for every area: warned, excluded
// from scoring, never treated as zero.
func LoadRawMetrics(outputDir string, areas *ons.Store) (RawMetrics, error) {
	raw := make(RawMetrics, areas.Len())
	for _, a := range areas.Areas() {
		raw[a.ID] = make(map[string]float64)
	}

	var crime map[string]crimeEntry
	ok, err := readArtifact(filepath.Join(outputDir, "crime.json"), &crime)
	if err != nil {
		return nil, err
	}
	if ok {
		for id, m := range raw {
			m[MetricCrimeRate] = crime[id].RatePer1000
		}
	} else {
		warnMissing("crime.json", MetricCrimeRate)
	}

	var requests map[string]requestsEntry
	ok, err = readArtifact(filepath.Join(outputDir, "requests.json"), &requests)
	if err != nil {
		return nil, err
	}
	if ok {
		for id, m := range raw {
			m[MetricRequestsRate] = requests[id].RatePer1000
			m[MetricRoadComplaintDensity] = requests[id].RoadComplaintsPerKm2
		}
	} else {
		warnMissing("requests.json", MetricRequestsRate, MetricRoadComplaintDensity)
	}

	var development map[string]developmentEntry
	ok, err = readArtifact(filepath.Join(outputDir, "development.json"), &development)
	if err != nil {
		return nil, err
	}
	if ok {
		for id, m := range raw {
			m[MetricDevelopmentRecent] = development[id].Recent
			m[MetricApprovalShare] = development[id].ApprovalShare
		}
	} else {
		warnMissing("development.json", MetricDevelopmentRecent, MetricApprovalShare)
	}

	var food map[string]foodEntry
	ok, err = readArtifact(filepath.Join(outputDir, "food.json"), &food)
	if err != nil {
		return nil, err
	}
	if ok {
		for id, m := range raw {
			entry := food[id]
			m[MetricEstablishments] = entry.EstablishmentsPer1000
			// The average only exists where inspections happened. An
			// uninspected area must not score as violation-free.
			if entry.Inspections > 0 {
				m[MetricFoodViolationAvg] = entry.AvgViolationsPerInspection
			}
		}
	} else {
		warnMissing("food.json", MetricFoodViolationAvg, MetricEstablishments)
	}

	return raw, nil
}

func readArtifact(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, eris.Wrapf(err, "scoring: read artifact %s", path)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, eris.Wrapf(err, "scoring: parse artifact %s", path)
	}
	return true, nil
}

func warnMissing(artifact string, metrics ...string) {
	zap.L().Warn("artifact missing, its metrics will not be scored",
		zap.String("artifact", artifact),
		zap.Strings("metrics", metrics))
}
