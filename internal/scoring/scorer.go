package scoring

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/openneighbourhoods/civic-cli/internal/config"
	"github.com/openneighbourhoods/civic-cli/internal/ons"
)

// AreaScore is the composite result for one area. Maps omit metrics and
// categories that have no data; OverallScore is nil when nothing scored.
type AreaScore struct {
	ID              string             `json:"id"`
	Name            string             `json:"name"`
	Rank            int                `json:"rank"`
	OverallScore    *float64           `json:"overallScore"`
	CategoryScores  map[string]float64 `json:"categoryScores"`
	MetricScores    map[string]float64 `json:"metricScores"`
	RawMetricValues map[string]float64 `json:"rawMetricValues"`
}

// Score computes metric, category, and overall scores for every area.
// Results come back rank-ordered: overall descending, unscored areas
// last, ties broken by id.
func Score(areas *ons.Store, raw RawMetrics, cfg config.ScoringConfig) []AreaScore {
	policies := StandardPolicies()

	// Percentile-score each metric across the areas that have it. This
	// needs the full cross-area distribution, hence metric-major order.
	metricScores := make(map[string]map[string]float64, len(policies))
	for _, p := range policies {
		values := make(map[string]float64)
		for id, metrics := range raw {
			if v, ok := metrics[p.Metric]; ok {
				values[id] = v
			}
		}
		metricScores[p.Metric] = PercentileScores(values, p)
	}

	categoryMetrics := make(map[string][]MetricPolicy)
	for _, p := range policies {
		categoryMetrics[p.Category] = append(categoryMetrics[p.Category], p)
	}

	scores := make([]AreaScore, 0, areas.Len())
	for _, a := range areas.Areas() {
		s := AreaScore{
			ID:              a.ID,
			Name:            a.Name,
			MetricScores:    make(map[string]float64),
			CategoryScores:  make(map[string]float64),
			RawMetricValues: raw[a.ID],
		}
		if s.RawMetricValues == nil {
			s.RawMetricValues = make(map[string]float64)
		}

		for metric, perArea := range metricScores {
			if v, ok := perArea[a.ID]; ok {
				s.MetricScores[metric] = v
			}
		}
		for category, members := range categoryMetrics {
			memberScores := make(map[string]float64, len(members))
			for _, p := range members {
				if v, ok := s.MetricScores[p.Metric]; ok {
					memberScores[p.Metric] = v
				}
			}
			if composed := Compose(memberScores, cfg.MetricWeights); composed != nil {
				s.CategoryScores[category] = *composed
			}
		}
		s.OverallScore = Compose(s.CategoryScores, cfg.CategoryWeights)
		scores = append(scores, s)
	}

	rankScores(scores)
	return scores
}

// rankScores orders by overall score descending with unscored areas last
// and assigns 1-based ranks.
func rankScores(scores []AreaScore) {
	sort.Slice(scores, func(i, j int) bool {
		si, sj := scores[i].OverallScore, scores[j].OverallScore
		switch {
		case si == nil && sj == nil:
			return scores[i].ID < scores[j].ID
		case si == nil:
			return false
		case sj == nil:
			return true
		case *si != *sj:
			return *si > *sj
		default:
			return scores[i].ID < scores[j].ID
		}
	})
	for i := range scores {
		scores[i].Rank = i + 1
	}
}

// WriteScores persists the composite document, keyed by area id.
func WriteScores(outputDir, filename string, scores []AreaScore) (string, error) {
	doc := make(map[string]AreaScore, len(scores))
	for _, s := range scores {
		doc[s.ID] = s
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", eris.Wrapf(err, "scoring: create output dir %s", outputDir)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", eris.Wrap(err, "scoring: marshal scores")
	}
	data = append(data, '\n')

	path := filepath.Join(outputDir, filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "scoring: write scores %s", path)
	}

	zap.L().Info("wrote scores",
		zap.String("path", path),
		zap.Int("areas", len(scores)))
	return path, nil
}

// ValidateConfig checks the weighting tables before a scoring run.
func ValidateConfig(cfg config.ScoringConfig) error {
	var errs []string

	total := 0.0
	for category, w := range cfg.CategoryWeights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("category weight %s is negative", category))
		}
		total += w
	}
	if math.Abs(total-100) > 1 {
		errs = append(errs, fmt.Sprintf("category weights sum to %.2f, want 100", total))
	}

	for metric, w := range cfg.MetricWeights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("metric weight %s is negative", metric))
		}
	}

	categoryTotals := make(map[string]float64)
	for _, p := range StandardPolicies() {
		categoryTotals[p.Category] += cfg.MetricWeights[p.Metric]
	}
	for category, sum := range categoryTotals {
		if sum <= 0 {
			errs = append(errs, fmt.Sprintf("category %s has no positive metric weights", category))
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return eris.Errorf("scoring: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
