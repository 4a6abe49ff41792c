package ingest

import (
	"math"
	"sort"
	"strings"

	"github.com/openneighbourhoods/civic-cli/internal/ons"
)

// Tally holds the running sums for one area during a single dataset pass.
// Ward-distributed records contribute fractional weights, so everything
// stays float64 until Finalize rounds once.
type Tally struct {
	Total  float64
	Recent float64
	Types  map[string]float64
}

// Accumulator aggregates weighted observations per area id.
type Accumulator struct {
	tallies map[string]*Tally
}

func NewAccumulator() *Accumulator {
	return &Accumulator{tallies: make(map[string]*Tally)}
}

func (a *Accumulator) tally(id string) *Tally {
	t, ok := a.tallies[id]
	if !ok {
		t = &Tally{Types: make(map[string]float64)}
		a.tallies[id] = t
	}
	return t
}

// Add records one observation (or a ward-distributed fraction of one).
func (a *Accumulator) Add(id string, w float64) {
	a.tally(id).Total += w
}

// AddRecent records the recent-window subtotal alongside the total.
func (a *Accumulator) AddRecent(id string, w float64) {
	a.tally(id).Recent += w
}

// AddType records a by-type breakdown entry under the primary label.
func (a *Accumulator) AddType(id, label string, w float64) {
	label = PrimaryLabel(label)
	if label == "" {
		return
	}
	a.tally(id).Types[label] += w
}

// Tallies exposes the raw per-area sums for datasets that derive their
// own output shape.
func (a *Accumulator) Tallies() map[string]*Tally {
	return a.tallies
}

// PrimaryLabel strips the " | " French half from a bilingual export label
// and trims the remainder.
func PrimaryLabel(label string) string {
	label = sanitizeUTF8(label)
	if i := strings.Index(label, " | "); i >= 0 {
		label = label[:i]
	}
	return strings.TrimSpace(label)
}

// TypeCount is one entry of a per-area breakdown, largest first.
type TypeCount struct {
	Label string  `json:"label"`
	Count float64 `json:"count"`
}

// AreaMetrics is the finalized per-area output common to count-style
// datasets.
type AreaMetrics struct {
	Name        string      `json:"name"`
	Total       float64     `json:"total"`
	Recent      float64     `json:"recent"`
	RatePer1000 float64     `json:"rate_per_1000"`
	Types       []TypeCount `json:"types,omitempty"`
}

// Finalize rounds the accumulated sums and derives per-1,000-population
// rates. Rounding happens here and nowhere earlier, so fractional ward
// shares never lose mass mid-pass.
func (a *Accumulator) Finalize(areas *ons.Store, topN int) map[string]*AreaMetrics {
	out := make(map[string]*AreaMetrics, len(a.tallies))
	for id, t := range a.tallies {
		area, ok := areas.Get(id)
		if !ok {
			continue
		}
		m := &AreaMetrics{
			Name:   area.Name,
			Total:  math.Round(t.Total),
			Recent: math.Round(t.Recent),
			Types:  topTypes(t.Types, topN),
		}
		if area.Population > 0 {
			m.RatePer1000 = round2(t.Total / area.Population * 1000)
		}
		out[id] = m
	}
	return out
}

// topTypes returns the N largest breakdown entries, count descending with
// label ascending as the tiebreak so output is stable across runs.
func topTypes(types map[string]float64, topN int) []TypeCount {
	if len(types) == 0 || topN <= 0 {
		return nil
	}
	entries := make([]TypeCount, 0, len(types))
	for label, count := range types {
		entries = append(entries, TypeCount{Label: label, Count: math.Round(count)})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Label < entries[j].Label
	})
	if len(entries) > topN {
		entries = entries[:topN]
	}
	return entries
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// attribution says how a record was tied to its area(s).
type attribution int

const (
	attributedNone attribution = iota
	attributedCoord
	attributedWard
	attributedName
)

// resolveCoord attributes a record by point location, falling back to ward
// population shares. The returned weights sum to 1 for any attribution.
func resolveCoord(areas *ons.Store, lat, lng float64, ward string) (map[string]float64, attribution) {
	if id, ok := areas.Locate(lat, lng); ok {
		return map[string]float64{id: 1}, attributedCoord
	}
	if shares := areas.DistributeByWard(ward); shares != nil {
		return shares, attributedWard
	}
	return nil, attributedNone
}

// resolveName attributes a record by neighbourhood name, falling back to
// ward population shares. Used by sources whose schema has no coordinates.
func resolveName(areas *ons.Store, name, ward string) (map[string]float64, attribution) {
	if id, ok := areas.FindByName(name); ok {
		return map[string]float64{id: 1}, attributedName
	}
	if shares := areas.DistributeByWard(ward); shares != nil {
		return shares, attributedWard
	}
	return nil, attributedNone
}
