package categorize

import "math"

const (
	// DefaultCoordTolerance is the per-axis degree gate for the
	// cross-reference stage, roughly 50 m at this latitude.
	DefaultCoordTolerance = 0.0005
	// DefaultSimilarityThreshold is the strict lower bound on word-set
	// Jaccard similarity for the cross-reference stage.
	DefaultSimilarityThreshold = 0.6
)

// Match is the outcome of one categorization attempt. Source none means
// every stage declined; the record is kept uncategorized for review.
type Match struct {
	Category   Category `json:"category,omitempty"`
	Source     Source   `json:"source"`
	Similarity float64  `json:"similarity,omitempty"`
	Reference  string   `json:"reference,omitempty"`
}

// Categorizer runs the override, pattern, and cross-reference stages in
// that order. It is immutable after construction and safe for concurrent
// use.
type Categorizer struct {
	overrides Overrides
	rules     []compiledRule
	refs      []Reference

	coordTolerance      float64
	similarityThreshold float64
}

// New builds a Categorizer. A nil rule slice selects DefaultRules; nil
// overrides and empty references simply disable their stages. Zero
// tolerance or threshold values fall back to the defaults.
func New(overrides Overrides, rules []Rule, refs []Reference, coordTolerance, similarityThreshold float64) (*Categorizer, error) {
	if rules == nil {
		rules = DefaultRules()
	}
	compiled, err := compileRules(rules)
	if err != nil {
		return nil, err
	}
	if coordTolerance <= 0 {
		coordTolerance = DefaultCoordTolerance
	}
	if similarityThreshold <= 0 {
		similarityThreshold = DefaultSimilarityThreshold
	}
	return &Categorizer{
		overrides:           overrides,
		rules:               compiled,
		refs:                refs,
		coordTolerance:      coordTolerance,
		similarityThreshold: similarityThreshold,
	}, nil
}

// Categorize resolves one establishment. The first stage that produces a
// result wins.
func (c *Categorizer) Categorize(name string, lat, lng float64) Match {
	normalized := NormalizeName(name)
	if normalized == "" {
		return Match{Source: SourceNone}
	}

	// 1. Manual override by exact normalized name.
	if cat, ok := c.overrides[normalized]; ok {
		return Match{Category: cat, Source: SourceOverride}
	}

	// 2. Keyword patterns. A name matching several categories resolves to
	// the lowest priority number, not the first rule in table order.
	var best Match
	bestPriority := 0
	for _, rule := range c.rules {
		if !rule.re.MatchString(normalized) {
			continue
		}
		if bestPriority == 0 || rule.priority < bestPriority {
			best = Match{Category: rule.category, Source: SourcePattern}
			bestPriority = rule.priority
		}
	}
	if bestPriority != 0 {
		return best
	}

	// 3. Cross-reference. Both gates are required: per-axis coordinate
	// tolerance AND similarity strictly above the threshold. The highest
	// similarity wins; equal similarities keep the earlier reference.
	if math.IsNaN(lat) || math.IsNaN(lng) || (lat == 0 && lng == 0) {
		return Match{Source: SourceNone}
	}
	words := WordSet(name)
	if len(words) == 0 {
		return Match{Source: SourceNone}
	}
	winner := Match{Source: SourceNone}
	for _, ref := range c.refs {
		if math.Abs(ref.Lat-lat) > c.coordTolerance || math.Abs(ref.Lng-lng) > c.coordTolerance {
			continue
		}
		sim := Jaccard(words, ref.words)
		if sim <= c.similarityThreshold {
			continue
		}
		if winner.Source == SourceNone || sim > winner.Similarity {
			winner = Match{
				Category:   ref.Category,
				Source:     SourceCrossref,
				Similarity: sim,
				Reference:  ref.Name,
			}
		}
	}
	return winner
}
