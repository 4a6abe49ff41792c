package ons

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Store is the read-only boundary reference for one pipeline run. Areas keep
// their load order, which makes point lookups deterministic across runs of
// the same inputs.
type Store struct {
	areas  []*Area
	byID   map[string]*Area
	byName map[string]string
	wards  map[string][]string
}

// NewStore returns an empty boundary store.
func NewStore() *Store {
	return &Store{
		byID:   make(map[string]*Area),
		byName: make(map[string]string),
		wards:  make(map[string][]string),
	}
}

// Add registers an area. The first area loaded under an id keeps its
// attributes; later features with the same id contribute only their
// polygons, so multi-feature boundaries collapse into one area.
func (s *Store) Add(a *Area) {
	if a == nil || strings.TrimSpace(a.ID) == "" {
		return
	}
	if existing, ok := s.byID[a.ID]; ok {
		existing.polygons = append(existing.polygons, a.polygons...)
		return
	}
	s.areas = append(s.areas, a)
	s.byID[a.ID] = a
	if key := foldName(a.Name); key != "" {
		if _, taken := s.byName[key]; !taken {
			s.byName[key] = a.ID
		}
	}
}

// Get returns the area registered under id.
func (s *Store) Get(id string) (*Area, bool) {
	a, ok := s.byID[id]
	return a, ok
}

// Areas returns all areas in load order.
func (s *Store) Areas() []*Area { return s.areas }

// Len returns the number of distinct areas loaded.
func (s *Store) Len() int { return len(s.areas) }

// FindByName resolves a display name to an area id. Matching is
// case-insensitive and ignores accents and punctuation, so "Côte-du-Nord"
// and "cote du nord" resolve to the same area.
func (s *Store) FindByName(name string) (string, bool) {
	id, ok := s.byName[foldName(name)]
	return id, ok
}

// foldName lowercases, strips diacritics, and collapses punctuation runs to
// single spaces so display-name variants index identically.
func foldName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if folded, _, err := transform.String(t, name); err == nil {
		name = folded
	}
	var b strings.Builder
	pending := false
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pending && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	return b.String()
}
