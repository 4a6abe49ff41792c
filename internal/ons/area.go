// Package ons holds the neighbourhood boundary reference data (ONS area
// polygons, census attributes, ward membership) and the geospatial
// assignment operations every dataset processor relies on.
package ons

import "github.com/twpayne/go-geom"

// Area is one ONS boundary unit: polygon geometry plus the demographic
// attributes used for rate metrics and ward-share weighting. Areas are
// immutable once the store is loaded for a run.
type Area struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Population float64       `json:"population"`
	AreaKm2    float64       `json:"area_km2"`
	Census     CensusProfile `json:"census"`

	polygons []*geom.Polygon
}

// CensusProfile carries the static census-derived attributes of an area.
// Zero values mean the census extract had no row for the area.
type CensusProfile struct {
	MedianIncome       float64 `json:"median_income"`
	UniversityPct      float64 `json:"university_pct"`
	Age0to14Pct        float64 `json:"age_0_14_pct"`
	Age15to64Pct       float64 `json:"age_15_64_pct"`
	Age65PlusPct       float64 `json:"age_65_plus_pct"`
	VisibleMinorityPct float64 `json:"visible_minority_pct"`
}

// AddPolygon appends a polygon to the area. Ring 0 is the outer boundary;
// subsequent rings are holes.
func (a *Area) AddPolygon(p *geom.Polygon) {
	if p != nil {
		a.polygons = append(a.polygons, p)
	}
}

// Polygons returns the area's polygons in insertion order.
func (a *Area) Polygons() []*geom.Polygon { return a.polygons }
