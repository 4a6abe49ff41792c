package ons

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Locate returns the id of the first loaded area whose outer ring contains
// the point. Holes are not subtracted, so a point inside a hole still
// matches the enclosing area. NaN coordinates and the (0,0) placeholder
// that broken exports emit report not locatable without scanning.
func (s *Store) Locate(lat, lng float64) (string, bool) {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return "", false
	}
	if lat == 0 && lng == 0 {
		return "", false
	}
	pt := geom.Coord{lng, lat}
	for _, a := range s.areas {
		for _, p := range a.polygons {
			if p.NumLinearRings() == 0 {
				continue
			}
			if xy.IsPointInRing(geom.XY, pt, p.LinearRing(0).FlatCoords()) {
				return a.ID, true
			}
		}
	}
	return "", false
}
