package ons

import "strings"

// SetWard replaces a ward's member area list, preserving the given order.
func (s *Store) SetWard(ward string, areaIDs []string) {
	ward = strings.TrimSpace(ward)
	if ward == "" {
		return
	}
	s.wards[ward] = areaIDs
}

// WardMembers returns the member area ids for a ward in table order.
func (s *Store) WardMembers(ward string) []string {
	return s.wards[strings.TrimSpace(ward)]
}

// DistributeByWard splits one record across a ward's member areas in
// proportion to their populations. The returned fractions sum to 1 over
// the members with population. A nil result means the ward is unknown or
// has no population at all; callers count the record as unassigned.
func (s *Store) DistributeByWard(ward string) map[string]float64 {
	members := s.wards[strings.TrimSpace(ward)]
	if len(members) == 0 {
		return nil
	}
	var total float64
	for _, id := range members {
		if a, ok := s.byID[id]; ok {
			total += a.Population
		}
	}
	if total <= 0 {
		return nil
	}
	fractions := make(map[string]float64, len(members))
	for _, id := range members {
		a, ok := s.byID[id]
		if !ok || a.Population <= 0 {
			continue
		}
		fractions[id] = a.Population / total
	}
	return fractions
}
