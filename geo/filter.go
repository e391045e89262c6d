package geo

import "sort"

// Match annotates a candidate with its distance from the query origin.
// The annotation is ephemeral, per query; it is never persisted.
type Match[T Locatable] struct {
	Entity T
	Miles  float64
	Km     float64
}

// FilterByRadius returns the candidates within radiusMiles of origin,
// each annotated with its distance. Candidates without a coordinate are
// skipped silently. The boundary is inclusive: a candidate exactly at
// the radius is included. Input order is preserved.
func FilterByRadius[T Locatable](origin Coordinate, radiusMiles int, candidates []T) []Match[T] {
	matches := make([]Match[T], 0, len(candidates))
	for _, cand := range candidates {
		c, ok := cand.Coord()
		if !ok {
			continue
		}
		miles := Distance(origin, c)
		if miles <= float64(radiusMiles) {
			matches = append(matches, Match[T]{
				Entity: cand,
				Miles:  miles,
				Km:     miles * MilesToKm,
			})
		}
	}
	return matches
}

// SortByDistance orders matches nearest first. The sort is stable so
// equal-distance candidates keep their input order.
func SortByDistance[T Locatable](matches []Match[T]) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Miles < matches[j].Miles
	})
}

// FilterByBounds returns the candidates whose coordinate lies within the
// box, in input order, stopping once max results are collected. Callers
// must not assume exhaustiveness after the cap is hit, only that every
// returned candidate satisfies the bounds predicate. A max of 0 or less
// means no cap.
func FilterByBounds[T Locatable](box BoundingBox, candidates []T, max int) []T {
	var out []T
	for _, cand := range candidates {
		c, ok := cand.Coord()
		if !ok {
			continue
		}
		if !box.Contains(c) {
			continue
		}
		out = append(out, cand)
		if max > 0 && len(out) >= max {
			break
		}
	}
	return out
}
