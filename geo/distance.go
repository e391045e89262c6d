package geo

import "math"

const (
	// earthRadiusMiles is the spherical Earth radius used by the
	// haversine formula. The spherical model is a deliberate choice;
	// the second-order ellipsoid error is acceptable for radius search.
	earthRadiusMiles = 3956

	// MilesToKm converts statute miles to kilometers.
	MilesToKm = 1.60934
)

// Distance returns the great-circle distance between a and b in miles.
// If any of the four scalars is zero or missing the pair is treated as
// absent and the distance is +Inf, so it is never in range of a finite
// radius.
func Distance(a, b Coordinate) float64 {
	if a.Latitude == 0 || a.Longitude == 0 || b.Latitude == 0 || b.Longitude == 0 {
		return math.Inf(1)
	}

	lat1 := a.Latitude * math.Pi / 180
	lon1 := a.Longitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	lon2 := b.Longitude * math.Pi / 180

	dlat := lat2 - lat1
	dlon := lon2 - lon1
	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Asin(math.Sqrt(h))

	return c * earthRadiusMiles
}

// DistanceKm returns the great-circle distance between a and b in
// kilometers.
func DistanceKm(a, b Coordinate) float64 {
	return Distance(a, b) * MilesToKm
}
