package geo

import (
	"math"
	"math/rand"
)

const (
	// DefaultObfuscationMiles is the default privacy offset applied to
	// coordinates before they are shown to anyone but their owner.
	DefaultObfuscationMiles = 0.5

	// milesPerDegreeLat approximates one degree of latitude in miles.
	milesPerDegreeLat = 69.0
)

// Obfuscate returns a copy of c perturbed by an independent uniform
// random offset in [-offsetMiles, +offsetMiles] along each axis. The
// longitude offset widens with latitude so the perturbation stays
// bounded in miles everywhere.
//
// This is a display-time transform only. It must never be applied
// before persisting an entity's authoritative coordinate, and never
// when the viewer is the entity's own owner.
func Obfuscate(c Coordinate, offsetMiles float64) Coordinate {
	return obfuscate(c, offsetMiles, rand.Float64)
}

// obfuscate takes the random source as a parameter so tests can pin it.
func obfuscate(c Coordinate, offsetMiles float64, randFn func() float64) Coordinate {
	latOffset := (offsetMiles / milesPerDegreeLat) * (randFn() - 0.5) * 2
	lngOffset := (offsetMiles / (milesPerDegreeLat * math.Cos(c.Latitude*math.Pi/180))) *
		(randFn() - 0.5) * 2

	out := Coordinate{
		Latitude:  c.Latitude + latOffset,
		Longitude: c.Longitude + lngOffset,
	}

	// Keep the result a well-formed coordinate near the poles and the
	// antimeridian. The longitude offset can exceed a full revolution
	// at extreme latitudes, so normalize with modular arithmetic.
	out.Latitude = math.Max(-90, math.Min(90, out.Latitude))
	if out.Longitude > 180 || out.Longitude < -180 {
		out.Longitude = math.Mod(out.Longitude+180, 360)
		if out.Longitude < 0 {
			out.Longitude += 360
		}
		out.Longitude -= 180
	}
	return out
}
