package geo

import (
	"math/rand"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestObfuscateStaysWithinOffset(t *testing.T) {
	c := qt.New(t)

	origins := []Coordinate{newYork, barcelona, london,
		{Latitude: 64.1466, Longitude: -21.9426}, // Reykjavik, high latitude
	}
	for _, origin := range origins {
		for i := 0; i < 200; i++ {
			out := Obfuscate(origin, DefaultObfuscationMiles)
			c.Assert(out.Valid(), qt.IsTrue)
			// Offsets are per-axis, so the corner of the square is
			// sqrt(2) * offset away at most; allow small numeric slack
			// on top of that.
			d := Distance(origin, out)
			c.Assert(d <= DefaultObfuscationMiles*1.5, qt.IsTrue,
				qt.Commentf("origin %+v obfuscated %f miles away", origin, d))
		}
	}
}

func TestObfuscateDeterministicWithPinnedRand(t *testing.T) {
	c := qt.New(t)

	rng := rand.New(rand.NewSource(42))
	a := obfuscate(barcelona, DefaultObfuscationMiles, rng.Float64)

	rng = rand.New(rand.NewSource(42))
	b := obfuscate(barcelona, DefaultObfuscationMiles, rng.Float64)

	c.Assert(a, qt.Equals, b)
	c.Assert(a, qt.Not(qt.Equals), barcelona)
}

func TestObfuscateExtremeRandStaysValid(t *testing.T) {
	c := qt.New(t)

	// Force the maximum offset at the antimeridian and near the pole.
	maxFn := func() float64 { return 1.0 }
	nearPole := Coordinate{Latitude: 89.999, Longitude: 179.999}
	out := obfuscate(nearPole, DefaultObfuscationMiles, maxFn)
	c.Assert(out.Valid(), qt.IsTrue)

	minFn := func() float64 { return 0.0 }
	southWest := Coordinate{Latitude: -89.999, Longitude: -179.999}
	out = obfuscate(southWest, DefaultObfuscationMiles, minFn)
	c.Assert(out.Valid(), qt.IsTrue)
}

func TestObfuscateZeroOffset(t *testing.T) {
	c := qt.New(t)
	c.Assert(Obfuscate(newYork, 0), qt.Equals, newYork)
}
