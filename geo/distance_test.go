package geo

import (
	"math"
	"testing"

	qt "github.com/frankban/quicktest"
)

var (
	newYork      = Coordinate{Latitude: 40.7128, Longitude: -74.0060}
	williamsburg = Coordinate{Latitude: 40.7306, Longitude: -73.9352}
	barcelona    = Coordinate{Latitude: 41.3851, Longitude: 2.1734}
	london       = Coordinate{Latitude: 51.5074, Longitude: -0.1278}
)

func TestDistanceIdentity(t *testing.T) {
	c := qt.New(t)
	for _, p := range []Coordinate{newYork, barcelona, london} {
		c.Assert(Distance(p, p), qt.Equals, 0.0)
	}
}

func TestDistanceSymmetry(t *testing.T) {
	c := qt.New(t)
	pairs := [][2]Coordinate{
		{newYork, williamsburg},
		{barcelona, london},
		{newYork, london},
	}
	for _, p := range pairs {
		d1 := Distance(p[0], p[1])
		d2 := Distance(p[1], p[0])
		c.Assert(math.Abs(d1-d2) < 1e-9, qt.IsTrue,
			qt.Commentf("d(a,b)=%f d(b,a)=%f", d1, d2))
	}
}

func TestDistanceKmFactor(t *testing.T) {
	c := qt.New(t)
	miles := Distance(barcelona, london)
	km := DistanceKm(barcelona, london)
	c.Assert(math.Abs(km-miles*1.60934) < 1e-9, qt.IsTrue)
}

func TestDistanceDegenerateInput(t *testing.T) {
	c := qt.New(t)
	cases := []struct {
		name string
		a, b Coordinate
	}{
		{"both empty", Coordinate{}, Coordinate{}},
		{"missing latitude", Coordinate{Longitude: -74.0060}, williamsburg},
		{"missing longitude", Coordinate{Latitude: 40.7128}, williamsburg},
		{"missing other side", newYork, Coordinate{Latitude: 40.7306}},
	}
	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			c.Assert(math.IsInf(Distance(tc.a, tc.b), 1), qt.IsTrue)
			c.Assert(math.IsInf(DistanceKm(tc.a, tc.b), 1), qt.IsTrue)
		})
	}
}

func TestDistanceNewYorkScenario(t *testing.T) {
	c := qt.New(t)
	d := Distance(newYork, williamsburg)
	c.Assert(d > 3.5 && d < 5.0, qt.IsTrue, qt.Commentf("distance %f", d))
}

func TestDistanceKnownCity(t *testing.T) {
	c := qt.New(t)
	// Barcelona to London is roughly 710 miles great-circle.
	d := Distance(barcelona, london)
	c.Assert(d > 680 && d < 740, qt.IsTrue, qt.Commentf("distance %f", d))
}

func TestValidCoordinates(t *testing.T) {
	c := qt.New(t)
	c.Assert(ValidCoordinates(91, 0), qt.IsFalse)
	c.Assert(ValidCoordinates(-91, 0), qt.IsFalse)
	c.Assert(ValidCoordinates(0, 181), qt.IsFalse)
	c.Assert(ValidCoordinates(0, -181), qt.IsFalse)
	c.Assert(ValidCoordinates(45, -180), qt.IsTrue)
	c.Assert(ValidCoordinates(-90, 180), qt.IsTrue)
	c.Assert(ValidCoordinates(0, 0), qt.IsTrue)
	c.Assert(Coordinate{Latitude: 90.0001}.Valid(), qt.IsFalse)
}
