// internal/cutoff/cutoff_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package cutoff

import (
	"math"
	"testing"

	"github.com/flybywiresim/ndterrain/internal/geo"
	"github.com/flybywiresim/ndterrain/internal/terrain"
)

type constElevation terrain.Elevation

func (c constElevation) ExtractElevation(lat, lon float64) terrain.Elevation {
	return terrain.Elevation(c)
}

// eastOf returns the point nm nautical miles due east of p along the
// great circle.
func eastOf(p geo.Point, nm float64) geo.Point {
	lat, lon := geo.ProjectWGS84(p.Lat, p.Lon, 90, nm*1852)
	return geo.Point{Lat: lat, Lon: lon}
}

func TestDestinationInvalid(t *testing.T) {
	got := Altitude(constElevation(0), geo.Point{}, 3000, false, geo.Point{})
	if got != DefaultAltitude {
		t.Errorf("got %v, expected %v", got, DefaultAltitude)
	}
}

func TestDestinationElevationInvalid(t *testing.T) {
	got := Altitude(constElevation(terrain.Invalid), geo.Point{}, 3000, true, geo.Point{})
	if got != DefaultAltitude {
		t.Errorf("got %v, expected %v", got, DefaultAltitude)
	}
}

func TestNearDestinationReturnsMin(t *testing.T) {
	// ~0.4nm east of the aircraft, well inside the destination-proximity radius.
	aircraft := geo.Point{Lat: 47.26, Lon: 11.35}
	dest := geo.Point{Lat: 47.26, Lon: 11.36}
	got := Altitude(constElevation(0), aircraft, 3000, true, dest)
	if got != MinAltitude {
		t.Errorf("got %v, expected %v", got, MinAltitude)
	}
}

func TestDistantDestinationReturnsMax(t *testing.T) {
	aircraft := geo.Point{Lat: 47.26, Lon: 11.35}
	// 50nm east.
	dest := eastOf(aircraft, 50)
	got := Altitude(constElevation(0), aircraft, 3000, true, dest)
	if got != MaxAltitude {
		t.Errorf("got %v, expected %v", got, MaxAltitude)
	}
}

func TestBoundaryDistances(t *testing.T) {
	// Pick a destination elevation/altitude pair so the glide angle
	// stays well under 3 degrees (200ft over 1nm is about 1.9 degrees),
	// letting distance alone drive the outcome at the 1nm/4nm boundaries.
	elev := constElevation(0)

	aircraft := geo.Point{Lat: 47.26, Lon: 11.35}
	oneNM := eastOf(aircraft, 1.0)
	got := Altitude(elev, aircraft, 200, true, oneNM)
	if got != MinAltitude {
		t.Errorf("at ~1nm: got %v, expected %v", got, MinAltitude)
	}

	fourNM := eastOf(aircraft, 4.0)
	got = Altitude(elev, aircraft, 200, true, fourNM)
	if got != MaxAltitude {
		t.Errorf("at ~4nm: got %v, expected %v", got, MaxAltitude)
	}
}

func TestSteepGlideForcesMax(t *testing.T) {
	// 2nm away but 5000ft above the destination: glide angle is far
	// beyond 3 degrees.
	aircraft := geo.Point{Lat: 47.26, Lon: 11.35}
	dest := eastOf(aircraft, 2.0)
	got := Altitude(constElevation(0), aircraft, 5000, true, dest)
	if got != MaxAltitude {
		t.Errorf("got %v, expected %v", got, MaxAltitude)
	}
}

func TestInterpolationMonotonic(t *testing.T) {
	aircraft := geo.Point{Lat: 47.26, Lon: 11.35}
	prev := MinAltitude
	// 200ft keeps the glide angle under 3 degrees at every distance, so
	// only the interpolation decides the result.
	for _, nm := range []float64{1.0, 1.5, 2.0, 2.5, 3.0, 3.5, 4.0} {
		dest := eastOf(aircraft, nm)
		got := Altitude(constElevation(0), aircraft, 200, true, dest)
		if got < prev-1e-9 {
			t.Errorf("cutoff altitude not monotonic non-decreasing with distance at %v nm: got %v after %v", nm, got, prev)
		}
		prev = got
		if got < MinAltitude || got > MaxAltitude {
			t.Errorf("at %v nm: got %v out of [%v,%v]", nm, got, MinAltitude, MaxAltitude)
		}
	}
}

func TestGlideExactlyThreeDegreesReturnsMax(t *testing.T) {
	aircraft := geo.Point{Lat: 47.26, Lon: 11.35}
	dest := eastOf(aircraft, 2.0)
	dNM := geo.DistanceWGS84(aircraft, dest)
	altitudeDiff := dNM * feetPerNM * math.Tan(maxGlideRad)
	got := Altitude(constElevation(0), aircraft, altitudeDiff, true, dest)
	if got != MaxAltitude {
		t.Errorf("at exactly 3 degrees: got %v, expected %v", got, MaxAltitude)
	}
}
