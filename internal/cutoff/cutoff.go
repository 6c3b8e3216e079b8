// internal/cutoff/cutoff.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package cutoff computes the altitude floor below which terrain is
// not drawn, reduced when the aircraft is close to a valid
// destination so the runway environment isn't hidden under red.
package cutoff

import (
	"math"

	"github.com/flybywiresim/ndterrain/internal/geo"
	"github.com/flybywiresim/ndterrain/internal/terrain"
)

const (
	// MinAltitude is returned near the destination (d_nm <= 1.0).
	MinAltitude = 200.0
	// MaxAltitude is returned far from the destination (d_nm > 4.0), or
	// when the glide angle to it is 3 degrees or steeper.
	MaxAltitude = 400.0

	// DefaultAltitude is HIST_MIN_ELEV, returned when destination data
	// is simply absent (as opposed to present but out of glide range).
	DefaultAltitude = float64(terrain.HistMinElev)

	maxGlideRad      = 0.0523599 // 3 degrees
	feetPerNM        = 6076.12
	nearDistanceNM   = 1.0
	farDistanceNM    = 4.0
)

// ElevationSource is the minimal collaborator cutoff needs from the
// world-map cache: sampling the elevation under a lat/lon.
type ElevationSource interface {
	ExtractElevation(lat, lon float64) terrain.Elevation
}

// Altitude computes the cut-off altitude (feet) for an aircraft at
// position/altitude with the given destination state.
func Altitude(elev ElevationSource, aircraft geo.Point, altitudeFt float64, destValid bool, dest geo.Point) float64 {
	if !destValid {
		return DefaultAltitude
	}

	dElev := elev.ExtractElevation(dest.Lat, dest.Lon)
	if dElev == terrain.Invalid {
		return DefaultAltitude
	}

	dNM := geo.DistanceWGS84(aircraft, dest)
	if dNM > farDistanceNM {
		return MaxAltitude
	}

	glide := math.Atan((altitudeFt - float64(dElev)) / (dNM * feetPerNM))
	if glide >= maxGlideRad {
		return MaxAltitude
	}

	if dNM <= nearDistanceNM || glide == 0 {
		return MinAltitude
	}

	// Linear interpolation: 200 at 1nm, 400 at 4nm.
	t := (dNM - nearDistanceNM) / (farDistanceNM - nearDistanceNM)
	alt := MinAltitude + t*(MaxAltitude-MinAltitude)
	return clamp(alt, MinAltitude, MaxAltitude)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
