// internal/localmap/localmap.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package localmap projects the world-map cache into a display-sized
// elevation frame, one sample per screen pixel, by converting each
// pixel offset from the aircraft into a geographic point via
// great-circle geometry and sampling the world grid there. The
// projection kernel runs once per frame per side and is the natural
// place to fan out across accel.Accelerator's worker pool, one row at
// a time; the per-pixel trig itself runs through accel's float32 kernel
// (accel.Acos32, accel.ProjectFast32), whose asin and atan2 steps still
// use float64 math internally.
package localmap

import (
	"context"
	"math"

	"github.com/flybywiresim/ndterrain/internal/accel"
	"github.com/flybywiresim/ndterrain/internal/geo"
	"github.com/flybywiresim/ndterrain/internal/terrain"
)

// GridSource is the collaborator localmap samples: the world-map
// cache's elevation lookup.
type GridSource interface {
	ExtractElevation(lat, lon float64) terrain.Elevation
}

// Map is a projected local elevation map: Width x Height samples,
// row-major, with row 0 at the top of the display so it lines up
// directly with the pixel loop that produced it.
type Map struct {
	Width, Height int
	ArcMode       bool
	Samples       []terrain.Elevation
}

func newMap(width, height int, arcMode bool) *Map {
	return &Map{Width: width, Height: height, ArcMode: arcMode, Samples: make([]terrain.Elevation, width*height)}
}

func (m *Map) At(x, y int) terrain.Elevation     { return m.Samples[y*m.Width+x] }
func (m *Map) set(x, y int, e terrain.Elevation) { m.Samples[y*m.Width+x] = e }

// MetersPerPixel derives the ground distance a single display pixel
// spans for the given range ring and frame height. Arc mode doubles
// it because the arc's vertical extent only shows half the selected
// range along the visible chord.
func MetersPerPixel(rangeNM float64, ndHeight int, arcMode bool) float64 {
	mpp := math.Round((rangeNM * 1852) / float64(ndHeight))
	if arcMode {
		mpp *= 2
	}
	return mpp
}

// Project computes the local elevation map for one side: width x
// height, centered laterally and anchored at the bottom on the
// aircraft, heading up.
func Project(ctx context.Context, acc *accel.Accelerator, grid GridSource, aircraft geo.Point, headingDeg float64, width, height int, metersPerPixel float64, arcMode bool) (*Map, error) {
	m := newMap(width, height, arcMode)
	halfWidth := float64(width) / 2

	err := acc.Dispatch(ctx, height, func(_ context.Context, y int) error {
		dy := float64(height - y)
		for x := 0; x < width; x++ {
			dx := float64(x) - halfWidth

			distancePx := math.Sqrt(dx*dx + dy*dy)
			if arcMode && distancePx > float64(height) {
				m.set(x, y, terrain.Invalid)
				continue
			}

			dMeters := distancePx * metersPerPixel / 2

			var bearing float64
			if distancePx == 0 {
				bearing = geo.NormalizeHeading(headingDeg)
			} else {
				angleFromUp := geo.Rad2Deg(float64(accel.Acos32(float32(clamp(dy/distancePx, -1, 1)))))
				if dx < 0 {
					angleFromUp = 360 - angleFromUp
				}
				bearing = geo.NormalizeHeading(angleFromUp + headingDeg)
			}

			lat2, lon2 := accel.ProjectFast32(float32(aircraft.Lat), float32(aircraft.Lon), float32(bearing), float32(dMeters), float32(geo.MeanRadiusMeters))
			m.set(x, y, grid.ExtractElevation(float64(lat2), float64(lon2)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m, nil
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
