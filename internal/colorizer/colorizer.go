// internal/colorizer/colorizer.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package colorizer classifies every pixel of a projected local
// elevation map into an RGBA color plus a density stipple, and
// appends a metadata row carrying the min/max elevation and threshold
// summary the rest of the pipeline needs. The classifier works in
// float32 RGBA (a GPU compute kernel's natural intermediate format);
// the frame compositor (package compositor) is the one that quantizes
// map pixels to 8-bit PNG output, and it skips the metadata row when
// painting.
package colorizer

import (
	"github.com/flybywiresim/ndterrain/internal/localmap"
	"github.com/flybywiresim/ndterrain/internal/patternmap"
	"github.com/flybywiresim/ndterrain/internal/terrain"
	"github.com/flybywiresim/ndterrain/internal/threshold"
)

// Pixel is one RGBA sample of the colorizer's output, float32 because
// the metadata row carries raw elevation/threshold values rather than
// 0-255 color components.
type Pixel struct {
	R, G, B, A float32
}

// Frame is the colorizer's full output: mapWidth x (mapHeight+1)
// pixels, row-major, with the metadata row appended at y == Height.
type Frame struct {
	Width, Height int // Height is the map height; the buffer has Height+1 rows
	Pixels        []Pixel
}

func newFrame(width, height int) *Frame {
	return &Frame{Width: width, Height: height, Pixels: make([]Pixel, width*(height+1))}
}

func (f *Frame) at(x, y int) Pixel     { return f.Pixels[y*f.Width+x] }
func (f *Frame) set(x, y int, p Pixel) { f.Pixels[y*f.Width+x] = p }

// MapRows returns the Height rows of actual map pixels, excluding the
// metadata row.
func (f *Frame) MapRows() []Pixel {
	return f.Pixels[:f.Width*f.Height]
}

// MetadataPixel0 and MetadataPixel1 are the two populated cells of the
// metadata row; everything else in that row is transparent zero.
func (f *Frame) MetadataPixel0() Pixel { return f.at(0, f.Height) }
func (f *Frame) MetadataPixel1() Pixel { return f.at(1, f.Height) }

var (
	colorRed     = Pixel{R: 255, G: 0, B: 0, A: 255}
	colorYellow  = Pixel{R: 255, G: 255, B: 50, A: 255}
	colorGreen   = Pixel{R: 0, G: 255, B: 0, A: 255}
	colorWater   = Pixel{R: 0, G: 255, B: 255, A: 255}
	colorMagenta = Pixel{R: 255, G: 148, B: 255, A: 255}
	transparent  = Pixel{}
)

// Colorize classifies m per the selected rendering mode and
// thresholds, and writes r.Normal/r.Peaks metadata into the metadata
// row.
func Colorize(m *localmap.Map, r threshold.Result, cutOffAltitude float64, patterns patternmap.Set) *Frame {
	f := newFrame(m.Width, m.Height)

	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			e := m.At(x, y)
			f.set(x, y, classify(e, x, y, r, cutOffAltitude, patterns))
		}
	}

	writeMetadata(f, r)
	return f
}

func classify(e terrain.Elevation, x, y int, r threshold.Result, cutOffAltitude float64, patterns patternmap.Set) Pixel {
	switch e {
	case terrain.Invalid:
		return transparent
	case terrain.Water:
		pattern := patterns.WaterEven
		if y%2 == 1 {
			pattern = patterns.WaterOdd
		}
		return stipple(colorWater, pattern, x, y)
	case terrain.Unknown:
		return stipple(colorMagenta, patterns.High, x, y)
	}

	elevation := float64(e)
	if r.Mode == threshold.Peaks {
		return classifyPeaks(elevation, x, y, r.Peaks, patterns)
	}
	return classifyNormal(elevation, x, y, r.Normal, cutOffAltitude, patterns)
}

func classifyNormal(e float64, x, y int, n threshold.NormalThresholds, cutOffAltitude float64, patterns patternmap.Set) Pixel {
	if e < cutOffAltitude {
		return transparent
	}

	switch {
	case e >= n.HighDensityRed:
		return stipple(colorRed, patterns.High, x, y)
	case e >= n.HighDensityYellow:
		return stipple(colorYellow, patterns.High, x, y)
	case e >= n.HighDensityGreen && e < n.LowDensityYellow:
		return stipple(colorGreen, patterns.High, x, y)
	case e >= n.LowDensityYellow && e < n.HighDensityYellow:
		return stipple(colorYellow, patterns.Low, x, y)
	case e >= n.LowDensityGreen && e < n.HighDensityGreen:
		return stipple(colorGreen, patterns.Low, x, y)
	default:
		return transparent
	}
}

func classifyPeaks(e float64, x, y int, p threshold.PeaksThresholds, patterns patternmap.Set) Pixel {
	switch {
	case e >= p.SolidDensity:
		return stipple(colorGreen, patterns.Solid, x, y)
	case e >= p.HigherDensity:
		return stipple(colorGreen, patterns.High, x, y)
	case e >= p.LowerDensity:
		return stipple(colorGreen, patterns.Low, x, y)
	default:
		return transparent
	}
}

func stipple(color Pixel, pattern patternmap.Patch, x, y int) Pixel {
	if pattern.At(x%patternmap.PatchSize, y%patternmap.PatchSize) {
		return color
	}
	return transparent
}

func writeMetadata(f *Frame, r threshold.Result) {
	if r.Mode == threshold.Peaks {
		f.set(0, f.Height, Pixel{R: 1, G: float32(r.MinElevation), B: float32(r.MaxElevation), A: float32(r.Peaks.SolidDensity)})
		f.set(1, f.Height, Pixel{R: float32(r.Peaks.HigherDensity), G: float32(r.Peaks.LowerDensity), B: 0, A: 0})
		return
	}
	f.set(0, f.Height, Pixel{R: 0, G: float32(r.MinElevation), B: float32(r.MaxElevation), A: float32(r.Normal.HighDensityRed)})
	f.set(1, f.Height, Pixel{
		R: float32(r.Normal.HighDensityYellow),
		G: float32(r.Normal.LowDensityYellow),
		B: float32(r.Normal.HighDensityGreen),
		A: float32(r.Normal.LowDensityGreen),
	})
}
