// internal/colorizer/colorizer_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package colorizer

import (
	"testing"

	"github.com/flybywiresim/ndterrain/internal/localmap"
	"github.com/flybywiresim/ndterrain/internal/patternmap"
	"github.com/flybywiresim/ndterrain/internal/terrain"
	"github.com/flybywiresim/ndterrain/internal/threshold"
)

func uniformMap(width, height int, e terrain.Elevation) *localmap.Map {
	m := &localmap.Map{Width: width, Height: height, Samples: make([]terrain.Elevation, width*height)}
	for i := range m.Samples {
		m.Samples[i] = e
	}
	return m
}

func TestSentinelsClassifyFixedColors(t *testing.T) {
	patterns := patternmap.Generate()
	r := threshold.Result{Mode: threshold.Normal}

	water := uniformMap(26, 26, terrain.Water)
	f := Colorize(water, r, float64(terrain.HistMinElev), patterns)
	sawCyan := false
	for _, p := range f.MapRows() {
		if p.A > 0 {
			if p.R != 0 || p.G != 255 || p.B != 255 {
				t.Fatalf("water pixel has wrong color: %+v", p)
			}
			sawCyan = true
		}
	}
	if !sawCyan {
		t.Fatal("expected at least one water-stipple pixel to be drawn")
	}

	unknown := uniformMap(26, 26, terrain.Unknown)
	f = Colorize(unknown, r, float64(terrain.HistMinElev), patterns)
	for _, p := range f.MapRows() {
		if p.A > 0 && (p.R != 255 || p.G != 148 || p.B != 255) {
			t.Fatalf("unknown pixel has wrong color: %+v", p)
		}
	}

	invalid := uniformMap(26, 26, terrain.Invalid)
	f = Colorize(invalid, r, float64(terrain.HistMinElev), patterns)
	for _, p := range f.MapRows() {
		if p != (Pixel{}) {
			t.Fatalf("invalid pixel should always be fully transparent, got %+v", p)
		}
	}
}

func TestBelowCutOffIsTransparentInNormalMode(t *testing.T) {
	patterns := patternmap.Generate()
	r := threshold.Result{Mode: threshold.Normal, Normal: threshold.NormalThresholds{
		LowDensityGreen: 0, HighDensityGreen: 1000, LowDensityYellow: 2000, HighDensityYellow: 3000, HighDensityRed: 4000,
	}}

	m := uniformMap(13, 13, terrain.Elevation(500))
	f := Colorize(m, r, 600 /* cutOffAltitude above the terrain */, patterns)
	for _, p := range f.MapRows() {
		if p != (Pixel{}) {
			t.Fatalf("expected transparent below cut-off, got %+v", p)
		}
	}
}

func TestMetadataRowNormalMode(t *testing.T) {
	patterns := patternmap.Generate()
	r := threshold.Result{
		Mode:         threshold.Normal,
		MinElevation: 100,
		MaxElevation: 5000,
		Normal: threshold.NormalThresholds{
			LowDensityGreen: 300, HighDensityGreen: 1000, LowDensityYellow: 2000, HighDensityYellow: 3000, HighDensityRed: 4000,
		},
	}
	m := uniformMap(4, 4, terrain.Elevation(0))
	f := Colorize(m, r, float64(terrain.HistMinElev), patterns)

	p0 := f.MetadataPixel0()
	if p0.R != 0 || p0.G != 100 || p0.B != 5000 || p0.A != 4000 {
		t.Errorf("metadata pixel 0 = %+v, expected {0,100,5000,4000}", p0)
	}
	p1 := f.MetadataPixel1()
	if p1.R != 3000 || p1.G != 2000 || p1.B != 1000 || p1.A != 300 {
		t.Errorf("metadata pixel 1 = %+v, expected {3000,2000,1000,300}", p1)
	}
}

func TestMetadataRowPeaksMode(t *testing.T) {
	patterns := patternmap.Generate()
	r := threshold.Result{
		Mode:         threshold.Peaks,
		MinElevation: 50,
		MaxElevation: 900,
		Peaks:        threshold.PeaksThresholds{LowerDensity: 200, HigherDensity: 500, SolidDensity: 850},
	}
	m := uniformMap(4, 4, terrain.Elevation(0))
	f := Colorize(m, r, float64(terrain.HistMinElev), patterns)

	p0 := f.MetadataPixel0()
	if p0.R != 1 || p0.G != 50 || p0.B != 900 || p0.A != 850 {
		t.Errorf("metadata pixel 0 = %+v, expected {1,50,900,850}", p0)
	}
	p1 := f.MetadataPixel1()
	if p1.R != 500 || p1.G != 200 {
		t.Errorf("metadata pixel 1 = %+v, expected R=500 G=200", p1)
	}
}
