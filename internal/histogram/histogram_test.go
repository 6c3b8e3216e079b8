// internal/histogram/histogram_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package histogram

import (
	"context"
	"testing"

	"github.com/flybywiresim/ndterrain/internal/accel"
	"github.com/flybywiresim/ndterrain/internal/localmap"
	"github.com/flybywiresim/ndterrain/internal/terrain"
)

func buildMap(width, height int, fill func(x, y int) terrain.Elevation) *localmap.Map {
	m := &localmap.Map{Width: width, Height: height, Samples: make([]terrain.Elevation, width*height)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			m.Samples[y*width+x] = fill(x, y)
		}
	}
	return m
}

func TestReduceSumsEligibleSamples(t *testing.T) {
	const w, h = 300, 260 // spans multiple 128x128 patches in both axes
	m := buildMap(w, h, func(x, y int) terrain.Elevation {
		switch {
		case x%7 == 0:
			return terrain.Water
		case x%11 == 0:
			return terrain.Unknown
		default:
			return terrain.Elevation(x + y) // small positive elevations, all eligible
		}
	})

	acc := accel.New(4)
	hist, err := Reduce(context.Background(), acc, m)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}

	eligible := int64(0)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if m.At(x, y).Eligible() {
				eligible++
			}
		}
	}

	if hist.Sum() != eligible {
		t.Errorf("histogram sum = %d, expected %d eligible samples", hist.Sum(), eligible)
	}
}

func TestBinForSentinelsIneligible(t *testing.T) {
	for _, e := range []terrain.Elevation{terrain.Invalid, terrain.Unknown, terrain.Water} {
		if bin := BinFor(e); bin != -1 {
			t.Errorf("BinFor(%v) = %d, expected -1", e, bin)
		}
	}
}

func TestBinForBoundaries(t *testing.T) {
	if bin := BinFor(terrain.HistMinElev); bin != 0 {
		t.Errorf("BinFor(HistMinElev) = %d, expected 0", bin)
	}
	if bin := BinFor(terrain.HistMaxElev); bin != BinCount-1 {
		t.Errorf("BinFor(HistMaxElev) = %d, expected %d", bin, BinCount-1)
	}
}

func TestReduceEmptyMapIsAllZero(t *testing.T) {
	m := buildMap(64, 64, func(x, y int) terrain.Elevation { return terrain.Water })
	acc := accel.New(2)
	hist, err := Reduce(context.Background(), acc, m)
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}
	if hist.Sum() != 0 {
		t.Errorf("expected empty histogram, got sum %d", hist.Sum())
	}
}
