// internal/patternmap/patternmap.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package patternmap builds the density-stipple patches the colorizer
// uses to fill a pixel's patch-relative offset with a deterministic
// low/high/solid density mask, or an alternating water pattern. The
// exact stipple bitmaps are normally supplied by an external pattern
// generator and handed to the core as an opaque baked-in texture;
// Generate produces a stand-in with the same contract (a fixed-size
// patch, an ordered-dither fill so low density is visibly sparser
// than high) so the colorizer has something concrete to sample while
// remaining swappable for a real asset later.
package patternmap

import (
	"fmt"
	"io/fs"

	"github.com/flybywiresim/ndterrain/util"
)

// PatchSize is RenderingDensityPatchSize.
const PatchSize = 13

// Patch is a PatchSize x PatchSize boolean mask: true means "draw the
// density color at this pixel", false means "leave it transparent".
type Patch [PatchSize][PatchSize]bool

// Set is the full collection of patterns the colorizer needs: three
// density levels plus the two water-stipple phases (even/odd map
// row).
type Set struct {
	Low       Patch
	High      Patch
	Solid     Patch
	WaterEven Patch
	WaterOdd  Patch
}

const (
	lowFillRatio  = 0.30
	highFillRatio = 0.65
)

// Generate builds a deterministic Set. Patterns don't depend on any
// runtime state, so a single Set can be shared across sides and
// render modes.
func Generate() Set {
	order := ditherOrder()

	return Set{
		Low:       fillPattern(order, lowFillRatio),
		High:      fillPattern(order, highFillRatio),
		Solid:     solidPattern(),
		WaterEven: waterPattern(false),
		WaterOdd:  waterPattern(true),
	}
}

// ditherOrder returns the 169 cell indices of a PatchSize x PatchSize
// patch ordered so that taking a growing prefix yields a visually even
// dither at every fill fraction, via bit-reversal of a Bayer-style
// recursive index (the same principle ordered-dithering matrices use,
// adapted to an odd patch size by working in row-major index space
// directly rather than a power-of-two matrix).
func ditherOrder() []int {
	const n = PatchSize * PatchSize
	type cell struct {
		idx int
		key uint32
	}
	cells := make([]cell, n)
	for i := 0; i < n; i++ {
		cells[i] = cell{idx: i, key: reverseBits(uint32(i), 8)}
	}
	// Stable insertion sort by key; n is small (169) and this runs
	// once at startup.
	for i := 1; i < n; i++ {
		j := i
		for j > 0 && cells[j-1].key > cells[j].key {
			cells[j-1], cells[j] = cells[j], cells[j-1]
			j--
		}
	}
	order := make([]int, n)
	for i, c := range cells {
		order[i] = c.idx
	}
	return order
}

func reverseBits(x uint32, bits int) uint32 {
	var r uint32
	for i := 0; i < bits; i++ {
		r = (r << 1) | (x & 1)
		x >>= 1
	}
	return r
}

func fillPattern(order []int, ratio float64) Patch {
	var p Patch
	n := int(ratio * float64(len(order)))
	for i := 0; i < n; i++ {
		idx := order[i]
		row, col := idx/PatchSize, idx%PatchSize
		p[row][col] = true
	}
	return p
}

func solidPattern() Patch {
	var p Patch
	for r := 0; r < PatchSize; r++ {
		for c := 0; c < PatchSize; c++ {
			p[r][c] = true
		}
	}
	return p
}

// waterPattern is a coarse diagonal stripe, offset by phase so
// consecutive map rows of water alternate their stipple's apparent
// motion.
func waterPattern(phase bool) Patch {
	var p Patch
	for r := 0; r < PatchSize; r++ {
		for c := 0; c < PatchSize; c++ {
			v := (r + c) % 4
			if phase {
				v = (r + c + 2) % 4
			}
			p[r][c] = v == 0
		}
	}
	return p
}

// At returns whether patch p draws at the pixel's (x,y) offset within
// its PatchSize x PatchSize patch.
func (p Patch) At(xInPatch, yInPatch int) bool {
	return p[yInPatch%PatchSize][xInPatch%PatchSize]
}

// assetNames maps each Set field to the baked-in resource path a real
// pattern generator would publish it under: one raw PatchSize*PatchSize
// bitmap (one byte per cell, zero/nonzero) per pattern. A ".zst" path
// here transparently decompresses via util.LoadResource.
var assetNames = map[string]string{
	"low":        "patterns/low.bin",
	"high":       "patterns/high.bin",
	"solid":      "patterns/solid.bin",
	"water_even": "patterns/water_even.bin",
	"water_odd":  "patterns/water_odd.bin",
}

// GenerateFromAssets loads a Set from baked-in resources under fsys,
// falling back to Generate's deterministic stand-in for any pattern
// whose asset is missing, so a partial asset bundle still produces a
// usable Set.
func GenerateFromAssets(fsys fs.FS) (Set, error) {
	fallback := Generate()

	load := func(name string, def Patch) (Patch, error) {
		raw, err := util.LoadResource(fsys, assetNames[name])
		if err != nil {
			return def, nil
		}
		return decodePatch(raw)
	}

	var s Set
	var err error
	if s.Low, err = load("low", fallback.Low); err != nil {
		return Set{}, fmt.Errorf("patternmap: low: %w", err)
	}
	if s.High, err = load("high", fallback.High); err != nil {
		return Set{}, fmt.Errorf("patternmap: high: %w", err)
	}
	if s.Solid, err = load("solid", fallback.Solid); err != nil {
		return Set{}, fmt.Errorf("patternmap: solid: %w", err)
	}
	if s.WaterEven, err = load("water_even", fallback.WaterEven); err != nil {
		return Set{}, fmt.Errorf("patternmap: water_even: %w", err)
	}
	if s.WaterOdd, err = load("water_odd", fallback.WaterOdd); err != nil {
		return Set{}, fmt.Errorf("patternmap: water_odd: %w", err)
	}
	return s, nil
}

func decodePatch(raw []byte) (Patch, error) {
	var p Patch
	if len(raw) != PatchSize*PatchSize {
		return p, fmt.Errorf("patternmap: expected %d bytes, got %d", PatchSize*PatchSize, len(raw))
	}
	for i, b := range raw {
		if b != 0 {
			p[i/PatchSize][i%PatchSize] = true
		}
	}
	return p, nil
}
