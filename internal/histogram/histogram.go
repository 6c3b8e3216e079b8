// internal/histogram/histogram.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package histogram reduces a local elevation map to a fixed-length
// frequency vector in two passes: a per-patch histogram (sized so a
// GPU-style kernel can run one invocation per patch), then a
// columnwise sum of the patches into the final result. The two-pass
// shape exists to amortize the GPU-to-CPU transfer a real accelerator
// backend would pay for a full-resolution reduction; accel.Accelerator
// runs pass one with one dispatch row per row of patches.
package histogram

import (
	"context"

	"github.com/flybywiresim/ndterrain/internal/accel"
	"github.com/flybywiresim/ndterrain/internal/localmap"
	"github.com/flybywiresim/ndterrain/internal/terrain"
)

const (
	// BinCount is ceil((29040 - (-500) + 1) / 100).
	BinCount = 296
	// PatchSize is HIST_PATCH_SIZE: the side length, in pixels, of the
	// tiles pass one reduces independently.
	PatchSize = 128
)

// BinFor returns the histogram bin index for e, or -1 if e isn't
// histogram-eligible.
func BinFor(e terrain.Elevation) int {
	if !e.Eligible() {
		return -1
	}
	return int((e - terrain.HistMinElev) / 100)
}

// Histogram is the length-296 frequency vector produced by Reduce.
type Histogram [BinCount]int32

// Sum returns the total eligible-sample count across all bins.
func (h Histogram) Sum() int64 {
	var total int64
	for _, c := range h {
		total += int64(c)
	}
	return total
}

// patchGrid returns the number of patch rows and columns covering a
// mapWidth x mapHeight local map.
func patchGrid(mapWidth, mapHeight int) (patchRows, patchCols int) {
	patchRows = (mapHeight + PatchSize - 1) / PatchSize
	patchCols = (mapWidth + PatchSize - 1) / PatchSize
	return
}

// Reduce runs the two-pass reduction over m using acc to parallelize
// pass one across patch rows.
func Reduce(ctx context.Context, acc *accel.Accelerator, m *localmap.Map) (Histogram, error) {
	patchRows, patchCols := patchGrid(m.Width, m.Height)
	patchCount := patchRows * patchCols

	// Pass 1: one length-296 histogram per patch, row-major.
	patches := make([]Histogram, patchCount)

	err := acc.Dispatch(ctx, patchRows, func(_ context.Context, pr int) error {
		y0 := pr * PatchSize
		y1 := y0 + PatchSize
		if y1 > m.Height {
			y1 = m.Height
		}

		for pc := 0; pc < patchCols; pc++ {
			x0 := pc * PatchSize
			x1 := x0 + PatchSize
			if x1 > m.Width {
				x1 = m.Width
			}

			var h Histogram
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					if bin := BinFor(m.At(x, y)); bin >= 0 {
						h[bin]++
					}
				}
			}
			patches[pr*patchCols+pc] = h
		}
		return nil
	})
	if err != nil {
		return Histogram{}, err
	}

	// Pass 2: columnwise sum across patches.
	var total Histogram
	for _, p := range patches {
		for bin, c := range p {
			total[bin] += c
		}
	}
	return total, nil
}
