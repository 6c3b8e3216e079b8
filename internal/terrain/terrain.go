// internal/terrain/terrain.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package terrain owns the decoded digital elevation model: the tile
// lattice, lazy per-tile decoding, and the visibility-driven cache that
// the world-map assembler (package worldmap) builds its contiguous grid
// from.
package terrain

import "github.com/flybywiresim/ndterrain/internal/geo"

// Elevation is a sample from the DEM, in feet. Three sentinel values carry
// special meaning; every other value is a true elevation.
type Elevation int32

const (
	Invalid Elevation = 32767
	Unknown Elevation = 32766
	Water   Elevation = -1

	HistMinElev Elevation = -500
	HistMaxElev Elevation = 29040
)

// Eligible reports whether e should contribute to the elevation
// histogram: it must not be a sentinel and must fall within the
// histogram's supported range.
func (e Elevation) Eligible() bool {
	return e != Invalid && e != Unknown && e != Water && e >= HistMinElev && e <= HistMaxElev
}

// NoTileIndex is the TileIdx of a tile lattice cell that is not backed
// by any tile in the terrain-map file.
const NoTileIndex = -1

// ElevationGrid is a decoded rectangular block of elevation samples,
// row-major with the origin at the northwest (top-left) corner, matching
// the orientation the world-map cache composites tiles in.
type ElevationGrid struct {
	Rows, Cols int
	Samples    []Elevation
}

func NewElevationGrid(rows, cols int) *ElevationGrid {
	return &ElevationGrid{Rows: rows, Cols: cols, Samples: make([]Elevation, rows*cols)}
}

func (g *ElevationGrid) At(row, col int) Elevation {
	return g.Samples[row*g.Cols+col]
}

func (g *ElevationGrid) Set(row, col int, e Elevation) {
	g.Samples[row*g.Cols+col] = e
}

// Tile is one cell of the global tile lattice: a lat/lon-aligned
// rectangle that may or may not be backed by the terrain-map file, and
// whose elevation samples are decoded lazily on first visibility.
type Tile struct {
	Row, Col int // indices into the global lattice
	SW       geo.Point
	// TileIdx is the offset of this tile's packed samples within the
	// terrain-map file, or NoTileIndex if the lattice cell has no tile
	// (open ocean beyond the file's coverage, for example).
	TileIdx int

	Map *ElevationGrid // nil until decoded
}

func (t *Tile) Present() bool { return t.TileIdx != NoTileIndex }
func (t *Tile) Decoded() bool { return t.Map != nil }

// GridRef is the lattice coordinate of a Tile, used as a cache key.
type GridRef struct{ Row, Col int }
