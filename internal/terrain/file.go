// internal/terrain/file.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package terrain

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/flybywiresim/ndterrain/internal/geo"
)

// Header is the little-endian terrain-map file header. The core never
// parses the packed tile payload itself — that's the job of the
// external Decoder collaborator — but it owns the header since the
// lattice geometry (tile count, angular step, SW origin) is needed to
// answer visibility queries before any tile has been decoded.
type Header struct {
	LatRangeDeg         int16
	LonRangeDeg         int16
	LatStepDeg          uint8
	LonStepDeg          uint8
	ElevationResolution uint16
}

func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h.LatRangeDeg); err != nil {
		return h, fmt.Errorf("terrain: reading latRange: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.LonRangeDeg); err != nil {
		return h, fmt.Errorf("terrain: reading lonRange: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.LatStepDeg); err != nil {
		return h, fmt.Errorf("terrain: reading latStep: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.LonStepDeg); err != nil {
		return h, fmt.Errorf("terrain: reading lonStep: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &h.ElevationResolution); err != nil {
		return h, fmt.Errorf("terrain: reading elevationResolution: %w", err)
	}
	if h.LatStepDeg == 0 || h.LonStepDeg == 0 {
		return h, fmt.Errorf("terrain: degenerate angular step in header")
	}
	return h, nil
}

// Rows is the number of tile-lattice rows spanning the header's latitude
// range.
func (h Header) Rows() int { return int(h.LatRangeDeg) / int(h.LatStepDeg) }

// Cols is the number of tile-lattice columns spanning the header's
// longitude range.
func (h Header) Cols() int { return int(h.LonRangeDeg) / int(h.LonStepDeg) }

// SWOrigin returns the southwest corner of the tile lattice, assuming the
// file covers a latitude-centered, longitude-centered span (e.g.
// -90..+90, -180..+180 for whole-earth coverage).
func (h Header) SWOrigin() geo.Point {
	return geo.Point{Lat: -float64(h.LatRangeDeg) / 2, Lon: -float64(h.LonRangeDeg) / 2}
}

// LatLonForCell returns the SW corner of lattice cell (row, col).
func (h Header) LatLonForCell(row, col int) geo.Point {
	origin := h.SWOrigin()
	return geo.Point{
		Lat: origin.Lat + float64(row)*float64(h.LatStepDeg),
		Lon: origin.Lon + float64(col)*float64(h.LonStepDeg),
	}
}

// CellForLatLon returns the lattice (row, col) containing p.
func (h Header) CellForLatLon(p geo.Point) (row, col int) {
	origin := h.SWOrigin()
	row = int((p.Lat - origin.Lat) / float64(h.LatStepDeg))
	col = int((p.Lon - origin.Lon) / float64(h.LonStepDeg))
	return row, col
}

// Decoder lazily materializes the elevation samples packed at a given
// tileIndex within the terrain-map file. Implementations live outside
// this module as an external collaborator; MemDecoder below is a small
// in-memory stand-in used by tests.
type Decoder interface {
	DecodeTile(tileIdx int) (*ElevationGrid, error)
}

// MemDecoder is a Decoder backed by elevation grids held in memory,
// useful for tests and for the synthetic warm-up pass where no real
// terrain-map file is available yet.
type MemDecoder struct {
	Tiles map[int]*ElevationGrid
}

func NewMemDecoder() *MemDecoder {
	return &MemDecoder{Tiles: make(map[int]*ElevationGrid)}
}

func (m *MemDecoder) DecodeTile(tileIdx int) (*ElevationGrid, error) {
	g, ok := m.Tiles[tileIdx]
	if !ok {
		return nil, fmt.Errorf("terrain: no tile at index %d in MemDecoder", tileIdx)
	}
	return g, nil
}
