// internal/terrain/store.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package terrain

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/flybywiresim/ndterrain/internal/geo"
	"github.com/flybywiresim/ndterrain/log"
)

// Store owns the tile lattice and the lazily-decoded elevation maps
// backing it. It answers "which tiles cover the visibility disc around
// P?" (CreateGridLookupTable), decodes whatever in that set isn't yet
// resident (UpdatePosition), and evicts decoded tiles that have fallen
// out of view (CleanupElevationCache).
type Store struct {
	header   Header
	manifest map[GridRef]int // lattice cell -> tile file index; absent cells are omitted
	decoder  Decoder
	lg       *log.Logger

	// VisibilityRange is the disc radius, in nautical miles, that
	// CreateGridLookupTable covers. It's configured externally: set once
	// from NewStore's visibilityRangeNM (render.Config.VisibilityRangeNM,
	// 10nm by default) and not adjusted to the sides' display ranges.
	VisibilityRange float64

	mu    sync.Mutex
	tiles map[GridRef]*Tile
	cache *lru.Cache[GridRef, *ElevationGrid]
}

const defaultCacheTiles = 64

func NewStore(header Header, manifest map[GridRef]int, decoder Decoder, visibilityRangeNM float64, lg *log.Logger) *Store {
	cache, _ := lru.New[GridRef, *ElevationGrid](defaultCacheTiles)
	return &Store{
		header:          header,
		manifest:        manifest,
		decoder:         decoder,
		lg:              lg,
		VisibilityRange: visibilityRangeNM,
		tiles:           make(map[GridRef]*Tile),
		cache:           cache,
	}
}

// TileStepDeg returns the DEM header's per-tile angular step, in
// degrees, as (latStep, lonStep).
func (s *Store) TileStepDeg() (latStep, lonStep float64) {
	return float64(s.header.LatStepDeg), float64(s.header.LonStepDeg)
}

func (s *Store) tileAt(row, col int) *Tile {
	ref := GridRef{Row: row, Col: col}
	if t, ok := s.tiles[ref]; ok {
		return t
	}

	idx, present := s.manifest[ref]
	if !present {
		idx = NoTileIndex
	}

	t := &Tile{Row: row, Col: col, SW: s.header.LatLonForCell(row, col), TileIdx: idx}
	if g, ok := s.cache.Get(ref); ok {
		t.Map = g
	}
	s.tiles[ref] = t
	return t
}

// CreateGridLookupTable returns the smallest axis-aligned rectangle of
// lattice cells that contains the visibility disc of radius
// s.VisibilityRange centered at position, ordered north-to-south,
// west-to-east so that grid[0][0] is the northwesternmost tile — the
// same orientation the world-map assembler composites into its output
// grid.
func (s *Store) CreateGridLookupTable(position geo.Point) [][]*Tile {
	s.mu.Lock()
	defer s.mu.Unlock()

	const metersPerNM = 1852.0
	distM := s.VisibilityRange * metersPerNM

	swLat, swLon := geo.ProjectWGS84(position.Lat, position.Lon, 225, distM)
	neLat, neLon := geo.ProjectWGS84(position.Lat, position.Lon, 45, distM)

	rowMin, colMin := s.header.CellForLatLon(geo.Point{Lat: swLat, Lon: swLon})
	rowMax, colMax := s.header.CellForLatLon(geo.Point{Lat: neLat, Lon: neLon})

	if rowMin > rowMax {
		rowMin, rowMax = rowMax, rowMin
	}
	if colMin > colMax {
		colMin, colMax = colMax, colMin
	}

	nrows := rowMax - rowMin + 1
	ncols := colMax - colMin + 1
	grid := make([][]*Tile, nrows)
	for gr := 0; gr < nrows; gr++ {
		grid[gr] = make([]*Tile, ncols)
		// North-to-south: higher latitude rows first.
		row := rowMax - gr
		for gc := 0; gc < ncols; gc++ {
			col := colMin + gc
			grid[gr][gc] = s.tileAt(row, col)
		}
	}
	return grid
}

// UpdatePosition decodes any tile in grid that is present in the
// terrain-map file but not yet resident in memory, and reports whether
// any new tile was decoded (the world-map cache uses this to decide
// whether it must rebuild its contiguous grid).
func (s *Store) UpdatePosition(grid [][]*Tile) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	decodedAny := false
	for _, row := range grid {
		for _, t := range row {
			if !t.Present() || t.Decoded() {
				continue
			}
			m, err := s.decoder.DecodeTile(t.TileIdx)
			if err != nil {
				s.lg.Warnf("terrain: failed to decode tile %d at (%d,%d): %v", t.TileIdx, t.Row, t.Col, err)
				continue
			}
			t.Map = m
			s.cache.Add(GridRef{Row: t.Row, Col: t.Col}, m)
			decodedAny = true
		}
	}
	return decodedAny
}

// CleanupElevationCache evicts any cached ElevationMap that isn't
// referenced by grid.
func (s *Store) CleanupElevationCache(grid [][]*Tile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make(map[GridRef]bool, len(grid)*len(grid[0]))
	for _, row := range grid {
		for _, t := range row {
			active[GridRef{Row: t.Row, Col: t.Col}] = true
		}
	}

	for _, ref := range s.cache.Keys() {
		if !active[ref] {
			s.cache.Remove(ref)
			if t, ok := s.tiles[ref]; ok {
				t.Map = nil
			}
		}
	}
}
