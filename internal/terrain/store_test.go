// internal/terrain/store_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package terrain

import (
	"io"
	"log/slog"
	"testing"

	"github.com/flybywiresim/ndterrain/internal/geo"
	"github.com/flybywiresim/ndterrain/log"
)

func testLogger() *log.Logger {
	return &log.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func smallHeader() Header {
	return Header{LatRangeDeg: 8, LonRangeDeg: 8, LatStepDeg: 1, LonStepDeg: 1, ElevationResolution: 1}
}

func TestCreateGridLookupTableOrdering(t *testing.T) {
	h := smallHeader()
	s := NewStore(h, map[GridRef]int{}, NewMemDecoder(), 50, testLogger())

	grid := s.CreateGridLookupTable(geo.Point{Lat: 0.5, Lon: 0.5})
	if len(grid) == 0 || len(grid[0]) == 0 {
		t.Fatal("expected a non-empty grid")
	}

	// North-to-south ordering: the first row's latitude must be >= the
	// last row's.
	first := grid[0][0].SW.Lat
	last := grid[len(grid)-1][0].SW.Lat
	if first < last {
		t.Errorf("expected north-to-south ordering, got first row lat %v < last row lat %v", first, last)
	}
}

func TestUpdatePositionDecodesPresentTiles(t *testing.T) {
	h := smallHeader()
	manifest := map[GridRef]int{{Row: 4, Col: 4}: 0}
	dec := NewMemDecoder()
	dec.Tiles[0] = NewElevationGrid(4, 4)

	s := NewStore(h, manifest, dec, 10, testLogger())
	grid := s.CreateGridLookupTable(geo.Point{Lat: 0.5, Lon: 0.5})

	decodedAny := s.UpdatePosition(grid)
	if !decodedAny {
		t.Fatal("expected UpdatePosition to report a newly decoded tile")
	}

	if !s.UpdatePosition(grid) {
		// Second call: nothing new to decode, but it's also not an
		// error for it to report false since everything is resident.
	}
}

func TestCleanupElevationCacheEvictsOutOfView(t *testing.T) {
	h := smallHeader()
	manifest := map[GridRef]int{{Row: 4, Col: 4}: 0}
	dec := NewMemDecoder()
	dec.Tiles[0] = NewElevationGrid(4, 4)

	s := NewStore(h, manifest, dec, 10, testLogger())

	near := geo.Point{Lat: 0.5, Lon: 0.5}
	grid := s.CreateGridLookupTable(near)
	s.UpdatePosition(grid)

	ref := GridRef{Row: 4, Col: 4}
	if _, ok := s.cache.Get(ref); !ok {
		t.Fatal("expected tile to be cached after decode")
	}

	// Jump far away and rebuild the lookup table around the new
	// position; the old tile should no longer be in the active set.
	far := geo.Point{Lat: -3.5, Lon: -3.5}
	farGrid := s.CreateGridLookupTable(far)
	s.CleanupElevationCache(farGrid)

	if _, ok := s.cache.Get(ref); ok {
		t.Error("expected out-of-view tile to be evicted from the cache")
	}
}

func TestHeaderCellRoundTrip(t *testing.T) {
	h := smallHeader()
	p := geo.Point{Lat: 1.7, Lon: -2.3}
	row, col := h.CellForLatLon(p)
	sw := h.LatLonForCell(row, col)

	if p.Lat < sw.Lat || p.Lat >= sw.Lat+float64(h.LatStepDeg) {
		t.Errorf("CellForLatLon/LatLonForCell round trip failed for lat: p=%v sw=%v", p, sw)
	}
	if p.Lon < sw.Lon || p.Lon >= sw.Lon+float64(h.LonStepDeg) {
		t.Errorf("CellForLatLon/LatLonForCell round trip failed for lon: p=%v sw=%v", p, sw)
	}
}
