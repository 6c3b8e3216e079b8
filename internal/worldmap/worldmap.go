// internal/worldmap/worldmap.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package worldmap assembles the tiles a terrain.Store has decoded
// around the aircraft's position into a single contiguous elevation
// grid, and tracks where the aircraft sits within that grid in
// sub-pixel coordinates. The local-map projector (package localmap)
// and the cut-off rule (package cutoff) both read from the grid this
// package maintains rather than walking the tile lattice themselves.
package worldmap

import (
	"math"
	"sync"

	"github.com/flybywiresim/ndterrain/internal/geo"
	"github.com/flybywiresim/ndterrain/internal/terrain"
	"github.com/flybywiresim/ndterrain/log"
)

const defaultSamplesPerTile = 300

// Pixel is a sub-pixel coordinate within a Grid: (0,0) is the
// northwest corner, x increases east, y increases south.
type Pixel struct {
	X, Y float64
}

// Grid is the contiguous elevation map assembled from the tiles
// currently in view.
type Grid struct {
	Width, Height                          int
	MinSamplesPerTileX, MinSamplesPerTileY int
	SW, NE                                 geo.Point
	Samples                                []terrain.Elevation
	EgoPixel                               Pixel
}

func newGrid(width, height int) *Grid {
	return &Grid{Width: width, Height: height, Samples: make([]terrain.Elevation, width*height)}
}

func (g *Grid) at(x, y int) terrain.Elevation {
	return g.Samples[y*g.Width+x]
}

func (g *Grid) set(x, y int, e terrain.Elevation) {
	g.Samples[y*g.Width+x] = e
}

// LatStep and LonStep are the per-pixel angular steps implied by the
// grid's geographic bounds: sample spacing must be uniform so egoPixel
// projects back to the source position.
func (g *Grid) LatStep() float64 { return (g.NE.Lat - g.SW.Lat) / float64(g.Height) }
func (g *Grid) LonStep() float64 { return (g.NE.Lon - g.SW.Lon) / float64(g.Width) }

// Cache owns the assembled Grid and rebuilds it only when the active
// tile set changes, per the world-map cache lifecycle.
type Cache struct {
	store *terrain.Store
	lg    *log.Logger

	tileLatStepDeg, tileLonStepDeg float64

	mu             sync.Mutex
	grid           *Grid
	lastTileCount  int
	havePosition   bool
	position       geo.Point
	pixelLatStep   float64
	pixelLonStep   float64
}

func NewCache(store *terrain.Store, lg *log.Logger) *Cache {
	latStep, lonStep := store.TileStepDeg()
	return &Cache{
		store:           store,
		lg:              lg,
		tileLatStepDeg:  latStep,
		tileLonStepDeg:  lonStep,
		lastTileCount:   -1,
	}
}

// Update refreshes the cache for aircraft position, decoding any newly
// visible tiles and rebuilding the contiguous grid if the active tile
// set changed. It reports whether a rebuild occurred.
func (c *Cache) Update(position geo.Point) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	lattice := c.store.CreateGridLookupTable(position)
	decodedNew := c.store.UpdatePosition(lattice)
	c.store.CleanupElevationCache(lattice)

	tileCount := 0
	for _, row := range lattice {
		tileCount += len(row)
	}

	rebuilt := false
	if decodedNew || tileCount != c.lastTileCount {
		c.rebuild(lattice)
		c.lastTileCount = tileCount
		rebuilt = true
	}

	c.position = position
	c.havePosition = true
	c.recomputeEgoPixel(lattice, position)

	return rebuilt
}

func (c *Cache) rebuild(lattice [][]*terrain.Tile) {
	minX, minY := 0, 0
	for _, row := range lattice {
		for _, t := range row {
			if !t.Present() || !t.Decoded() {
				continue
			}
			if minX == 0 || t.Map.Cols < minX {
				minX = t.Map.Cols
			}
			if minY == 0 || t.Map.Rows < minY {
				minY = t.Map.Rows
			}
		}
	}
	if minX == 0 {
		minX = defaultSamplesPerTile
	}
	if minY == 0 {
		minY = defaultSamplesPerTile
	}

	nrows := len(lattice)
	ncols := len(lattice[0])

	g := newGrid(minX*ncols, minY*nrows)
	g.MinSamplesPerTileX = minX
	g.MinSamplesPerTileY = minY

	swTile := lattice[nrows-1][0]
	neTile := lattice[0][ncols-1]
	g.SW = swTile.SW
	g.NE = geo.Point{
		Lat: neTile.SW.Lat + c.tileLatStepDeg,
		Lon: neTile.SW.Lon + c.tileLonStepDeg,
	}

	for r, row := range lattice {
		for col, t := range row {
			baseX, baseY := col*minX, r*minY
			switch {
			case !t.Present():
				fillBlock(g, baseX, baseY, minX, minY, terrain.Water)
			case !t.Decoded():
				fillBlock(g, baseX, baseY, minX, minY, terrain.Unknown)
			default:
				copyBlock(g, baseX, baseY, minX, minY, t.Map)
			}
		}
	}

	c.grid = g
	c.pixelLatStep = c.tileLatStepDeg / float64(minY)
	c.pixelLonStep = c.tileLonStepDeg / float64(minX)
}

func fillBlock(g *Grid, baseX, baseY, w, h int, e terrain.Elevation) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			g.set(baseX+x, baseY+y, e)
		}
	}
}

// copyBlock copies the top-left w x h sub-block of src into g at
// (baseX, baseY). If src is smaller than w x h in either dimension
// (a partial tile at the edge of the terrain-map file's coverage),
// the remainder is left as UNKNOWN.
func copyBlock(g *Grid, baseX, baseY, w, h int, src *terrain.ElevationGrid) {
	rows, cols := h, w
	if src.Rows < rows {
		rows = src.Rows
	}
	if src.Cols < cols {
		cols = src.Cols
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if y < rows && x < cols {
				g.set(baseX+x, baseY+y, src.At(y, x))
			} else {
				g.set(baseX+x, baseY+y, terrain.Unknown)
			}
		}
	}
}

func (c *Cache) recomputeEgoPixel(lattice [][]*terrain.Tile, position geo.Point) {
	g := c.grid
	if g == nil {
		return
	}

	for rowIdx, row := range lattice {
		for colIdx, t := range row {
			if !tileContains(t, position, c.tileLatStepDeg, c.tileLonStepDeg) {
				continue
			}
			latDelta := position.Lat - t.SW.Lat
			lonDelta := position.Lon - t.SW.Lon
			x := float64(colIdx*g.MinSamplesPerTileX) + lonDelta/c.pixelLonStep
			y := float64(rowIdx*g.MinSamplesPerTileY) + (float64(g.MinSamplesPerTileY) - latDelta/c.pixelLatStep)
			g.EgoPixel = Pixel{X: x, Y: y}
			return
		}
	}

	g.EgoPixel = Pixel{X: float64(g.Width) / 2, Y: float64(g.Height) / 2}
}

func tileContains(t *terrain.Tile, p geo.Point, latStepDeg, lonStepDeg float64) bool {
	return p.Lat >= t.SW.Lat && p.Lat < t.SW.Lat+latStepDeg &&
		p.Lon >= t.SW.Lon && p.Lon < t.SW.Lon+lonStepDeg
}

// Grid returns the currently assembled grid, or nil if Update has
// never been called.
func (c *Cache) Grid() *Grid {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grid
}

// Seed installs a pre-built grid (typically restored from a warm-start
// cache) as the cache's current grid and records position as the point
// it was assembled around, so ExtractElevation has something to sample
// immediately instead of returning Invalid until the first real Update
// completes. lastTileCount is left untouched (still -1 from NewCache) so
// the very next Update still rebuilds from the actual tile lattice
// rather than trusting the seeded grid indefinitely.
func (c *Cache) Seed(g *Grid, position geo.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grid = g
	c.position = position
	c.havePosition = true
	c.pixelLatStep = g.LatStep()
	c.pixelLonStep = g.LonStep()
}

// Release drops the assembled grid and forgets the last known
// position, used on connectionLost so a later reconnect rebuilds from
// scratch rather than sampling a stale cache.
func (c *Cache) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grid = nil
	c.lastTileCount = -1
	c.havePosition = false
}

// ExtractElevation samples the cached grid at (lat, lon), working from
// the last updated aircraft position and egoPixel rather than
// recomputing a tile lookup. Out-of-range coordinates return UNKNOWN;
// an empty cache (no successful Update yet) returns INVALID.
func (c *Cache) ExtractElevation(lat, lon float64) terrain.Elevation {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.grid == nil || !c.havePosition {
		return terrain.Invalid
	}

	dy := (c.position.Lat - lat) / c.pixelLatStep
	dx := (lon - c.position.Lon) / c.pixelLonStep

	px := int(math.Floor(c.grid.EgoPixel.X + dx))
	py := int(math.Floor(c.grid.EgoPixel.Y + dy))

	if px < 0 || px >= c.grid.Width || py < 0 || py >= c.grid.Height {
		return terrain.Unknown
	}
	return c.grid.at(px, py)
}
