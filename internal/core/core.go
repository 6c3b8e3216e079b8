// internal/core/core.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package core wires the geodesic, tile, world-map, local-map,
// histogram, threshold, colorizer, compositor, and scheduler packages
// into the render worker described by the concurrency model: a
// single-threaded cooperative loop driven by inbound simulator
// messages, a per-side 40ms sweep ticker, and a per-side 1500ms
// inter-frame timeout, all modeled as scheduler.Timers entries rather
// than host timers so Tick can be driven by a test clock.
package core

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"time"

	"github.com/brunoga/deep"

	"github.com/flybywiresim/ndterrain/internal/accel"
	"github.com/flybywiresim/ndterrain/internal/colorizer"
	"github.com/flybywiresim/ndterrain/internal/compositor"
	"github.com/flybywiresim/ndterrain/internal/cutoff"
	"github.com/flybywiresim/ndterrain/internal/geo"
	"github.com/flybywiresim/ndterrain/internal/histogram"
	"github.com/flybywiresim/ndterrain/internal/localmap"
	"github.com/flybywiresim/ndterrain/internal/ndapi"
	"github.com/flybywiresim/ndterrain/internal/patternmap"
	"github.com/flybywiresim/ndterrain/internal/scheduler"
	"github.com/flybywiresim/ndterrain/internal/terrain"
	"github.com/flybywiresim/ndterrain/internal/threshold"
	"github.com/flybywiresim/ndterrain/internal/warmcache"
	"github.com/flybywiresim/ndterrain/internal/worldmap"
	"github.com/flybywiresim/ndterrain/log"
	"github.com/flybywiresim/ndterrain/util"
)

// Kind classifies the error conditions the design calls out by name,
// so callers can decide propagation (fatal vs. logged-and-skipped)
// without string matching.
type Kind int

const (
	MissingTerrainFile Kind = iota
	AcceleratorUnavailable
	StaleFrame
	UnknownRenderingMode
	NoPosition
	NoConfig
	FrameEncodeFailure
)

// Error wraps one of the Kind conditions with its underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("%v: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

func (k Kind) String() string {
	switch k {
	case MissingTerrainFile:
		return "MissingTerrainFile"
	case AcceleratorUnavailable:
		return "AcceleratorUnavailable"
	case StaleFrame:
		return "StaleFrame"
	case UnknownRenderingMode:
		return "UnknownRenderingMode"
	case NoPosition:
		return "NoPosition"
	case NoConfig:
		return "NoConfig"
	case FrameEncodeFailure:
		return "FrameEncodeFailure"
	default:
		return "Unknown"
	}
}

// WarmUpPosition, WarmUpHeadingDeg, WarmUpAltitudeFt, and
// WarmUpRangeNM are the synthetic warm-up parameters the concurrency
// model specifies so kernel compilation happens before the first real
// render.
var WarmUpPosition = geo.Point{Lat: 47.26, Lon: 11.35}

const (
	WarmUpHeadingDeg = 260.0
	WarmUpAltitudeFt = 1904.0
	WarmUpRangeNM    = 10.0
)

// transition is lastTransitionData: the frames and thresholds of a
// side's most recently completed (or in-progress) sweep, pulled by
// REQ_FRAME_DATA.
type transition struct {
	TimestampMS int64
	Frames      [][]byte
	Thresholds  ndapi.Thresholds
}

// sideState is everything the worker tracks for one display.
type sideState struct {
	config        ndapi.DisplayConfig
	haveConfig    bool
	firstEmission bool

	lastFrame     *image.RGBA // latched reveal from the previous completed sweep
	pendingCanvas *image.RGBA // fully-rendered target of the in-progress sweep
	pendingMeta   ndapi.TerrainMapMetadata
	pendingThresh ndapi.Thresholds

	transition transition
}

// Emission is one outbound message the caller should forward to the
// simulator collaborator: a metadata update, optionally paired with a
// PNG frame (a reset carries no frame).
type Emission struct {
	Side     ndapi.Side
	Metadata ndapi.TerrainMapMetadata
	Frame    []byte
}

// Worker is the render pipeline's single-threaded cooperative worker.
// Every exported method is meant to be called from one goroutine (the
// "dedicated worker task"); it is not safe to call concurrently from
// multiple goroutines, matching the cooperative-scheduling model.
type Worker struct {
	lg       *log.Logger
	acc      *accel.Accelerator
	store    *terrain.Store
	worldMap *worldmap.Cache
	patterns patternmap.Set
	timers   *scheduler.Timers

	mu           util.LoggingMutex
	connected    bool
	havePosition bool
	position     geo.Point
	aircraft     ndapi.AircraftState
	sides        map[ndapi.Side]*sideState
}

// New builds a Worker around store and acc. The pattern set is built
// once, here in New, and held for the worker's lifetime;
// AircraftStatusUpdate does not rebuild it. assets, if non-nil, is tried first via patternmap.GenerateFromAssets;
// a nil assets or a failed load falls back to patternmap.Generate's
// deterministic stand-in.
func New(store *terrain.Store, acc *accel.Accelerator, lg *log.Logger, assets fs.FS) *Worker {
	patterns := patternmap.Generate()
	if assets != nil {
		if loaded, err := patternmap.GenerateFromAssets(assets); err != nil {
			lg.Warnf("terrain: pattern asset bundle failed to load, using generated fallback: %v", err)
		} else {
			patterns = loaded
		}
	}

	w := &Worker{
		lg:       lg,
		acc:      acc,
		store:    store,
		worldMap: worldmap.NewCache(store, lg),
		patterns: patterns,
		timers:   scheduler.NewTimers(time.Now().UnixMilli()),
		sides:    make(map[ndapi.Side]*sideState, 2),
	}
	for _, side := range ndapi.Sides {
		w.sides[side] = &sideState{firstEmission: true}
	}
	return w
}

// WarmUp primes the accelerator's worker pool and runs one full
// pipeline pass with the synthetic warm-up position, so kernel
// compilation cost is paid before the first real frame rather than
// during it.
func (w *Worker) WarmUp(ctx context.Context) error {
	if err := w.acc.WarmUp(ctx); err != nil {
		return &Error{Kind: AcceleratorUnavailable, Err: err}
	}

	cfg := ndapi.NewDisplayConfig(true, true, WarmUpRangeNM, int(ndapi.ArcMode))
	mpp := localmap.MetersPerPixel(cfg.Range, cfg.MapHeight, cfg.ArcMode)

	m, err := localmap.Project(ctx, w.acc, w.worldMap, WarmUpPosition, WarmUpHeadingDeg, cfg.MapWidth, cfg.MapHeight, mpp, cfg.ArcMode)
	if err != nil {
		return &Error{Kind: AcceleratorUnavailable, Err: err}
	}
	hist, err := histogram.Reduce(ctx, w.acc, m)
	if err != nil {
		return &Error{Kind: AcceleratorUnavailable, Err: err}
	}
	cutOffAlt := cutoff.Altitude(w.worldMap, WarmUpPosition, WarmUpAltitudeFt, false, geo.Point{})
	result := threshold.Analyze(hist, WarmUpAltitudeFt, 0, threshold.GearDownAltitudeOffset(false), cutOffAlt)
	frame := colorizer.Colorize(m, result, cutOffAlt, w.patterns)
	canvas := compositor.Paint(frame, cfg.MapOffsetX)
	if _, err := compositor.EncodePNG(canvas); err != nil {
		return &Error{Kind: AcceleratorUnavailable, Err: err}
	}
	return nil
}

// ConnectionLost stops both sides, releases the world-map cache, and
// returns one reset emission per side that was active.
func (w *Worker) ConnectionLost() []Emission {
	w.mu.Lock(w.lg)
	defer w.mu.Unlock(w.lg)

	w.connected = false
	w.havePosition = false
	w.worldMap.Release()

	var out []Emission
	for _, side := range ndapi.Sides {
		if w.timers.Reconfigure(side) {
			out = append(out, w.resetEmission(side))
		}
		w.sides[side].haveConfig = false
	}
	return out
}

// PositionUpdate ingests a lightweight ground-truth position. A
// position arriving while a render is in flight is simply the latest
// value Tick will observe on its next pass: there is no separate
// render goroutine to coalesce against, so "coalesced" here means
// "last write wins" between Tick calls.
func (w *Worker) PositionUpdate(p ndapi.PositionData) {
	w.mu.Lock(w.lg)
	defer w.mu.Unlock(w.lg)

	w.connected = true
	w.position = geo.Point{Lat: p.Lat, Lon: p.Lon}
	w.havePosition = true
}

// AircraftStatusUpdate ingests the full aircraft state plus both
// sides' display configs, reconfiguring any side whose shape changed
// or whose active flag dropped, and activating any side newly turned
// on. It returns the reset emissions reconfiguration produces; new
// frames are produced by Tick once the side's sweep ticker fires.
func (w *Worker) AircraftStatusUpdate(state ndapi.AircraftState, configs map[ndapi.Side]ndapi.DisplayConfig) []Emission {
	w.mu.Lock(w.lg)
	defer w.mu.Unlock(w.lg)

	w.connected = true
	w.aircraft = state
	if state.ADIRUDataValid {
		w.position = geo.Point{Lat: state.Lat, Lon: state.Lon}
		w.havePosition = true
	}

	nowMS := time.Now().UnixMilli()
	var out []Emission
	for _, side := range ndapi.Sides {
		newCfg, present := configs[side]
		if !present {
			continue
		}
		s := w.sides[side]
		oldCfg, hadCfg := s.config, s.haveConfig

		if !newCfg.Active {
			if hadCfg && oldCfg.Active && w.timers.Reconfigure(side) {
				out = append(out, w.resetEmission(side))
			}
			s.config, s.haveConfig = newCfg, true
			continue
		}

		if !hadCfg || !oldCfg.Active || !oldCfg.SameShape(newCfg) {
			w.timers.Reconfigure(side)
			s.lastFrame = nil
			s.pendingCanvas = nil
			s.firstEmission = true
			s.transition = transition{}
			out = append(out, w.resetEmission(side))
			w.timers.Activate(side, nowMS)
		}
		s.config, s.haveConfig = newCfg, true
	}
	return out
}

func (w *Worker) resetEmission(side ndapi.Side) Emission {
	return Emission{Side: side, Metadata: ndapi.ResetMetadata()}
}

// DiagnosticDump reports every LoggingMutex currently held across the
// process, for use from a debug endpoint when a caller suspects the
// worker has wedged rather than simply fallen behind.
func (w *Worker) DiagnosticDump() string {
	return util.DumpHeldMutexes(w.lg)
}

// LoadWarmCache seeds the world-map cache from a snapshot previously
// saved by SaveWarmCache at path, so ExtractElevation has real samples
// to offer immediately rather than returning Invalid until the first
// position update's Update call finishes decoding tiles from scratch.
// It reports whether a usable snapshot was found; a missing or corrupt
// cache file is not an error, just a cache miss.
func (w *Worker) LoadWarmCache(path string) bool {
	w.mu.Lock(w.lg)
	defer w.mu.Unlock(w.lg)

	snap, _, err := warmcache.Retrieve(path)
	if err != nil {
		return false
	}

	g := &worldmap.Grid{
		Width:              snap.Width,
		Height:             snap.Height,
		MinSamplesPerTileX: snap.MinSamplesPerTileX,
		MinSamplesPerTileY: snap.MinSamplesPerTileY,
		SW:                 snap.SW,
		NE:                 snap.NE,
		Samples:            snap.Samples,
	}
	position := geo.Point{Lat: snap.PositionLat, Lon: snap.PositionLon}
	w.worldMap.Seed(g, position)
	w.position = position
	w.havePosition = true
	return true
}

// SaveWarmCache persists the currently assembled world-map grid to path
// under the user cache directory, for a later startup's LoadWarmCache
// call.
func (w *Worker) SaveWarmCache(path string) error {
	w.mu.Lock(w.lg)
	defer w.mu.Unlock(w.lg)

	g := w.worldMap.Grid()
	if g == nil {
		return &Error{Kind: NoPosition, Err: errors.New("no assembled world-map grid to persist")}
	}

	return warmcache.Store(path, warmcache.Snapshot{
		Width:              g.Width,
		Height:             g.Height,
		MinSamplesPerTileX: g.MinSamplesPerTileX,
		MinSamplesPerTileY: g.MinSamplesPerTileY,
		SW:                 g.SW,
		NE:                 g.NE,
		Samples:            g.Samples,
		PositionLat:        w.position.Lat,
		PositionLon:        w.position.Lon,
	})
}

// Shutdown cancels every pending timer for both sides. The caller is
// responsible for closing any transport after this returns.
func (w *Worker) Shutdown() {
	w.mu.Lock(w.lg)
	defer w.mu.Unlock(w.lg)
	for _, side := range ndapi.Sides {
		w.timers.CancelSide(side)
	}
	w.connected = false
}

// Tick processes every scheduler entry whose deadline has passed as
// of now, running the render pipeline and/or advancing sweeps as
// needed, and returns the emissions produced.
func (w *Worker) Tick(ctx context.Context, now time.Time) []Emission {
	w.mu.Lock(w.lg)
	defer w.mu.Unlock(w.lg)

	nowMS := now.UnixMilli()
	var out []Emission

	for {
		deadline, ok := w.timers.Next()
		if !ok || deadline > nowMS {
			break
		}
		side, action, ok := w.timers.Pop()
		if !ok {
			break
		}

		switch action {
		case scheduler.SweepTick:
			if em, ok := w.renderSweepTick(ctx, side, nowMS); ok {
				out = append(out, em)
			}
		case scheduler.WaitTimeout:
			w.timers.WaitElapsed(side, nowMS)
		}
	}
	return out
}

func (w *Worker) renderSweepTick(ctx context.Context, side ndapi.Side, nowMS int64) (Emission, bool) {
	s := w.sides[side]

	if s.pendingCanvas == nil {
		canvas, meta, thresh, err := w.computeFrame(ctx, side)
		if err != nil {
			w.lg.Warnf("terrain: %s render skipped: %v", side, err)
			// Transient failure: resume on the next 1500ms tick rather
			// than terminating the worker.
			w.timers.SweepAdvance(side, nowMS, true)
			return Emission{}, false
		}
		s.pendingCanvas = canvas
		s.pendingMeta = meta
		s.pendingThresh = thresh
		s.transition = transition{TimestampMS: nowMS}

		sideSched := w.timers.Side(side)
		sideSched.ResetRenderingData = false

		// The transition's startAngle is fixed for its whole duration:
		// 0 for an ordinary sweep, or resynced from elapsed time for
		// the very first emission after startup.
		fixedStart := 0.0
		if s.firstEmission {
			fixedStart = compositor.ResyncStartAngle(nowMS - sideSched.StartupTimestampMS)
		}
		sideSched.SweepStartAngle = fixedStart
		sideSched.SweepEndAngle = fixedStart
	}

	sideSched := w.timers.Side(side)
	endAngle, done := compositor.AdvanceEndAngle(sideSched.SweepEndAngle)

	canvas := compositor.Sweep(s.pendingCanvas, s.lastFrame, s.config.MapOffsetX, s.config.MapWidth, s.config.MapHeight, sideSched.SweepStartAngle, endAngle)
	png, err := compositor.EncodePNG(canvas)
	if err != nil {
		w.lg.Warnf("terrain: %s PNG encode failed: %v", side, err)
		w.timers.SweepAdvance(side, nowMS, true)
		return Emission{}, false
	}

	meta := s.pendingMeta
	meta.FirstFrame = s.firstEmission
	meta.FrameByteCount = len(png)
	s.firstEmission = false

	s.transition.Frames = append(s.transition.Frames, png)
	s.transition.Thresholds = s.pendingThresh

	sideSched.SweepEndAngle = endAngle
	w.timers.SweepAdvance(side, nowMS, done)

	if done {
		s.lastFrame = s.pendingCanvas
		s.pendingCanvas = nil
	}

	return Emission{Side: side, Metadata: meta, Frame: png}, true
}

func (w *Worker) computeFrame(ctx context.Context, side ndapi.Side) (*image.RGBA, ndapi.TerrainMapMetadata, ndapi.Thresholds, error) {
	if !w.havePosition {
		return nil, ndapi.TerrainMapMetadata{}, ndapi.Thresholds{}, &Error{Kind: NoPosition, Err: errors.New("no position available")}
	}
	s := w.sides[side]
	if !s.haveConfig {
		return nil, ndapi.TerrainMapMetadata{}, ndapi.Thresholds{}, &Error{Kind: NoConfig, Err: errors.New("no display config available")}
	}
	cfg := s.config
	if !cfg.ArcMode {
		// Rose mode is named in the data model as an extension point
		// but TerrainRenderingMode only enumerates ArcMode today.
		return nil, ndapi.TerrainMapMetadata{}, ndapi.Thresholds{}, &Error{Kind: UnknownRenderingMode, Err: errors.New("rose mode not implemented")}
	}

	w.worldMap.Update(w.position)

	dest := geo.Point{Lat: w.aircraft.DestinationLat, Lon: w.aircraft.DestinationLon}
	cutOffAlt := cutoff.Altitude(w.worldMap, w.position, w.aircraft.AltitudeFt, w.aircraft.DestinationDataValid, dest)

	mpp := localmap.MetersPerPixel(cfg.Range, cfg.MapHeight, cfg.ArcMode)
	m, err := localmap.Project(ctx, w.acc, w.worldMap, w.position, w.aircraft.HeadingDeg, cfg.MapWidth, cfg.MapHeight, mpp, cfg.ArcMode)
	if err != nil {
		return nil, ndapi.TerrainMapMetadata{}, ndapi.Thresholds{}, &Error{Kind: AcceleratorUnavailable, Err: err}
	}

	hist, err := histogram.Reduce(ctx, w.acc, m)
	if err != nil {
		return nil, ndapi.TerrainMapMetadata{}, ndapi.Thresholds{}, &Error{Kind: AcceleratorUnavailable, Err: err}
	}

	gearOffset := threshold.GearDownAltitudeOffset(w.aircraft.GearIsDown)
	result := threshold.Analyze(hist, w.aircraft.AltitudeFt, w.aircraft.VerticalSpeed, gearOffset, cutOffAlt)

	frame := colorizer.Colorize(m, result, cutOffAlt, w.patterns)
	canvas := compositor.Paint(frame, cfg.MapOffsetX)

	meta := buildMetadata(result, cutOffAlt, cfg)
	thresh := buildThresholds(meta)

	return canvas, meta, thresh, nil
}

// buildMetadata implements the outbound metadata mapping: normal mode
// reports the cut-off-adjusted green floor and red/warning ceiling;
// peaks mode reports the lower-density floor (or the no-terrain
// sentinel when nothing is above the cut-off) and always tags both
// severities PeaksModeSeverity.
func buildMetadata(r threshold.Result, cutOffAlt float64, cfg ndapi.DisplayConfig) ndapi.TerrainMapMetadata {
	meta := ndapi.TerrainMapMetadata{
		DisplayRange: cfg.Range,
		DisplayMode:  ndapi.ArcMode,
	}

	if r.Mode == threshold.Peaks {
		meta.MaximumElevation = r.MaxElevation
		if r.MaxElevation < 0 {
			meta.MinimumElevation = -1
			meta.MaximumElevation = 0
		} else {
			meta.MinimumElevation = max(r.Peaks.LowerDensity, r.MinElevation)
		}
		meta.MinimumElevationMode = ndapi.PeaksModeSeverity
		meta.MaximumElevationMode = ndapi.PeaksModeSeverity
		return meta
	}

	meta.MinimumElevation = max(cutOffAlt, r.Normal.LowDensityGreen)
	if r.Normal.LowDensityYellow <= r.Normal.HighDensityGreen {
		meta.MinimumElevationMode = ndapi.Warning
	} else {
		meta.MinimumElevationMode = ndapi.PeaksModeSeverity
	}
	meta.MaximumElevation = r.MaxElevation
	if r.MaxElevation >= r.Normal.HighDensityRed {
		meta.MaximumElevationMode = ndapi.Caution
	} else {
		meta.MaximumElevationMode = ndapi.Warning
	}
	return meta
}

// buildThresholds derives the REQ_FRAME_DATA threshold view from the
// already-computed metadata. MaxElevationIsCaution intentionally
// mirrors MaxElevationIsWarning rather than testing for ndapi.Caution:
// this is a known quirk of the upstream metadata mapping, preserved
// verbatim here for behavioral parity rather than silently fixed.
func buildThresholds(meta ndapi.TerrainMapMetadata) ndapi.Thresholds {
	return ndapi.Thresholds{
		MinElevation:          meta.MinimumElevation,
		MinElevationIsWarning: meta.MinimumElevationMode == ndapi.Warning,
		MinElevationIsCaution: meta.MinimumElevationMode == ndapi.Caution,
		MaxElevation:          meta.MaximumElevation,
		MaxElevationIsWarning: meta.MaximumElevationMode == ndapi.Warning,
		MaxElevationIsCaution: meta.MaximumElevationMode == ndapi.Warning,
	}
}

// RequestFrameData answers REQ_FRAME_DATA with a deep copy of the
// side's lastTransitionData, so the caller can't observe the worker
// mutating frames concurrently with its own use of the response.
func (w *Worker) RequestFrameData(side ndapi.Side) ndapi.FrameDataResponse {
	w.mu.Lock(w.lg)
	defer w.mu.Unlock(w.lg)

	t := deep.MustCopy(w.sides[side].transition)
	return ndapi.FrameDataResponse{
		Side:       side,
		Timestamp:  t.TimestampMS,
		Thresholds: t.Thresholds,
		Frames:     t.Frames,
	}
}
