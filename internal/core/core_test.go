// internal/core/core_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package core

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/flybywiresim/ndterrain/internal/accel"
	"github.com/flybywiresim/ndterrain/internal/ndapi"
	"github.com/flybywiresim/ndterrain/internal/patternmap"
	"github.com/flybywiresim/ndterrain/internal/terrain"
	"github.com/flybywiresim/ndterrain/log"
)

func testLogger() *log.Logger {
	return &log.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// buildTestStore covers a 100x40 degree lattice around the warm-up
// position with 5-degree, fully-decoded, uniform-elevation tiles, so
// computeFrame always has real terrain to sample.
func buildTestStore(t *testing.T) *terrain.Store {
	t.Helper()
	// Header.SWOrigin assumes a world-centered lattice (origin at
	// -range/2), so the range must actually bracket the warm-up
	// position (47.26N, 11.35E) even though the tiles themselves are
	// coarse (5 degrees) to keep the fixture small.
	header := terrain.Header{LatRangeDeg: 100, LonRangeDeg: 40, LatStepDeg: 5, LonStepDeg: 5, ElevationResolution: 1}

	manifest := make(map[terrain.GridRef]int)
	decoder := terrain.NewMemDecoder()
	idx := 0
	for row := 0; row < header.Rows(); row++ {
		for col := 0; col < header.Cols(); col++ {
			manifest[terrain.GridRef{Row: row, Col: col}] = idx
			g := terrain.NewElevationGrid(10, 10)
			for i := range g.Samples {
				g.Samples[i] = 1500
			}
			decoder.Tiles[idx] = g
			idx++
		}
	}
	return terrain.NewStore(header, manifest, decoder, 10, testLogger())
}

func newTestWorker(t *testing.T) *Worker {
	t.Helper()
	store := buildTestStore(t)
	acc := accel.New(2)
	return New(store, acc, testLogger(), nil)
}

func activeConfigs(rangeNM float64) map[ndapi.Side]ndapi.DisplayConfig {
	cfg := ndapi.NewDisplayConfig(true, true, rangeNM, int(ndapi.ArcMode))
	return map[ndapi.Side]ndapi.DisplayConfig{ndapi.Capt: cfg, ndapi.FO: cfg}
}

func TestWarmUpSucceeds(t *testing.T) {
	w := newTestWorker(t)
	if err := w.WarmUp(context.Background()); err != nil {
		t.Fatalf("WarmUp: %v", err)
	}
}

func TestAircraftStatusUpdateActivatesAndEmitsReset(t *testing.T) {
	w := newTestWorker(t)
	w.PositionUpdate(ndapi.PositionData{Lat: WarmUpPosition.Lat, Lon: WarmUpPosition.Lon})

	emissions := w.AircraftStatusUpdate(ndapi.AircraftState{
		ADIRUDataValid: true, Lat: WarmUpPosition.Lat, Lon: WarmUpPosition.Lon,
		AltitudeFt: WarmUpAltitudeFt, HeadingDeg: WarmUpHeadingDeg,
	}, activeConfigs(WarmUpRangeNM))

	if len(emissions) != 2 {
		t.Fatalf("expected one reset emission per side, got %d", len(emissions))
	}
	for _, em := range emissions {
		if em.Frame != nil {
			t.Fatalf("reset emission should carry no frame, got %d bytes", len(em.Frame))
		}
		if em.Metadata.MinimumElevation != -1 || em.Metadata.MaximumElevation != -1 || !em.Metadata.FirstFrame {
			t.Fatalf("reset metadata = %+v, want the ResetMetadata sentinel", em.Metadata)
		}
	}
}

func TestTickProducesFrameAfterActivation(t *testing.T) {
	w := newTestWorker(t)
	w.PositionUpdate(ndapi.PositionData{Lat: WarmUpPosition.Lat, Lon: WarmUpPosition.Lon})
	w.AircraftStatusUpdate(ndapi.AircraftState{
		ADIRUDataValid: true, Lat: WarmUpPosition.Lat, Lon: WarmUpPosition.Lon,
		AltitudeFt: WarmUpAltitudeFt, HeadingDeg: WarmUpHeadingDeg,
	}, activeConfigs(WarmUpRangeNM))

	now := time.Now()
	emissions := w.Tick(context.Background(), now.Add(scheduleAdvance()))
	if len(emissions) == 0 {
		t.Fatal("expected at least one emission from the first sweep tick")
	}
	for _, em := range emissions {
		if em.Frame == nil {
			t.Fatalf("first sweep tick should emit a PNG frame for side %v", em.Side)
		}
		if !em.Metadata.FirstFrame {
			t.Fatalf("first emitted frame should have FirstFrame=true")
		}
	}
}

func scheduleAdvance() time.Duration { return 50 * time.Millisecond }

func TestFullSweepCompletesAndLatchesLastFrame(t *testing.T) {
	w := newTestWorker(t)
	w.PositionUpdate(ndapi.PositionData{Lat: WarmUpPosition.Lat, Lon: WarmUpPosition.Lon})
	w.AircraftStatusUpdate(ndapi.AircraftState{
		ADIRUDataValid: true, Lat: WarmUpPosition.Lat, Lon: WarmUpPosition.Lon,
		AltitudeFt: WarmUpAltitudeFt, HeadingDeg: WarmUpHeadingDeg,
	}, activeConfigs(WarmUpRangeNM))

	now := time.Now()
	var sawWaiting bool
	for i := 1; i <= 30; i++ {
		now = now.Add(40 * time.Millisecond)
		w.Tick(context.Background(), now)
		if w.sides[ndapi.Capt].lastFrame != nil {
			sawWaiting = true
			break
		}
	}
	if !sawWaiting {
		t.Fatal("expected the sweep to complete and latch lastFrame within 30 ticks")
	}
}

func TestConnectionLostEmitsResetAndClearsPosition(t *testing.T) {
	w := newTestWorker(t)
	w.PositionUpdate(ndapi.PositionData{Lat: WarmUpPosition.Lat, Lon: WarmUpPosition.Lon})
	w.AircraftStatusUpdate(ndapi.AircraftState{
		ADIRUDataValid: true, Lat: WarmUpPosition.Lat, Lon: WarmUpPosition.Lon,
		AltitudeFt: WarmUpAltitudeFt, HeadingDeg: WarmUpHeadingDeg,
	}, activeConfigs(WarmUpRangeNM))

	emissions := w.ConnectionLost()
	if len(emissions) != 2 {
		t.Fatalf("expected a reset for both active sides, got %d", len(emissions))
	}
	if w.havePosition {
		t.Fatal("ConnectionLost should clear havePosition")
	}
}

func TestRequestFrameDataReturnsIndependentCopy(t *testing.T) {
	w := newTestWorker(t)
	w.PositionUpdate(ndapi.PositionData{Lat: WarmUpPosition.Lat, Lon: WarmUpPosition.Lon})
	w.AircraftStatusUpdate(ndapi.AircraftState{
		ADIRUDataValid: true, Lat: WarmUpPosition.Lat, Lon: WarmUpPosition.Lon,
		AltitudeFt: WarmUpAltitudeFt, HeadingDeg: WarmUpHeadingDeg,
	}, activeConfigs(WarmUpRangeNM))

	now := time.Now()
	w.Tick(context.Background(), now.Add(40*time.Millisecond))

	resp := w.RequestFrameData(ndapi.Capt)
	if len(resp.Frames) == 0 {
		t.Fatal("expected at least one buffered frame after a sweep tick")
	}
	resp.Frames[0][0] = 0xFF // mutate the copy

	resp2 := w.RequestFrameData(ndapi.Capt)
	if len(resp2.Frames) == 0 || resp2.Frames[0][0] == 0xFF {
		t.Fatal("mutating a returned snapshot should not affect the worker's internal state")
	}
}

func TestNewLoadsPatternsFromAssetFS(t *testing.T) {
	store := buildTestStore(t)
	acc := accel.New(2)

	solidBytes := make([]byte, patternmap.PatchSize*patternmap.PatchSize)
	for i := range solidBytes {
		solidBytes[i] = 1
	}
	assets := fstest.MapFS{"patterns/low.bin": {Data: solidBytes}}

	w := New(store, acc, testLogger(), assets)
	if w.patterns.Low != (patternmap.Generate().Solid) {
		// The asset for "low" was a fully-filled patch, so it should
		// read back identically to the built-in solid pattern.
		t.Fatalf("New did not load the supplied low-density asset")
	}
}

func TestNewFallsBackToGeneratedPatternsWithoutAssets(t *testing.T) {
	store := buildTestStore(t)
	acc := accel.New(2)

	w := New(store, acc, testLogger(), nil)
	if w.patterns != patternmap.Generate() {
		t.Fatal("New without an asset FS should use patternmap.Generate's fallback")
	}
}

func TestSaveAndLoadWarmCacheRoundTrip(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	w := newTestWorker(t)
	w.PositionUpdate(ndapi.PositionData{Lat: WarmUpPosition.Lat, Lon: WarmUpPosition.Lon})
	w.AircraftStatusUpdate(ndapi.AircraftState{
		ADIRUDataValid: true, Lat: WarmUpPosition.Lat, Lon: WarmUpPosition.Lon,
		AltitudeFt: WarmUpAltitudeFt, HeadingDeg: WarmUpHeadingDeg,
	}, activeConfigs(WarmUpRangeNM))
	w.Tick(context.Background(), time.Now().Add(40*time.Millisecond))

	if err := w.SaveWarmCache("worldmap-test"); err != nil {
		t.Fatalf("SaveWarmCache: %v", err)
	}

	fresh := newTestWorker(t)
	if !fresh.LoadWarmCache("worldmap-test") {
		t.Fatal("expected LoadWarmCache to find the just-saved snapshot")
	}
	if !fresh.havePosition {
		t.Fatal("LoadWarmCache should leave the worker with a known position")
	}
	if e := fresh.worldMap.ExtractElevation(WarmUpPosition.Lat, WarmUpPosition.Lon); e == terrain.Invalid {
		t.Fatal("expected a real sample from the warm-started grid")
	}
}

func TestLoadWarmCacheMissingFileReturnsFalse(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	w := newTestWorker(t)
	if w.LoadWarmCache("does-not-exist") {
		t.Fatal("expected LoadWarmCache to report a miss for a nonexistent cache file")
	}
}

func TestDiagnosticDumpReportsNoMutexesHeldAtRest(t *testing.T) {
	w := newTestWorker(t)
	if got := w.DiagnosticDump(); !strings.Contains(got, "0 mutexes held") {
		t.Errorf("DiagnosticDump() = %q, want it to report 0 mutexes held at rest", got)
	}
}

func TestDeactivateReconfiguresWithoutNewFrames(t *testing.T) {
	w := newTestWorker(t)
	w.PositionUpdate(ndapi.PositionData{Lat: WarmUpPosition.Lat, Lon: WarmUpPosition.Lon})
	configs := activeConfigs(WarmUpRangeNM)
	w.AircraftStatusUpdate(ndapi.AircraftState{
		ADIRUDataValid: true, Lat: WarmUpPosition.Lat, Lon: WarmUpPosition.Lon,
		AltitudeFt: WarmUpAltitudeFt, HeadingDeg: WarmUpHeadingDeg,
	}, configs)

	off := configs[ndapi.Capt]
	off.Active = false
	emissions := w.AircraftStatusUpdate(ndapi.AircraftState{
		ADIRUDataValid: true, Lat: WarmUpPosition.Lat, Lon: WarmUpPosition.Lon,
		AltitudeFt: WarmUpAltitudeFt, HeadingDeg: WarmUpHeadingDeg,
	}, map[ndapi.Side]ndapi.DisplayConfig{ndapi.Capt: off, ndapi.FO: configs[ndapi.FO]})

	found := false
	for _, em := range emissions {
		if em.Side == ndapi.Capt {
			found = true
			if em.Frame != nil {
				t.Fatal("deactivation should only emit a reset, never a frame")
			}
		}
	}
	if !found {
		t.Fatal("expected a reset emission for the deactivated side")
	}

	if _, ok := w.timers.Next(); !ok {
		t.Fatal("FO should still have a pending sweep tick after Capt deactivates")
	}
}
