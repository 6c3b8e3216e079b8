// cmd/ndcore/main.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// ndcore is a minimal standalone harness for the navigation-display
// terrain worker: it opens a terrain-map file, runs the warm-up pass,
// then drives the render loop against a synthetic flight so the
// pipeline can be exercised without a simulator collaborator attached.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/flybywiresim/ndterrain/internal/accel"
	"github.com/flybywiresim/ndterrain/internal/core"
	"github.com/flybywiresim/ndterrain/internal/ndapi"
	"github.com/flybywiresim/ndterrain/internal/render"
	"github.com/flybywiresim/ndterrain/internal/rpc"
	"github.com/flybywiresim/ndterrain/internal/terrain"
	"github.com/flybywiresim/ndterrain/log"
)

var (
	terrainFile   = flag.String("terrain", "", "path to a terrain-map file (omitted: start with an empty world)")
	nWorkers      = flag.Int("nworkers", 0, "accelerator worker count (0: GOMAXPROCS)")
	logDir        = flag.String("logdir", "", "log directory (empty: platform default)")
	ticks         = flag.Int("ticks", 60, "number of 40ms ticks to run the synthetic flight for")
	patternsDir   = flag.String("patterns", "", "directory of baked-in density-pattern assets (omitted: use the generated stand-in)")
	warmCachePath = flag.String("warmcache", "", "warm-start cache file name under the user cache dir (empty: skip warm-start load/save)")
)

func main() {
	flag.Parse()
	cfg := render.Default()
	cfg.Workers = *nWorkers
	cfg.LogDir = *logDir

	lg := log.New(true, cfg.LogLevel, cfg.LogDir)

	header, manifest, decoder, err := openTerrainFile(*terrainFile, lg)
	if err != nil {
		lg.Errorf("terrain: %v", err)
		os.Exit(1)
	}

	store := terrain.NewStore(header, manifest, decoder, cfg.VisibilityRangeNM, lg)
	acc := accel.New(cfg.Workers)

	var assets fs.FS
	if *patternsDir != "" {
		assets = os.DirFS(*patternsDir)
	}
	worker := core.New(store, acc, lg, assets)

	if *warmCachePath != "" {
		if worker.LoadWarmCache(*warmCachePath) {
			lg.Infof("terrain: warm-started world map from %s", *warmCachePath)
		} else {
			lg.Infof("terrain: no usable warm-start cache at %s, starting cold", *warmCachePath)
		}
	}

	ctx := context.Background()
	if err := worker.WarmUp(ctx); err != nil {
		lg.Errorf("terrain: warm-up failed: %v", err)
		os.Exit(1)
	}

	worker.PositionUpdate(ndapi.PositionData{Lat: cfg.WarmUpPosition.Lat, Lon: cfg.WarmUpPosition.Lon})
	dispCfg := ndapi.NewDisplayConfig(true, true, cfg.WarmUpRangeNM, int(ndapi.ArcMode))
	worker.AircraftStatusUpdate(ndapi.AircraftState{
		ADIRUDataValid: true,
		Lat:            cfg.WarmUpPosition.Lat,
		Lon:            cfg.WarmUpPosition.Lon,
		AltitudeFt:     cfg.WarmUpAltitudeFt,
		HeadingDeg:     cfg.WarmUpHeadingDeg,
	}, map[ndapi.Side]ndapi.DisplayConfig{ndapi.Capt: dispCfg, ndapi.FO: dispCfg})

	now := time.Now()
	frameCount := 0
	for i := 0; i < *ticks; i++ {
		now = now.Add(40 * time.Millisecond)
		for _, em := range worker.Tick(ctx, now) {
			if em.Frame != nil {
				frameCount++
			}
		}
	}

	fmt.Printf("rendered %d frames across %d ticks\n", frameCount, *ticks)

	if *warmCachePath != "" {
		if err := worker.SaveWarmCache(*warmCachePath); err != nil {
			lg.Warnf("terrain: warm-cache save failed: %v", err)
		}
	}

	reportFrameData(worker, lg)
	worker.Shutdown()
}

// reportFrameData answers a REQ_FRAME_DATA-shaped request for each side
// through the same msgpack wire envelope the simulator collaborator
// would use over its transport, round-tripping the response through
// rpc.EncodeFrameDataResponse/Decode/DecodeFrameDataResponse rather than
// reading the worker's in-process return value directly.
func reportFrameData(worker *core.Worker, lg *log.Logger) {
	for _, side := range ndapi.Sides {
		resp := worker.RequestFrameData(side)

		wire, err := rpc.EncodeFrameDataResponse(resp)
		if err != nil {
			lg.Warnf("terrain: %s frame-data encode failed: %v", side, err)
			continue
		}

		kind, payload, err := rpc.Decode(wire)
		if err != nil || kind != rpc.KindFrameDataResponse {
			lg.Warnf("terrain: %s frame-data envelope decode failed: %v", side, err)
			continue
		}
		decoded, err := rpc.DecodeFrameDataResponse(payload)
		if err != nil {
			lg.Warnf("terrain: %s frame-data payload decode failed: %v", side, err)
			continue
		}
		fmt.Printf("%s: %d buffered frames, %d wire bytes\n", side, len(decoded.Frames), len(wire))
	}
}

// openTerrainFile reads a header from path and wraps it with a
// MemDecoder containing no tiles, giving the worker a well-formed but
// empty world when no real terrain-map file is supplied: the pipeline
// still runs end to end, it just classifies everything as water until
// real tiles are wired in.
func openTerrainFile(path string, lg *log.Logger) (terrain.Header, map[terrain.GridRef]int, terrain.Decoder, error) {
	if path == "" {
		lg.Warn("terrain: no terrain-map file given, starting with an empty world")
		return emptyWorldHeader(), map[terrain.GridRef]int{}, terrain.NewMemDecoder(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return terrain.Header{}, nil, nil, fmt.Errorf("%w", &core.Error{Kind: core.MissingTerrainFile, Err: err})
	}
	defer f.Close()

	header, err := terrain.ReadHeader(f)
	if err != nil {
		return terrain.Header{}, nil, nil, fmt.Errorf("%w", &core.Error{Kind: core.MissingTerrainFile, Err: err})
	}

	// Tile-payload parsing lives in the external decoder collaborator;
	// this harness only reads the header, so it starts with no tiles
	// resident regardless of how large the file is.
	return header, map[terrain.GridRef]int{}, terrain.NewMemDecoder(), nil
}

func emptyWorldHeader() terrain.Header {
	return terrain.Header{LatRangeDeg: 180, LonRangeDeg: 360, LatStepDeg: 1, LonStepDeg: 1, ElevationResolution: 1}
}
