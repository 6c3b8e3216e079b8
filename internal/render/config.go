// internal/render/config.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package render holds the process-level configuration for a render
// worker. There is no flag-parsing or file-format dependency here: the
// core is a library invoked by an external process, so configuration
// is a plain struct the caller populates however it likes (flags, env,
// a config file) before calling New.
package render

import "github.com/flybywiresim/ndterrain/internal/geo"

// Config collects the knobs a caller needs to stand up a worker:
// accelerator sizing, the default visibility range used to decide tile
// residency, logging destination, and the synthetic flight used for
// kernel warm-up.
type Config struct {
	// Workers is the accelerator's worker-pool size. <= 0 uses
	// GOMAXPROCS.
	Workers int

	// VisibilityRangeNM bounds how far from the aircraft's position a
	// tile is considered visible and kept resident.
	VisibilityRangeNM float64

	LogLevel string
	LogDir   string

	WarmUpPosition    geo.Point
	WarmUpHeadingDeg  float64
	WarmUpAltitudeFt  float64
	WarmUpRangeNM     float64
}

// Default returns the configuration used when a caller has no
// site-specific overrides: a GOMAXPROCS-sized worker pool, a 10nm visibility
// range, info-level logging to the platform default directory, and the
// Innsbruck warm-up flight also used as the synthetic default position
// in internal/core.
func Default() Config {
	return Config{
		Workers:           0,
		VisibilityRangeNM: 10,
		LogLevel:          "info",
		LogDir:            "",
		WarmUpPosition:    geo.Point{Lat: 47.26, Lon: 11.35},
		WarmUpHeadingDeg:  260.0,
		WarmUpAltitudeFt:  1904.0,
		WarmUpRangeNM:     10.0,
	}
}
