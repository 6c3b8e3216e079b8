// internal/threshold/threshold.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package threshold selects a rendering mode (normal vs. peaks) from
// an elevation histogram and the aircraft's current altitude/vertical
// speed, and derives the color-band boundaries the colorizer
// classifies pixels against.
package threshold

import (
	"github.com/flybywiresim/ndterrain/internal/histogram"
	"github.com/flybywiresim/ndterrain/internal/terrain"
)

// Mode is the rendering mode chosen by Analyze.
type Mode int

const (
	Normal Mode = iota
	Peaks
)

// GearDownAltitudeOffset returns the offset Analyze expects for the
// gearDownAltitudeOffset parameter.
func GearDownAltitudeOffset(gearIsDown bool) float64 {
	if gearIsDown {
		return 250
	}
	return 500
}

// NormalThresholds holds the normal-mode color-band boundaries, in feet.
type NormalThresholds struct {
	LowDensityGreen   float64
	HighDensityGreen  float64
	LowDensityYellow  float64
	HighDensityYellow float64
	HighDensityRed    float64
}

// PeaksThresholds holds the peaks-mode color-band boundaries, in feet.
type PeaksThresholds struct {
	LowerDensity  float64
	HigherDensity float64
	SolidDensity  float64
}

// Result is the full output of Analyze: the selected mode, its
// thresholds, and the summary statistics the colorizer's metadata row
// and the outbound metadata message both need.
type Result struct {
	Mode Mode

	Normal NormalThresholds
	Peaks  PeaksThresholds

	MinElevation float64
	MaxElevation float64

	LowerPercentileElevation float64
	UpperPercentileElevation float64

	ReferenceAltitude float64
}

// Analyze implements the C6 threshold/mode derivation described by
// the data model: cumulative-probability percentile bins, a
// flat-earth correction for normal-mode green, and a peaks-mode sanity
// clamp that disables the upper bands when ordering breaks down.
func Analyze(hist histogram.Histogram, altitude, verticalSpeed, gearDownAltitudeOffset, cutOffAltitude float64) Result {
	minElev := float64(terrain.HistMinElev)

	cutOffBin := clampBin(int((cutOffAltitude - minElev) / 100))

	referenceAltitude := altitude
	if verticalSpeed <= -1000 {
		referenceAltitude += verticalSpeed * 0.5
	}

	var totalFreq int64
	for b := cutOffBin; b < histogram.BinCount; b++ {
		totalFreq += int64(hist[b])
	}

	lowerBin, upperBin := 295, 295
	minBin, maxBin := -1, -1
	var cumulative int64
	lowerSet, upperSet := false, false

	for b := cutOffBin; b < histogram.BinCount; b++ {
		count := hist[b]
		if count > 0 {
			if minBin == -1 {
				minBin = b
			}
			maxBin = b
		}
		cumulative += int64(count)

		var frac float64
		if totalFreq > 0 {
			frac = float64(cumulative) / float64(totalFreq)
		}
		if !lowerSet && frac >= 0.85 {
			lowerBin = b
			lowerSet = true
		}
		if !upperSet && frac >= 0.95 {
			upperBin = b
			upperSet = true
		}
	}

	lowerPercentileElevation := float64(lowerBin)*100 + minElev
	upperPercentileElevation := float64(upperBin)*100 + minElev

	var minElevation, maxElevation float64
	if minBin == -1 {
		minElevation = -1
	} else {
		minElevation = float64(minBin)*100 + minElev
	}
	if maxBin == -1 {
		maxElevation = 0
	} else {
		maxElevation = float64(maxBin+1)*100 + minElev
	}

	flatEarth := 100 - (maxElevation - minElevation)
	halfElevation := maxElevation * 0.5

	r := Result{
		MinElevation:             minElevation,
		MaxElevation:             maxElevation,
		LowerPercentileElevation: lowerPercentileElevation,
		UpperPercentileElevation: upperPercentileElevation,
		ReferenceAltitude:        referenceAltitude,
	}

	if maxElevation >= referenceAltitude-gearDownAltitudeOffset {
		r.Mode = Normal
		r.Normal = normalThresholds(minElevation, referenceAltitude, gearDownAltitudeOffset, flatEarth, halfElevation, lowerPercentileElevation)
	} else {
		r.Mode = Peaks
		r.Peaks = peaksThresholds(minElevation, maxElevation, halfElevation, lowerPercentileElevation, upperPercentileElevation)
	}
	return r
}

func normalThresholds(minElevation, referenceAltitude, gearDownAltitudeOffset, flatEarth, halfElevation, lowerPercentileElevation float64) NormalThresholds {
	t := NormalThresholds{}

	t.LowDensityGreen = max(minElevation+200, referenceAltitude-2000)
	t.HighDensityGreen = max(minElevation+200, referenceAltitude-1000)

	if flatEarth >= 0 {
		bound := min(halfElevation, lowerPercentileElevation)
		if t.LowDensityGreen > bound {
			t.LowDensityGreen = bound
		}
	}

	t.LowDensityYellow = max(minElevation+200, referenceAltitude-gearDownAltitudeOffset)
	t.HighDensityYellow = referenceAltitude + 1000
	t.HighDensityRed = referenceAltitude + 2000

	return t
}

func peaksThresholds(minElevation, maxElevation, halfElevation, lowerPercentileElevation, upperPercentileElevation float64) PeaksThresholds {
	t := PeaksThresholds{}

	t.LowerDensity = min(lowerPercentileElevation, halfElevation)
	t.HigherDensity = min(upperPercentileElevation, (maxElevation-minElevation)*0.65+minElevation)
	t.SolidDensity = (maxElevation-minElevation)*0.95 + minElevation

	if !(t.LowerDensity <= t.HigherDensity && t.HigherDensity <= t.SolidDensity) {
		t.HigherDensity = maxElevation + 100
		t.SolidDensity = maxElevation + 100
	}

	return t
}

func clampBin(b int) int {
	if b < 0 {
		return 0
	}
	if b >= histogram.BinCount {
		return histogram.BinCount - 1
	}
	return b
}

