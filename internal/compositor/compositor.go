// internal/compositor/compositor.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package compositor embeds a colorized local map into the 768x768
// navigation-display canvas, animates the replacement of the previous
// frame with the new one as an angular "radar sweep" wedge, and
// encodes the result as PNG, the wire format the collaborator expects
// for each emitted frame.
package compositor

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"

	"github.com/flybywiresim/ndterrain/internal/accel"
	"github.com/flybywiresim/ndterrain/internal/colorizer"
)

const (
	CanvasSize = 768
	// MapStartOffsetY is RenderingMapStartOffsetY.
	MapStartOffsetY = 128

	// AngularStepDeg is the sweep's per-tick angular advance:
	// round(90/1000*40).
	AngularStepDeg = 4
	// SweepTickIntervalMS is how often the sweep advances, in
	// milliseconds.
	SweepTickIntervalMS = 40
	// SweepEndAngle is the angle at which the new frame is fully
	// revealed and gets latched as the side's last frame.
	SweepEndAngle = 90.0
	// FrameValidityPeriodMS paces resync of the very first sweep after
	// startup: startAngle = (elapsed / 2500 * 90) mod 90.
	FrameValidityPeriodMS = 2500
)

var background = color.RGBA{R: 4, G: 4, B: 5, A: 255}

// NewCanvas returns a 768x768 canvas pre-filled with the background
// color.
func NewCanvas() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, CanvasSize, CanvasSize))
	for y := 0; y < CanvasSize; y++ {
		for x := 0; x < CanvasSize; x++ {
			img.SetRGBA(x, y, background)
		}
	}
	return img
}

func toRGBA(p colorizer.Pixel) color.RGBA {
	return color.RGBA{R: clampByte(p.R), G: clampByte(p.G), B: clampByte(p.B), A: clampByte(p.A)}
}

func clampByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// Paint embeds frame's map rows (excluding its metadata row) into a
// fresh canvas at (mapOffsetX, MapStartOffsetY). Transparent colorizer
// pixels are left as the canvas background, so everything outside the
// actual terrain shapes reads as background rather than black.
func Paint(frame *colorizer.Frame, mapOffsetX int) *image.RGBA {
	canvas := NewCanvas()
	rows := frame.MapRows()
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			p := rows[y*frame.Width+x]
			if p.A == 0 {
				continue
			}
			canvas.SetRGBA(mapOffsetX+x, MapStartOffsetY+y, toRGBA(p))
		}
	}
	return canvas
}

// SweepAngle returns the acos-based angle, in degrees, of canvas pixel
// (x,y) relative to the map's bottom-center anchor, matching the
// local-map projector's own bearing geometry so the wedge boundary
// lines up with what was actually rendered. Like that projector, it
// runs the per-pixel acos through accel.Acos32, which takes and returns
// float32 (computing its asin in float64 internally).
func SweepAngle(x, y, mapHeight int) (angle float64, ok bool) {
	dx := float64(x) - float64(CanvasSize)/2
	dy := float64(mapHeight - y)
	dist := math.Sqrt(dx*dx + dy*dy)
	if dist == 0 {
		return 0, true
	}
	return float64(accel.Acos32(float32(clamp(dy/dist, -1, 1)))) * 180 / math.Pi, true
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Sweep produces one transition frame: pixels inside the map region
// whose angle (computed from the map's own coordinate frame) falls in
// [startAngle, endAngle] are taken from newFrame; everything else
// comes from prevFrame (or stays background if prevFrame is nil).
func Sweep(newFrame *image.RGBA, prevFrame *image.RGBA, mapOffsetX, mapWidth, mapHeight int, startAngle, endAngle float64) *image.RGBA {
	out := NewCanvas()

	for y := MapStartOffsetY; y < MapStartOffsetY+mapHeight; y++ {
		localY := y - MapStartOffsetY
		for x := mapOffsetX; x < mapOffsetX+mapWidth; x++ {
			angle, _ := SweepAngle(x, localY, mapHeight)

			if angle >= startAngle && angle <= endAngle {
				out.SetRGBA(x, y, newFrame.RGBAAt(x, y))
				continue
			}
			if prevFrame != nil {
				out.SetRGBA(x, y, prevFrame.RGBAAt(x, y))
			}
			// else: leave as background, already filled by NewCanvas.
		}
	}
	return out
}

// AdvanceEndAngle grows a sweep's revealed boundary by one
// AngularStepDeg tick from currentEnd, clamping to SweepEndAngle and
// reporting whether the sweep has fully revealed the new frame. The
// transition's startAngle stays fixed for its whole duration (see
// ResyncStartAngle); only the end of the revealed wedge advances.
func AdvanceEndAngle(currentEnd float64) (newEnd float64, done bool) {
	newEnd = currentEnd + AngularStepDeg
	if newEnd >= SweepEndAngle {
		return SweepEndAngle, true
	}
	return newEnd, false
}

// ResyncStartAngle computes the first transition's startAngle after
// startup, so a side whose worker missed some ticks resumes a
// continuous-looking sweep rather than restarting from zero.
func ResyncStartAngle(elapsedMS int64) float64 {
	angle := math.Mod(float64(elapsedMS)/FrameValidityPeriodMS*SweepEndAngle, SweepEndAngle)
	if angle < 0 {
		angle += SweepEndAngle
	}
	return angle
}

// EncodePNG encodes canvas as a PNG byte slice.
func EncodePNG(canvas *image.RGBA) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
