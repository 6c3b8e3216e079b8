// internal/ndapi/types.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package ndapi holds the protocol-level types shared across the
// render pipeline and its external collaborators: the per-side
// identity, aircraft and display configuration, the inbound/outbound
// simulator messages, and the control-plane RPC request/response
// shapes. Keeping these in one low-level package lets the pipeline
// stages (threshold, colorizer, scheduler, ...) depend on the wire
// vocabulary without depending on each other.
package ndapi

// Side identifies which navigation display a message or frame belongs
// to. The wire protocol dispatches on the textual keys "L" and "R";
// this type gives those same two states as an exhaustive,
// switch-checkable enum.
type Side int

const (
	Capt Side = iota
	FO
)

func (s Side) String() string {
	switch s {
	case Capt:
		return "L"
	case FO:
		return "R"
	default:
		return "?"
	}
}

// ParseSide maps the wire-level "L"/"R" key back to a Side.
func ParseSide(key string) (Side, bool) {
	switch key {
	case "L":
		return Capt, true
	case "R":
		return FO, true
	default:
		return 0, false
	}
}

// Sides enumerates both displays, in the order the scheduler staggers
// their startup (Capt first).
var Sides = [2]Side{Capt, FO}

const (
	canvasSize              = 768
	RenderingMapStartOffsetY = 128
)

// DisplayConfig is the per-side rendering configuration pushed by the
// simulator collaborator.
type DisplayConfig struct {
	Active  bool
	ArcMode bool
	Range   float64 // nautical miles
	EfisMode int

	MapWidth   int
	MapHeight  int
	MapOffsetX int
}

// NewDisplayConfig derives MapWidth/MapHeight/MapOffsetX from ArcMode,
// enforcing the invariant the data model fixes for each presentation
// style.
func NewDisplayConfig(active, arcMode bool, rangeNM float64, efisMode int) DisplayConfig {
	c := DisplayConfig{Active: active, ArcMode: arcMode, Range: rangeNM, EfisMode: efisMode}
	if arcMode {
		c.MapWidth, c.MapHeight = 756, 492
	} else {
		c.MapWidth, c.MapHeight = 678, 250
	}
	c.MapOffsetX = round(float64(canvasSize-c.MapWidth) / 2.0)
	return c
}

func round(f float64) int {
	if f < 0 {
		return -round(-f)
	}
	return int(f + 0.5)
}

// SameShape reports whether two configs imply the same rendering
// geometry and mode, without comparing Active — used by the scheduler
// to decide whether a config push is a reconfiguration.
func (c DisplayConfig) SameShape(o DisplayConfig) bool {
	return c.ArcMode == o.ArcMode && c.Range == o.Range && c.EfisMode == o.EfisMode
}

// AircraftState is the live aircraft data the simulator collaborator
// streams in, matching aircraftStatusUpdate.
type AircraftState struct {
	ADIRUDataValid bool

	Lat, Lon      float64
	AltitudeFt    float64
	HeadingDeg    float64
	VerticalSpeed float64 // ft/min
	GearIsDown    bool

	DestinationDataValid bool
	DestinationLat       float64
	DestinationLon       float64
}

// PositionData is the lightweight ground-truth position update that
// arrives between full AircraftState updates.
type PositionData struct {
	Lat, Lon float64
}

// TerrainRenderingMode is an extension point for future rendering
// styles; ArcMode is the only one implemented.
type TerrainRenderingMode int

const (
	ArcMode TerrainRenderingMode = iota
)

// Severity classifies a reported minimum/maximum elevation for the
// outbound metadata message.
type Severity int

const (
	PeaksModeSeverity Severity = iota
	Caution
	Warning
)

// TerrainMapMetadata is emitted alongside (or instead of) a PNG frame.
type TerrainMapMetadata struct {
	MinimumElevation     float64
	MinimumElevationMode Severity
	MaximumElevation     float64
	MaximumElevationMode Severity

	FirstFrame     bool
	DisplayRange   float64
	DisplayMode    TerrainRenderingMode
	FrameByteCount int
}

// ResetMetadata is the sentinel metadata message emitted whenever a
// side transitions out of Rendering due to reconfiguration: it carries
// no usable elevation data and signals "no frame" to the consumer.
func ResetMetadata() TerrainMapMetadata {
	return TerrainMapMetadata{
		MinimumElevation: -1,
		MaximumElevation: -1,
		FirstFrame:       true,
		FrameByteCount:   0,
		DisplayRange:     0,
		DisplayMode:      ArcMode,
	}
}

// Thresholds is the control-plane view of a side's last-computed
// thresholds, as returned by REQ_FRAME_DATA.
type Thresholds struct {
	MinElevation          float64
	MinElevationIsWarning bool
	MinElevationIsCaution bool
	MaxElevation          float64
	MaxElevationIsWarning bool
	MaxElevationIsCaution bool
}

// FrameDataRequest is REQ_FRAME_DATA.
type FrameDataRequest struct {
	Side Side
}

// FrameDataResponse is RES_FRAME_DATA.
type FrameDataResponse struct {
	Side       Side
	Timestamp  int64 // unix millis
	Thresholds Thresholds
	Frames     [][]byte // PNG-encoded frames from the last transition
}

// ShutdownRequest is REQ_SHUTDOWN: graceful teardown.
type ShutdownRequest struct{}
