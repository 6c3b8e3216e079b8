// internal/scheduler/scheduler.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package scheduler drives the per-side Idle/Rendering/Waiting state
// machine described in the navigation display's design notes: rather
// than host-runtime timers, a side's sweep ticker and inter-frame
// timeout are modeled as (deadline, action) entries in a priority
// queue owned by the worker's main loop, so cancellation on
// reconfiguration is just removing that side's entries instead of
// stopping goroutine-backed timers.
package scheduler

import (
	"container/heap"

	"github.com/flybywiresim/ndterrain/internal/ndapi"
)

// State is a side's position in the Idle -> Rendering -> Waiting cycle.
type State int

const (
	Idle State = iota
	Rendering
	Waiting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Rendering:
		return "Rendering"
	case Waiting:
		return "Waiting"
	default:
		return "Unknown"
	}
}

// Action identifies what a fired timer entry asks the worker to do.
type Action int

const (
	// SweepTick advances an in-progress sweep transition by one step.
	SweepTick Action = iota
	// WaitTimeout fires after the 1500ms inter-frame pause and starts
	// the next render.
	WaitTimeout
)

// InterFrameTimeoutMS is the Waiting state's dwell time before the
// next render starts.
const InterFrameTimeoutMS = 1500

// SweepTickIntervalMS is the sweep ticker's period while Rendering.
const SweepTickIntervalMS = 40

// StartupOffsetMS is how much earlier side R's startupTimestamp is
// than L's, staggering the two sides' sweep phases.
const StartupOffsetMS = 1500

// entry is one scheduled timer in the priority queue, ordered by
// deadline (an absolute millisecond timestamp supplied by the
// caller's clock).
type entry struct {
	deadline int64
	side     ndapi.Side
	action   Action
	index    int
}

type entryHeap []*entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].deadline < h[j].deadline }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index, h[j].index = i, j }
func (h *entryHeap) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *entryHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Side holds one display's scheduling state: its current lifecycle
// state, the resetRenderingData flag set on reconfiguration, and the
// sweep's current angular window.
type Side struct {
	State               State
	ResetRenderingData  bool
	StartupTimestampMS  int64
	SweepStartAngle     float64
	SweepEndAngle       float64
	HaveLastFrame       bool
}

// Timers is the worker's combined timer queue across both sides.
type Timers struct {
	queue entryHeap
	sides map[ndapi.Side]*Side
}

// NewTimers builds a fresh queue with both sides Idle, side FO staggered
// StartupOffsetMS earlier than side Capt.
func NewTimers(baseStartupMS int64) *Timers {
	t := &Timers{sides: make(map[ndapi.Side]*Side, 2)}
	heap.Init(&t.queue)
	t.sides[ndapi.Capt] = &Side{State: Idle, StartupTimestampMS: baseStartupMS}
	t.sides[ndapi.FO] = &Side{State: Idle, StartupTimestampMS: baseStartupMS - StartupOffsetMS}
	return t
}

func (t *Timers) Side(side ndapi.Side) *Side { return t.sides[side] }

// schedule inserts a new timer entry for side, firing at deadlineMS.
func (t *Timers) schedule(side ndapi.Side, action Action, deadlineMS int64) {
	heap.Push(&t.queue, &entry{deadline: deadlineMS, side: side, action: action})
}

// CancelSide removes every pending entry belonging to side, the
// priority-queue equivalent of stopping that side's timers.
func (t *Timers) CancelSide(side ndapi.Side) {
	kept := t.queue[:0]
	for _, e := range t.queue {
		if e.side == side {
			continue
		}
		kept = append(kept, e)
	}
	t.queue = kept
	heap.Init(&t.queue)
}

// Next returns the earliest pending deadline and whether one exists,
// without removing it; the caller's clock decides when to call Pop.
func (t *Timers) Next() (deadlineMS int64, ok bool) {
	if len(t.queue) == 0 {
		return 0, false
	}
	return t.queue[0].deadline, true
}

// Pop removes and returns the earliest-deadline entry.
func (t *Timers) Pop() (side ndapi.Side, action Action, ok bool) {
	if len(t.queue) == 0 {
		return 0, 0, false
	}
	e := heap.Pop(&t.queue).(*entry)
	return e.side, e.action, true
}

// Activate transitions side from Idle to Rendering (config.active
// became true) and schedules its first sweep tick.
func (t *Timers) Activate(side ndapi.Side, nowMS int64) {
	s := t.sides[side]
	s.State = Rendering
	s.ResetRenderingData = false
	t.schedule(side, SweepTick, nowMS+SweepTickIntervalMS)
}

// SweepAdvance schedules the next sweep tick if the sweep isn't done
// yet, or transitions to Waiting and schedules the inter-frame
// timeout once it is.
func (t *Timers) SweepAdvance(side ndapi.Side, nowMS int64, sweepDone bool) {
	if !sweepDone {
		t.schedule(side, SweepTick, nowMS+SweepTickIntervalMS)
		return
	}
	s := t.sides[side]
	s.State = Waiting
	s.HaveLastFrame = true
	t.schedule(side, WaitTimeout, nowMS+InterFrameTimeoutMS)
}

// WaitElapsed transitions side from Waiting back to Rendering and
// schedules its next sweep tick.
func (t *Timers) WaitElapsed(side ndapi.Side, nowMS int64) {
	t.Activate(side, nowMS)
}

// Reconfigure transitions side to Idle regardless of its current
// state, cancels its pending timers, and marks resetRenderingData so
// the next sweep starts from a cleared lastFrame. Returns true if the
// side actually left a non-Idle state (i.e. a reset-metadata message
// should be emitted).
func (t *Timers) Reconfigure(side ndapi.Side) bool {
	s := t.sides[side]
	wasActive := s.State != Idle
	t.CancelSide(side)
	s.State = Idle
	s.ResetRenderingData = true
	s.HaveLastFrame = false
	s.SweepStartAngle, s.SweepEndAngle = 0, 0
	return wasActive
}
