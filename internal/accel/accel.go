// internal/accel/accel.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package accel stands in for the GPU compute kernels a navigation
// display's real terrain renderer would dispatch to an accelerator: a
// fixed-size worker pool that runs a per-row (or per-patch) kernel
// function across a frame-sized range of work, fanned out with
// errgroup the same way the ingestion pipeline fans work out across a
// worker count. There is no GPU here — kernels are plain Go functions —
// but the call shape (WarmUp once, Dispatch many times per frame) is
// what the rest of the rasterizer is written against, so a real
// accelerator backend could be swapped in without touching callers.
package accel

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Kernel is one unit of work over row index i of an n-row dispatch.
type Kernel func(ctx context.Context, row int) error

// Accelerator runs Kernels across a fixed-size worker pool.
type Accelerator struct {
	workers int
	warm    bool
}

// New returns an Accelerator with the given worker count. A workers
// value <= 0 uses GOMAXPROCS.
func New(workers int) *Accelerator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Accelerator{workers: workers}
}

// Workers reports the pool's worker count.
func (a *Accelerator) Workers() int { return a.workers }

// WarmUp primes the pool with a no-op dispatch so the first real frame
// doesn't pay goroutine start-up cost. It mirrors the render backend's
// shader-compilation warm-up: cheap, idempotent, and safe to call more
// than once.
func (a *Accelerator) WarmUp(ctx context.Context) error {
	err := a.Dispatch(ctx, a.workers, func(context.Context, int) error { return nil })
	if err == nil {
		a.warm = true
	}
	return err
}

// Warm reports whether WarmUp has completed successfully.
func (a *Accelerator) Warm() bool { return a.warm }

// Dispatch runs fn(ctx, row) for every row in [0, n), distributed
// across the pool's workers, and returns the first error encountered
// (if any), cancelling the remaining in-flight rows via ctx.
func (a *Accelerator) Dispatch(ctx context.Context, n int, fn Kernel) error {
	if n <= 0 {
		return nil
	}

	eg, egCtx := errgroup.WithContext(ctx)
	rows := make(chan int)

	eg.Go(func() error {
		defer close(rows)
		for i := 0; i < n; i++ {
			select {
			case rows <- i:
			case <-egCtx.Done():
				return egCtx.Err()
			}
		}
		return nil
	})

	workers := a.workers
	if workers > n {
		workers = n
	}
	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			for row := range rows {
				if err := fn(egCtx, row); err != nil {
					return fmt.Errorf("row %d: %w", row, err)
				}
			}
			return nil
		})
	}

	return eg.Wait()
}
