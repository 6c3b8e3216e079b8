// internal/warmcache/warmcache_test.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package warmcache

import (
	"testing"

	"github.com/flybywiresim/ndterrain/internal/terrain"
)

func TestStoreRetrieveRoundTrip(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	snap := Snapshot{
		Width: 2, Height: 2,
		Samples:     []terrain.Elevation{1, 2, 3, 4},
		PositionLat: 47.26, PositionLon: 11.35,
	}
	if err := Store("grid-test", snap); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, _, err := Retrieve("grid-test")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if got.Width != 2 || got.Height != 2 || len(got.Samples) != 4 {
		t.Fatalf("got %+v", got)
	}
	if got.PositionLat != 47.26 || got.PositionLon != 11.35 {
		t.Fatalf("position mismatch: %+v", got)
	}
}

func TestRetrieveMissingFileErrors(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	if _, _, err := Retrieve("does-not-exist"); err == nil {
		t.Fatal("expected an error retrieving a missing snapshot")
	}
}
