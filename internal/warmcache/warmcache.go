// internal/warmcache/warmcache.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package warmcache persists the assembled world-map grid for the
// aircraft's last known position to disk, so a restart near the same
// spot can skip re-decoding terrain tiles before the first frame. It is
// a flate+msgpack, modification-time-bounded disk object cache,
// specialized to caching one well-known structure.
package warmcache

import (
	"compress/flate"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/flybywiresim/ndterrain/internal/geo"
	"github.com/flybywiresim/ndterrain/internal/terrain"
)

// Snapshot is the on-disk representation of a worldmap.Grid, kept
// independent of that package's type so the cache format doesn't
// shift every time the in-memory grid gains a field.
type Snapshot struct {
	Width, Height                          int
	MinSamplesPerTileX, MinSamplesPerTileY int
	SW, NE                                 geo.Point
	Samples                                []terrain.Elevation
	PositionLat, PositionLon               float64
}

func fullCachePath(path string) (string, error) {
	cd, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cd, "ndterrain", path), nil
}

// Store writes snap to path under the user cache directory,
// flate-compressed and msgpack-encoded.
func Store(path string, snap Snapshot) error {
	full, err := fullCachePath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return err
	}

	f, err := os.Create(full)
	if err != nil {
		return err
	}
	defer f.Close()

	fw, err := flate.NewWriter(f, flate.BestSpeed)
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(fw).Encode(snap); err != nil {
		return err
	}
	return fw.Close()
}

// Retrieve reads the snapshot at path, along with its modification
// time so the caller can decide whether it's stale.
func Retrieve(path string) (Snapshot, time.Time, error) {
	full, err := fullCachePath(path)
	if err != nil {
		return Snapshot{}, time.Time{}, err
	}

	f, err := os.Open(full)
	if err != nil {
		return Snapshot{}, time.Time{}, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return Snapshot{}, time.Time{}, err
	}

	fr := flate.NewReader(f)
	defer fr.Close()

	var snap Snapshot
	err = msgpack.NewDecoder(fr).Decode(&snap)
	return snap, fi.ModTime(), err
}

// Cull removes the oldest cached snapshots under the cache directory
// until the total size is at most maxBytes.
func Cull(maxBytes int64) error {
	dir, err := fullCachePath("")
	if err != nil {
		return err
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}

	type fileInfo struct {
		path    string
		size    int64
		modTime time.Time
	}
	var files []fileInfo
	var total int64

	err = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files = append(files, fileInfo{path: path, size: info.Size(), modTime: info.ModTime()})
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return err
	}

	slices.SortFunc(files, func(a, b fileInfo) int { return a.modTime.Compare(b.modTime) })

	for _, fi := range files {
		if total <= maxBytes {
			break
		}
		if err := os.Remove(fi.path); err != nil {
			continue
		}
		total -= fi.size
	}
	return nil
}
