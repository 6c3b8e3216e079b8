// util/resources.go
// Copyright(c) 2022-2025 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"bytes"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// LoadResource reads path from fsys, transparently zstd-decompressing it
// if its name ends in ".zst". It is used to pull baked-in assets (e.g. the
// density pattern maps) out of an fs.FS without the caller needing to
// know whether they were stored compressed.
func LoadResource(fsys fs.FS, path string) ([]byte, error) {
	raw, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, err
	}

	if filepath.Ext(path) != ".zst" {
		return raw, nil
	}

	zr, err := zstd.NewReader(bytes.NewReader(raw), zstd.WithDecoderConcurrency(0))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	return io.ReadAll(zr)
}
