// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package persistence keeps the last accepted bridge configuration blob
// across restarts.
package persistence

import (
	"errors"
	"fmt"
)

// MaxBlobSize is the largest blob a backend accepts: a configuration
// header plus 256 device records.
const MaxBlobSize = 16 + 256*8

var (
	ErrBlobTooLarge = errors.New("persistence: blob too large")
	ErrCorrupt      = errors.New("persistence: stored record is corrupt")
)

// Storage defines the interface for persisting the configuration blob.
type Storage interface {
	// Load returns the saved blob, or nil if nothing was saved yet.
	Load() ([]byte, error)

	// Save replaces the saved blob. It returns once the blob is durable.
	Save(blob []byte) error

	Close() error
}

// Open creates the storage backend called kind. path is a file name for
// file and mmap, and a data source name for sql.
func Open(kind, path string) (Storage, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStorage(), nil
	case "file":
		return NewFileStorage(path), nil
	case "mmap":
		return NewMmapStorage(path), nil
	case "sql":
		return NewSQLStorage(SQLiteDriver, path), nil
	}
	return nil, fmt.Errorf("persistence: unknown storage type %q", kind)
}

func checkSize(blob []byte) error {
	if len(blob) > MaxBlobSize {
		return fmt.Errorf("%w: %d bytes", ErrBlobTooLarge, len(blob))
	}
	return nil
}
