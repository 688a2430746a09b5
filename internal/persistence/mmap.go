// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"fmt"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// MmapStorage implements persistence using a memory-mapped file with the
// same record layout as FileStorage.
type MmapStorage struct {
	path string

	mu   sync.Mutex
	file *os.File
	data mmap.MMap
}

// NewMmapStorage creates a new MmapStorage.
func NewMmapStorage(path string) *MmapStorage {
	return &MmapStorage{
		path: path,
	}
}

// mapFile opens and maps the file on first use.
func (ms *MmapStorage) mapFile() error {
	if ms.data != nil {
		return nil
	}
	f, err := os.OpenFile(ms.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open mmap file: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if fi.Size() != int64(recordSize) {
		if err := f.Truncate(int64(recordSize)); err != nil {
			f.Close()
			return fmt.Errorf("failed to resize mmap file: %w", err)
		}
	}
	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return fmt.Errorf("mmap failed: %w", err)
	}
	ms.file = f
	ms.data = data
	return nil
}

func (ms *MmapStorage) Load() ([]byte, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if err := ms.mapFile(); err != nil {
		return nil, err
	}
	return decodeRecord(ms.data)
}

// Save copies the record into the mapping and flushes it to disk.
func (ms *MmapStorage) Save(blob []byte) error {
	if err := checkSize(blob); err != nil {
		return err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if err := ms.mapFile(); err != nil {
		return err
	}
	encodeRecord(ms.data, blob)
	return ms.data.Flush()
}

// Close unmaps and closes the file.
func (ms *MmapStorage) Close() error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	var err error
	if ms.data != nil {
		if e := ms.data.Unmap(); e != nil {
			err = e
		}
		ms.data = nil
	}
	if ms.file != nil {
		if e := ms.file.Close(); e != nil {
			err = e
		}
		ms.file = nil
	}
	return err
}
