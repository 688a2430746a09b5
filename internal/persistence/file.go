// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// FileStorage implements persistence using file operations. The file
// holds one fixed-size record (see layout.go) rewritten in place.
type FileStorage struct {
	path string

	mu   sync.Mutex
	file *os.File
}

// NewFileStorage creates a new FileStorage. The file is opened on first use.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{
		path: path,
	}
}

// open opens the file, creating it if necessary, and sizes it to one record.
func (fs *FileStorage) open() error {
	if fs.file != nil {
		return nil
	}
	f, err := os.OpenFile(fs.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if fi.Size() != int64(recordSize) {
		if err := f.Truncate(int64(recordSize)); err != nil {
			f.Close()
			return fmt.Errorf("failed to resize file: %w", err)
		}
	}
	fs.file = f
	return nil
}

func (fs *FileStorage) Load() ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.open(); err != nil {
		return nil, err
	}
	rec := make([]byte, recordSize)
	if _, err := fs.file.ReadAt(rec, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return decodeRecord(rec)
}

// Save rewrites the record and syncs it to disk.
func (fs *FileStorage) Save(blob []byte) error {
	if err := checkSize(blob); err != nil {
		return err
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if err := fs.open(); err != nil {
		return err
	}
	rec := make([]byte, recordSize)
	encodeRecord(rec, blob)
	if _, err := fs.file.WriteAt(rec, 0); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := fs.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file to disk: %w", err)
	}
	return nil
}

// Close the file.
func (fs *FileStorage) Close() error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.file == nil {
		return nil
	}
	err := fs.file.Close()
	fs.file = nil
	return err
}
