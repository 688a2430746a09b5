// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import "sync"

// MemoryStorage is a non-persistent storage.
type MemoryStorage struct {
	mu   sync.Mutex
	blob []byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (ms *MemoryStorage) Load() ([]byte, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.blob == nil {
		return nil, nil
	}
	return append([]byte(nil), ms.blob...), nil
}

func (ms *MemoryStorage) Save(blob []byte) error {
	if err := checkSize(blob); err != nil {
		return err
	}
	ms.mu.Lock()
	ms.blob = append([]byte(nil), blob...)
	ms.mu.Unlock()
	return nil
}

func (ms *MemoryStorage) Close() error { return nil }
