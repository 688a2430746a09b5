// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package transport

import (
	"sync"
	"sync/atomic"
)

// DefaultRxBufferSize is the largest RTU ADU.
const DefaultRxBufferSize = 256

// RxBuffer accumulates received bytes up to a fixed capacity. Bytes beyond
// the capacity are counted and discarded. It is safe for concurrent use by
// the line reader and the transaction engine.
type RxBuffer struct {
	mu       sync.Mutex
	buf      []byte
	overflow atomic.Uint64
}

func NewRxBuffer(size int) *RxBuffer {
	if size <= 0 {
		size = DefaultRxBufferSize
	}
	return &RxBuffer{buf: make([]byte, 0, size)}
}

// Write never fails so a line reader can keep draining the UART.
func (b *RxBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	n := min(cap(b.buf)-len(b.buf), len(p))
	b.buf = append(b.buf, p[:n]...)
	b.mu.Unlock()
	if dropped := len(p) - n; dropped > 0 {
		b.overflow.Add(uint64(dropped))
	}
	return len(p), nil
}

// Bytes returns a copy of the accumulated bytes.
func (b *RxBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf...)
}

func (b *RxBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}

func (b *RxBuffer) Reset() {
	b.mu.Lock()
	b.buf = b.buf[:0]
	b.mu.Unlock()
}

// Overflow is the total number of bytes dropped since creation.
func (b *RxBuffer) Overflow() uint64 {
	return b.overflow.Load()
}
