// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package bridge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ffutop/legacy-modbus-bridge/modbus/crc"
	"github.com/ffutop/legacy-modbus-bridge/modbus/rtu"
)

// DefaultQueueSize is the number of write frames that can wait for the line.
const DefaultQueueSize = 32

var (
	ErrIncompleteFrame = errors.New("bridge: incomplete Modbus frame")
	ErrQueueFull       = errors.New("bridge: command queue full")
)

// Queue holds complete Modbus frames coming from the CAN side until the
// polling loop has time to send them. A frame is queued as a whole or not
// at all.
type Queue struct {
	frames chan []byte
}

func NewQueue(size int) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	return &Queue{frames: make(chan []byte, size)}
}

// Push waits for room until ctx is done.
func (q *Queue) Push(ctx context.Context, frame []byte) error {
	if len(frame) < rtu.MinSize || len(frame) > rtu.MaxSize || !crc.Valid(frame) {
		return fmt.Errorf("%w: % X", ErrIncompleteFrame, frame)
	}
	frame = append([]byte(nil), frame...)
	select {
	case q.frames <- frame:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrQueueFull, ctx.Err())
	}
}

// Pop returns the next frame, waiting at most timeout.
func (q *Queue) Pop(timeout time.Duration) ([]byte, bool) {
	select {
	case f := <-q.frames:
		return f, true
	default:
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case f := <-q.frames:
		return f, true
	case <-t.C:
		return nil, false
	}
}

func (q *Queue) Len() int {
	return len(q.frames)
}
