// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package can

import (
	"sync"
	"sync/atomic"
)

// Bus represents a CAN bus connection which can send and receive frames.
// Implementations are safe for concurrent use: any number of goroutines may
// call Send while one goroutine calls Receive.
type Bus interface {
	// Send transmits a frame. It may block until the frame is queued.
	Send(frame Frame) error

	// Receive blocks until a frame is available or the bus is closed.
	Receive() (Frame, error)

	// ErrorCounters reports the controller error counters.
	ErrorCounters() ErrorCounters

	Close() error
}

// ErrorCounters mirrors the receive/transmit error counters of a CAN
// controller plus a running total of all errors seen.
type ErrorCounters struct {
	Receive  uint8
	Transmit uint8
	Total    uint32
}

// errorCounter is embedded by the bus implementations that have no
// controller registers to read and count failures themselves.
type errorCounter struct {
	rx    atomic.Uint32
	tx    atomic.Uint32
	total atomic.Uint32
}

func (c *errorCounter) receiveError() {
	c.rx.Add(1)
	c.total.Add(1)
}

func (c *errorCounter) transmitError() {
	c.tx.Add(1)
	c.total.Add(1)
}

// ErrorCounters saturates the per-direction counters at 255 like the
// controller registers do.
func (c *errorCounter) ErrorCounters() ErrorCounters {
	sat := func(v uint32) uint8 {
		if v > 0xFF {
			return 0xFF
		}
		return uint8(v)
	}
	return ErrorCounters{
		Receive:  sat(c.rx.Load()),
		Transmit: sat(c.tx.Load()),
		Total:    c.total.Load(),
	}
}

// pipeEnd is one side of an in-memory bus pair.
type pipeEnd struct {
	errorCounter
	in     <-chan Frame
	out    chan<- Frame
	done   chan struct{}
	closed *sync.Once
}

// NewPipe returns two connected buses: every frame sent on one is received
// on the other. Closing either end closes both.
func NewPipe(buffer int) (Bus, Bus) {
	ab := make(chan Frame, buffer)
	ba := make(chan Frame, buffer)
	done := make(chan struct{})
	once := &sync.Once{}
	a := &pipeEnd{in: ba, out: ab, done: done, closed: once}
	b := &pipeEnd{in: ab, out: ba, done: done, closed: once}
	return a, b
}

func (p *pipeEnd) Send(frame Frame) error {
	if err := frame.Validate(); err != nil {
		p.transmitError()
		return err
	}
	select {
	case <-p.done:
		return ErrClosed
	case p.out <- frame:
		return nil
	}
}

func (p *pipeEnd) Receive() (Frame, error) {
	select {
	case <-p.done:
		return Frame{}, ErrClosed
	case f := <-p.in:
		return f, nil
	}
}

func (p *pipeEnd) Close() error {
	p.closed.Do(func() { close(p.done) })
	return nil
}
