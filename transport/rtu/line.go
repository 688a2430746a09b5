// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

// Package rtu provides transport.Line implementations for RS485 ports and
// serial device servers.
package rtu

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

var ErrTransmitTimeout = errors.New("rtu: transmit timed out")

const readChunk = 64

// reader copies everything read from a port into a sink until stopped.
type reader struct {
	done   chan struct{}
	exited chan struct{}
	wg     sync.WaitGroup
}

// startReader runs the copy loop in its own goroutine. Read errors for
// which retry reports true are ignored; any other error ends the loop.
func startReader(name string, r io.Reader, sink io.Writer, retry func(error) bool) *reader {
	rd := &reader{done: make(chan struct{}), exited: make(chan struct{})}
	rd.wg.Add(1)
	go func() {
		defer rd.wg.Done()
		defer close(rd.exited)
		buf := make([]byte, readChunk)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				sink.Write(buf[:n])
			}
			select {
			case <-rd.done:
				return
			default:
			}
			if err != nil && !retry(err) {
				slog.Warn("rtu: reader stopped", "port", name, "err", err)
				return
			}
		}
	}()
	return rd
}

// alive reports whether the loop is still reading. A loop ended by a read
// error means the port is gone.
func (rd *reader) alive() bool {
	select {
	case <-rd.exited:
		return false
	default:
		return true
	}
}

// stop closes the port and waits for the loop to exit.
func (rd *reader) stop(port io.Closer) error {
	close(rd.done)
	err := port.Close()
	rd.wg.Wait()
	return err
}

// writeTimeout writes p to w, giving up after timeout. The write itself is
// not interrupted.
func writeTimeout(w io.Writer, p []byte, timeout time.Duration) error {
	if timeout <= 0 {
		_, err := w.Write(p)
		return err
	}
	result := make(chan error, 1)
	go func() {
		_, err := w.Write(p)
		result <- err
	}()
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case err := <-result:
		return err
	case <-t.C:
		return fmt.Errorf("%w after %v", ErrTransmitTimeout, timeout)
	}
}
