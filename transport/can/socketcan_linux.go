// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

//go:build linux

package can

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// Controller error classes reported in the identifier of an error frame.
const (
	canErrCrtl   = 0x00000004
	canErrBusOff = 0x00000040
)

// SocketCAN is a raw CAN socket bound to one Linux network interface.
type SocketCAN struct {
	errorCounter
	name string
	file *os.File

	wmu  sync.Mutex
	done chan struct{}
	once sync.Once
}

// OpenSocketCAN binds a raw CAN socket to the interface called name. The
// socket also receives controller error frames, which feed ErrorCounters.
func OpenSocketCAN(name string) (*SocketCAN, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("can: interface %s: %w", name, err)
	}
	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("can: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_ERR_FILTER, canErrCrtl|canErrBusOff); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("can: error filter: %w", err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: ifi.Index}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("can: bind %s: %w", name, err)
	}
	// A non-blocking descriptor lets the runtime poller unblock Read on Close.
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, err
	}
	slog.Info("can: socketcan open", "interface", name, "index", ifi.Index)
	return &SocketCAN{name: name, file: os.NewFile(uintptr(fd), name), done: make(chan struct{})}, nil
}

func (s *SocketCAN) Send(frame Frame) error {
	buf, err := frame.MarshalBinary()
	if err != nil {
		s.transmitError()
		return err
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if _, err := s.file.Write(buf); err != nil {
		s.transmitError()
		return fmt.Errorf("can: write %s: %w", s.name, err)
	}
	return nil
}

// Receive returns the next data frame. Error frames update the counters
// and are not returned.
func (s *SocketCAN) Receive() (Frame, error) {
	buf := make([]byte, FrameSize)
	for {
		n, err := s.file.Read(buf)
		if err != nil {
			if s.isClosed() {
				return Frame{}, ErrClosed
			}
			return Frame{}, fmt.Errorf("can: read %s: %w", s.name, err)
		}
		if n < FrameSize {
			s.receiveError()
			continue
		}
		if id := binary.LittleEndian.Uint32(buf[0:4]); id&errFlag != 0 {
			s.controllerError(id, buf[8:16])
			continue
		}
		var f Frame
		if err := f.UnmarshalBinary(buf); err != nil {
			s.receiveError()
			continue
		}
		return f, nil
	}
}

// controllerError takes the counters from a controller error frame when it
// carries them.
func (s *SocketCAN) controllerError(id uint32, data []byte) {
	s.total.Add(1)
	if id&canErrCrtl != 0 {
		s.tx.Store(uint32(data[6]))
		s.rx.Store(uint32(data[7]))
	}
	if id&canErrBusOff != 0 {
		slog.Warn("can: bus off", "interface", s.name)
	}
}

func (s *SocketCAN) isClosed() (closed bool) {
	select {
	case <-s.done:
		closed = true
	default:
	}
	return
}

func (s *SocketCAN) Close() (err error) {
	s.once.Do(func() {
		close(s.done)
		err = s.file.Close()
	})
	return
}
