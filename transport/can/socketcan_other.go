// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

//go:build !linux

package can

import "errors"

var ErrUnsupported = errors.New("can: socketcan is only available on linux")

// SocketCAN is unavailable on this platform.
type SocketCAN struct{ errorCounter }

func OpenSocketCAN(string) (*SocketCAN, error) { return nil, ErrUnsupported }

func (*SocketCAN) Send(Frame) error        { return ErrUnsupported }
func (*SocketCAN) Receive() (Frame, error) { return Frame{}, ErrUnsupported }
func (*SocketCAN) Close() error            { return nil }
