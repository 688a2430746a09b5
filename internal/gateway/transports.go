// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grid-x/serial"

	"github.com/ffutop/legacy-modbus-bridge/internal/config"
	"github.com/ffutop/legacy-modbus-bridge/internal/simulator"
	"github.com/ffutop/legacy-modbus-bridge/transport"
	"github.com/ffutop/legacy-modbus-bridge/transport/can"
	"github.com/ffutop/legacy-modbus-bridge/transport/rtu"
)

const loopbackBuffer = 64

func openBus(ctx context.Context, cfg config.CANConfig) (can.Bus, error) {
	switch cfg.Type {
	case "socketcan":
		return can.OpenSocketCAN(cfg.Interface)
	case "websocket":
		return can.DialWebSocket(ctx, cfg.URL)
	case "loopback":
		bus, peer := can.NewPipe(loopbackBuffer)
		go drain(peer)
		return bus, nil
	}
	return nil, fmt.Errorf("unknown can type %q", cfg.Type)
}

// drain logs what the device sends on a loopback bus.
func drain(peer can.Bus) {
	for {
		f, err := peer.Receive()
		if err != nil {
			return
		}
		slog.Debug("gateway: loopback frame", "frame", f)
	}
}

func openLine(cfg config.SerialConfig, rx *transport.RxBuffer) (transport.Line, error) {
	switch cfg.Driver {
	case "rs485":
		return rtu.NewSerialLine(cfg.Device, rs485Config(cfg), rx), nil
	case "rts":
		return rtu.NewRTSLine(cfg.Device, rx), nil
	case "tcp":
		return rtu.NewTCPLine(cfg.Address, rx), nil
	case "simulator":
		line := simulator.NewLine(rx)
		for _, addr := range cfg.SimulatedSlaves {
			line.AddSlave(addr)
		}
		return line, nil
	}
	return nil, fmt.Errorf("unknown serial driver %q", cfg.Driver)
}

func rs485Config(cfg config.SerialConfig) serial.RS485Config {
	return serial.RS485Config{
		Enabled:            true,
		DelayRtsBeforeSend: cfg.DelayRtsBeforeSend,
		DelayRtsAfterSend:  cfg.DelayRtsAfterSend,
		RtsHighDuringSend:  cfg.RtsHighDuringSend,
		RtsHighAfterSend:   cfg.RtsHighAfterSend,
		RxDuringTx:         cfg.RxDuringTx,
	}
}
