// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goburrow/modbus"
	"github.com/goburrow/serial"
	"github.com/spf13/cobra"

	bmodbus "github.com/ffutop/legacy-modbus-bridge/modbus"
)

type probeOptions struct {
	device   string
	baudRate int
	dataBits int
	parity   string
	stopBits int
	rs485    bool
	timeout  time.Duration

	slave    uint8
	function uint8
	register uint16
	count    uint16
}

func newProbeCmd() *cobra.Command {
	opts := probeOptions{}
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Read from a Modbus slave directly, bypassing the bridge",
		Long: `probe opens the serial line itself and performs one read, so the wiring and
line settings of a slave can be checked before the bridge is configured.`,
		Example: `  legacybridge probe --device /dev/ttyS1 --slave 1 --function 3 --register 0x10
  legacybridge probe --device /dev/ttyUSB0 --baud 19200 --parity E --count 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProbe(cmd.OutOrStdout(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.device, "device", "/dev/ttyS1", "Serial device")
	f.IntVar(&opts.baudRate, "baud", 9600, "Baud rate")
	f.IntVar(&opts.dataBits, "data-bits", 8, "Data bits")
	f.StringVar(&opts.parity, "parity", "N", "Parity: N, E, O")
	f.IntVar(&opts.stopBits, "stop-bits", 1, "Stop bits")
	f.BoolVar(&opts.rs485, "rs485", true, "Use kernel RS485 mode")
	f.DurationVar(&opts.timeout, "timeout", time.Second, "Response timeout")
	f.Uint8Var(&opts.slave, "slave", 1, "Slave address")
	f.Uint8Var(&opts.function, "function", bmodbus.FuncCodeReadHoldingRegisters, "Function code: 1, 2, 3 or 4")
	f.Uint16Var(&opts.register, "register", 0, "First register or coil")
	f.Uint16Var(&opts.count, "count", 1, "Number of registers or coils")
	return cmd
}

func (o probeOptions) serialConfig() serial.Config {
	return serial.Config{
		Address:  o.device,
		BaudRate: o.baudRate,
		DataBits: o.dataBits,
		StopBits: o.stopBits,
		Parity:   strings.ToUpper(o.parity),
		Timeout:  o.timeout,
		RS485:    serial.RS485Config{Enabled: o.rs485},
	}
}

func runProbe(w io.Writer, o probeOptions) error {
	handler := modbus.NewRTUClientHandler(o.device)
	handler.Config = o.serialConfig()
	handler.SlaveId = o.slave
	if err := handler.Connect(); err != nil {
		return fmt.Errorf("failed to open %s: %w", o.device, err)
	}
	defer handler.Close()

	client := modbus.NewClient(handler)
	data, err := probeRead(client, o.function, o.register, o.count)
	if err != nil {
		return fmt.Errorf("%s from slave %d: %w", bmodbus.FunctionName(o.function), o.slave, err)
	}
	return printProbe(w, o, data)
}

func probeRead(client modbus.Client, function uint8, register, count uint16) ([]byte, error) {
	switch function {
	case bmodbus.FuncCodeReadCoils:
		return client.ReadCoils(register, count)
	case bmodbus.FuncCodeReadDiscreteInputs:
		return client.ReadDiscreteInputs(register, count)
	case bmodbus.FuncCodeReadHoldingRegisters:
		return client.ReadHoldingRegisters(register, count)
	case bmodbus.FuncCodeReadInputRegisters:
		return client.ReadInputRegisters(register, count)
	}
	return nil, fmt.Errorf("unsupported function code %d", function)
}

func printProbe(w io.Writer, o probeOptions, data []byte) error {
	fmt.Fprintf(w, "%s: %s\n", bmodbus.FunctionName(o.function), hex.EncodeToString(data))
	switch o.function {
	case bmodbus.FuncCodeReadCoils, bmodbus.FuncCodeReadDiscreteInputs:
		for i := 0; i < int(o.count) && i/8 < len(data); i++ {
			fmt.Fprintf(w, "%5d  %d\n", int(o.register)+i, data[i/8]>>(i%8)&1)
		}
	default:
		for i := 0; i+1 < len(data); i += 2 {
			v := binary.BigEndian.Uint16(data[i:])
			fmt.Fprintf(w, "%5d  0x%04X  %d\n", int(o.register)+i/2, v, v)
		}
	}
	return nil
}
