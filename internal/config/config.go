// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultFirmwareVersion is the version reported on the legacy bus.
const DefaultFirmwareVersion = 10020326

var ErrInvalid = errors.New("config: invalid")

// Config defines the global configuration structure
type Config struct {
	Log         LogConfig         `mapstructure:"log"`
	Device      DeviceConfig      `mapstructure:"device"`
	CAN         CANConfig         `mapstructure:"can"`
	Serial      SerialConfig      `mapstructure:"serial"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path
}

// DeviceConfig is the identity announced on the legacy bus.
type DeviceConfig struct {
	Serial           uint32 `mapstructure:"serial"` // lower 24 bits are used
	HardwareRevision uint8  `mapstructure:"hardware_revision"`
	FirmwareVersion  uint32 `mapstructure:"firmware_version"`
}

// CANConfig selects the CAN bus transport
type CANConfig struct {
	Type      string `mapstructure:"type"`      // "socketcan", "websocket", "loopback"
	Interface string `mapstructure:"interface"` // Used if Type is "socketcan"
	URL       string `mapstructure:"url"`       // Used if Type is "websocket"
}

// SerialConfig defines the Modbus RTU line
type SerialConfig struct {
	Driver  string `mapstructure:"driver"`  // "rs485", "rts", "tcp", "simulator"
	Device  string `mapstructure:"device"`  // Used if Driver is "rs485" or "rts"
	Address string `mapstructure:"address"` // Used if Driver is "tcp"

	// Size of the receive accumulator in bytes
	ReceiveBuffer int `mapstructure:"receive_buffer"`

	// RS485 specific
	DelayRtsBeforeSend time.Duration `mapstructure:"delay_rts_before_send"`
	DelayRtsAfterSend  time.Duration `mapstructure:"delay_rts_after_send"`
	RtsHighDuringSend  bool          `mapstructure:"rts_high_during_send"`
	RtsHighAfterSend   bool          `mapstructure:"rts_high_after_send"`
	RxDuringTx         bool          `mapstructure:"rx_during_tx"`

	// Slave addresses served by the "simulator" driver
	SimulatedSlaves []uint8 `mapstructure:"simulated_slaves"`
}

// PersistenceConfig defines where the accepted bridge configuration is kept
type PersistenceConfig struct {
	Type string `mapstructure:"type"` // "memory", "file", "mmap", "sql"
	Path string `mapstructure:"path"` // File path, or DSN for "sql"
}

// MetricsConfig enables the Prometheus endpoint
type MetricsConfig struct {
	Listen string `mapstructure:"listen"` // e.g. ":9100"; empty disables
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("device.firmware_version", DefaultFirmwareVersion)
	v.SetDefault("can.type", "socketcan")
	v.SetDefault("can.interface", "can0")
	v.SetDefault("serial.driver", "rs485")
	v.SetDefault("serial.device", "/dev/ttyS1")
	v.SetDefault("serial.receive_buffer", 256)
	v.SetDefault("persistence.type", "file")
	v.SetDefault("persistence.path", "/var/lib/legacybridge/config.bin")
}

// LoadConfig loads configuration from file. Flags, if given, override
// file values; flag names use dots for nesting (e.g. "log.level").
func LoadConfig(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/legacybridge/")
		v.AddConfigPath("$HOME/.legacybridge")
		v.AddConfigPath(".")
	}

	setDefaults(v)
	v.SetEnvPrefix("LEGACYBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	fixup(&config)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func fixup(c *Config) {
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.CAN.Type = strings.ToLower(c.CAN.Type)
	c.Serial.Driver = strings.ToLower(c.Serial.Driver)
	c.Persistence.Type = strings.ToLower(c.Persistence.Type)
	c.Device.Serial &= 0xFFFFFF
	if c.Serial.ReceiveBuffer <= 0 {
		c.Serial.ReceiveBuffer = 256
	}
}

// Validate checks that every selected transport has its settings.
func (c *Config) Validate() error {
	if c.Device.Serial == 0 {
		return fmt.Errorf("%w: device.serial must be set", ErrInvalid)
	}
	switch c.CAN.Type {
	case "socketcan":
		if c.CAN.Interface == "" {
			return fmt.Errorf("%w: can.interface is required for socketcan", ErrInvalid)
		}
	case "websocket":
		if c.CAN.URL == "" {
			return fmt.Errorf("%w: can.url is required for websocket", ErrInvalid)
		}
	case "loopback":
	default:
		return fmt.Errorf("%w: unknown can.type %q", ErrInvalid, c.CAN.Type)
	}
	switch c.Serial.Driver {
	case "rs485", "rts":
		if c.Serial.Device == "" {
			return fmt.Errorf("%w: serial.device is required for %s", ErrInvalid, c.Serial.Driver)
		}
	case "tcp":
		if c.Serial.Address == "" {
			return fmt.Errorf("%w: serial.address is required for tcp", ErrInvalid)
		}
	case "simulator":
	default:
		return fmt.Errorf("%w: unknown serial.driver %q", ErrInvalid, c.Serial.Driver)
	}
	switch c.Persistence.Type {
	case "memory":
	case "file", "mmap", "sql":
		if c.Persistence.Path == "" {
			return fmt.Errorf("%w: persistence.path is required for %s", ErrInvalid, c.Persistence.Type)
		}
	default:
		return fmt.Errorf("%w: unknown persistence.type %q", ErrInvalid, c.Persistence.Type)
	}
	return nil
}
