// Copyright (c) 2025-2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/ffutop/legacy-modbus-bridge/internal/config"
	"github.com/ffutop/legacy-modbus-bridge/internal/gateway"
)

// exitReboot tells the supervisor to restart the bridge.
const exitReboot = 3

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, gateway.ErrReboot) {
			os.Exit(exitReboot)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bridge",
		Args:  cobra.NoArgs,
		RunE:  runGateway,
	}
	root := &cobra.Command{
		Use:   "legacybridge",
		Short: "Bridge a legacy CAN home automation bus to a Modbus RTU line",
		Long: `legacybridge announces itself as a Modbus extension on the legacy CAN bus,
polls the configured Modbus slaves and forwards write commands from the bus.

Without a subcommand it runs the bridge.`,
		Args:          cobra.NoArgs,
		RunE:          runGateway,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "", "Path to config file")
	root.PersistentFlags().String("log.level", "info", "Log level: debug, info, warn, error")

	root.AddCommand(runCmd, newConfigCmd(), newProbeCmd())
	return root
}

func runGateway(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogger(cfg.Log)

	slog.Info("Starting legacy Modbus bridge...", "serial", fmt.Sprintf("%06X", cfg.Device.Serial), "can", cfg.CAN.Type, "line", cfg.Serial.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, err := gateway.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to start gateway: %w", err)
	}
	err = gw.Run(ctx)
	if errors.Is(err, gateway.ErrReboot) {
		slog.Warn("Rebooting.")
		return err
	}
	slog.Info("Goodbye.")
	return err
}

// loadConfig reads the configuration named by --config, with flags that
// were set on the command line taking precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(configFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Failed to open log file, falling back to stdout: %v\n", err)
			handler = slog.NewTextHandler(os.Stdout, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
