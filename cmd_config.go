// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ffutop/legacy-modbus-bridge/internal/bridge"
	"github.com/ffutop/legacy-modbus-bridge/internal/persistence"
)

// rawBlob reads and writes the blob as a plain file instead of through a
// persistence backend.
const rawBlob = "raw"

func newConfigCmd() *cobra.Command {
	var storage string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and build bridge configuration blobs",
	}
	cmd.PersistentFlags().StringVar(&storage, "storage", rawBlob, "Blob storage: raw, file, mmap, sql")

	decode := &cobra.Command{
		Use:   "decode <blob>",
		Short: "Print a configuration blob as YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := loadBlob(storage, args[0])
			if err != nil {
				return err
			}
			return decodeConfig(cmd.OutOrStdout(), blob)
		},
	}
	encode := &cobra.Command{
		Use:   "encode <yaml> <blob>",
		Short: "Build a configuration blob from YAML",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			blob, err := encodeConfig(src)
			if err != nil {
				return err
			}
			if err := saveBlob(storage, args[1], blob); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes to %s\n", len(blob), args[1])
			return nil
		},
	}
	cmd.AddCommand(decode, encode)
	return cmd
}

func decodeConfig(w io.Writer, blob []byte) error {
	if blob == nil {
		return fmt.Errorf("no configuration saved")
	}
	c, err := bridge.ParseConfig(blob)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newDocument(c)); err != nil {
		return err
	}
	return enc.Close()
}

func encodeConfig(src []byte) ([]byte, error) {
	var doc configDocument
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	c, err := doc.Config()
	if err != nil {
		return nil, err
	}
	return c.MarshalBinary()
}

func loadBlob(kind, path string) ([]byte, error) {
	if kind == rawBlob {
		return os.ReadFile(path)
	}
	s, err := persistence.Open(kind, path)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.Load()
}

func saveBlob(kind, path string, blob []byte) error {
	if kind == rawBlob {
		return os.WriteFile(path, blob, 0644)
	}
	s, err := persistence.Open(kind, path)
	if err != nil {
		return err
	}
	if err := s.Save(blob); err != nil {
		s.Close()
		return err
	}
	return s.Close()
}
