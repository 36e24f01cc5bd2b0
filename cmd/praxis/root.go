// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Praxis Contributors

package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/praxishub/praxis/internal/xdg"
)

// Global flags available to all subcommands.
var configFile string

// resolveConfigFile returns the --config value, or the XDG default path
// when no flag was given and the default file exists.
func resolveConfigFile() string {
	if configFile != "" {
		return configFile
	}
	if path := xdg.ConfigFile(); fileExists(path) {
		return path
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// NewRootCmd creates the root command for the Praxis CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "praxis",
		Short: "Praxis - community mentorship backend",
		Long: `Praxis is the backend for a community mentorship platform.
It serves the authentication API and manages the PostgreSQL schema.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
