package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/calibrant/scenex/internal/config"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize the scenex data directory",
		Long: `Initialize the scenex data directory and write a starter config.

This creates the data directory (default ~/.scenex), the SQLite store, and
a config.yaml seeded with defaults for you to edit.

Examples:
  scenex init                     # Initialize ~/.scenex
  scenex init --root ./data       # Initialize a project-local directory`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot(cmd)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(root, 0755); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}

			// Write a starter config unless one already exists.
			configPath := filepath.Join(root, "config.yaml")
			created := false
			if _, err := os.Stat(configPath); os.IsNotExist(err) {
				data, err := yaml.Marshal(config.Default())
				if err != nil {
					return fmt.Errorf("failed to render default config: %w", err)
				}
				if err := os.WriteFile(configPath, data, 0600); err != nil {
					return fmt.Errorf("failed to write config.yaml: %w", err)
				}
				created = true
			}

			// Initialize the store so schema problems surface here, not on
			// the first explore.
			store, err := openStore(root)
			if err != nil {
				return err
			}
			defer store.Close()

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(map[string]any{
					"status":         "initialized",
					"path":           root,
					"config_created": created,
				})
			}
			fmt.Printf("Initialized scenex data directory at %s\n", root)
			if created {
				fmt.Printf("Wrote starter config to %s\n", configPath)
			}
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load(root)
			if err != nil {
				return err
			}

			// Never print the raw key.
			display := *cfg
			display.Generator.APIKey = cfg.Generator.RedactedAPIKey()

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(display)
			}
			data, err := yaml.Marshal(display)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}
}
