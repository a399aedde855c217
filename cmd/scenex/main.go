package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/calibrant/scenex/internal/config"
	"github.com/calibrant/scenex/internal/propose"
	"github.com/calibrant/scenex/internal/tree"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "scenex",
		Short: "Scenario exploration engine",
		Long: `scenex explores the design space around a baseline configuration.

It runs a bounded beam search: an external generator proposes candidate
modifications, a population simulation scores each candidate, and Pareto
dominance filtering keeps only the worthwhile branches until the goal is
reached or a budget runs out.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for machine consumption)")
	rootCmd.PersistentFlags().String("root", "", "Data directory (default ~/.scenex)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newExploreCmd(),
		newTreeCmd(),
		newPathCmd(),
		newConfigCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveRoot returns the data directory for this invocation: the --root
// flag when set, otherwise ~/.scenex.
func resolveRoot(cmd *cobra.Command) (string, error) {
	root, _ := cmd.Flags().GetString("root")
	if root != "" {
		return root, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(homeDir, ".scenex"), nil
}

// openStore opens the SQLite tree store under the data directory.
func openStore(root string) (*tree.SQLiteStore, error) {
	store, err := tree.NewSQLiteStore(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", root, err)
	}
	return store, nil
}

// buildClient constructs the proposal client selected by configuration.
func buildClient(cfg *config.ScenexConfig, categories []string) (propose.Client, error) {
	clientCfg := cfg.Generator.ToClientConfig()

	var client propose.Client
	switch cfg.Generator.Provider {
	case "anthropic":
		client = propose.NewAnthropicClient(clientCfg, categories)
	case "openai", "ollama":
		client = propose.NewOpenAIClient(clientCfg, categories)
	case "mock":
		client = propose.NewMockClient()
	case "":
		return nil, fmt.Errorf("no generator configured: set generator.provider in config.yaml or SCENEX_PROVIDER")
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Generator.Provider)
	}

	if !client.Available() {
		return nil, fmt.Errorf("generator %q is not available: check API key configuration (%s)",
			cfg.Generator.Provider, cfg.Generator)
	}
	if cfg.Generator.RatePerMinute > 0 {
		client = propose.NewRateLimitedClient(client, cfg.Generator.RatePerMinute/60.0, cfg.Generator.Burst)
	}
	return client, nil
}
