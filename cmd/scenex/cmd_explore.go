package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/calibrant/scenex/internal/config"
	"github.com/calibrant/scenex/internal/engine"
	"github.com/calibrant/scenex/internal/explore"
	"github.com/calibrant/scenex/internal/logging"
	"github.com/calibrant/scenex/internal/score"
	"github.com/calibrant/scenex/internal/space"
)

func newExploreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Start and run an exploration to completion",
		Long: `Start an exploration from a scored baseline and run it until a terminal
status is reached: goal achieved, a limit hit, or no viable paths left.

The baseline is given as dimension=value pairs in [0,1], and its observed
outcome as success/failure rates (not-attempted is the remainder).

Example:
  scenex explore \
    --context "subscription onboarding flow" \
    --baseline appeal=0.5 --baseline cost=0.3 --baseline risk=0.3 \
    --success 0.25 --failure 0.15 \
    --threshold 0.40`,
		RunE: runExplore,
	}

	cmd.Flags().String("context", "", "Product and baseline description handed to the generator (required)")
	cmd.Flags().StringSlice("baseline", nil, "Baseline dimension as name=value, repeatable (required)")
	cmd.Flags().Float64("success", 0.25, "Baseline observed success rate")
	cmd.Flags().Float64("failure", 0.15, "Baseline observed failure rate")
	cmd.Flags().String("goal-dim", "", "Goal dimension (default from config)")
	cmd.Flags().Float64("threshold", 0, "Goal threshold (default from config)")
	cmd.Flags().Int("beam", 0, "Beam width override")
	cmd.Flags().Int("depth", 0, "Max depth override")
	cmd.Flags().Int("calls", 0, "Max proposal call override")
	cmd.Flags().Int("sample-size", 0, "Population sample size override")
	cmd.Flags().Int64("seed", 0, "Random seed override (0 = time-based)")
	cmd.MarkFlagRequired("context")
	cmd.MarkFlagRequired("baseline")

	return cmd
}

func runExplore(cmd *cobra.Command, args []string) error {
	root, err := resolveRoot(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	sourceContext, _ := cmd.Flags().GetString("context")
	pairs, _ := cmd.Flags().GetStringSlice("baseline")
	dims, err := parseDimensions(pairs)
	if err != nil {
		return err
	}
	baseline, err := space.NewConfiguration(dims)
	if err != nil {
		return err
	}

	successRate, _ := cmd.Flags().GetFloat64("success")
	failureRate, _ := cmd.Flags().GetFloat64("failure")
	outcome, err := space.NewOutcome(successRate, failureRate, 1-successRate-failureRate)
	if err != nil {
		return err
	}

	goal := space.Goal{
		Dimension: cfg.Exploration.GoalDimension,
		Threshold: cfg.Exploration.GoalThreshold,
	}
	if cmd.Flags().Changed("goal-dim") {
		goal.Dimension, _ = cmd.Flags().GetString("goal-dim")
	}
	if cmd.Flags().Changed("threshold") {
		goal.Threshold, _ = cmd.Flags().GetFloat64("threshold")
	}

	runCfg := cfg.Exploration.ToRunConfig()
	if cmd.Flags().Changed("beam") {
		runCfg.BeamWidth, _ = cmd.Flags().GetInt("beam")
	}
	if cmd.Flags().Changed("depth") {
		runCfg.MaxDepth, _ = cmd.Flags().GetInt("depth")
	}
	if cmd.Flags().Changed("calls") {
		runCfg.MaxProposalCalls, _ = cmd.Flags().GetInt("calls")
	}
	if cmd.Flags().Changed("sample-size") {
		runCfg.SampleSize, _ = cmd.Flags().GetInt("sample-size")
	}
	if cmd.Flags().Changed("seed") {
		runCfg.RandomSeed, _ = cmd.Flags().GetInt64("seed")
	}

	client, err := buildClient(cfg, runCfg.Categories)
	if err != nil {
		return err
	}
	store, err := openStore(root)
	if err != nil {
		return err
	}
	defer store.Close()

	logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)
	var audit *logging.AuditLogger
	if cfg.Logging.Audit {
		audit = logging.NewAuditLogger(root)
		defer audit.Close()
	}

	eng := engine.New(store, client, score.NewMonteCarloScorer(), logger, audit)
	if cfg.Exploration.EvalTimeout > 0 {
		eng.SetEvalTimeout(cfg.Exploration.EvalTimeout)
	}
	ctrl := explore.New(store, eng, logger)

	ctx := cmd.Context()
	exp, err := ctrl.StartExploration(ctx, explore.SourceConfig{
		Context:         sourceContext,
		Baseline:        baseline,
		BaselineOutcome: &outcome,
	}, goal, runCfg)
	if err != nil {
		return err
	}
	if !exp.Status.IsTerminal() {
		exp, err = ctrl.RunToCompletion(ctx, exp.ID, score.PopulationSample{})
		if err != nil {
			return err
		}
	}

	path, err := ctrl.GetWinningPath(ctx, exp.ID)
	if err != nil {
		return err
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"exploration": exp,
			"path":        path,
		})
	}

	fmt.Printf("Exploration %s finished: %s\n", exp.ID, exp.Status)
	fmt.Printf("  depth: %d  nodes: %d  generator calls: %d  best %s: %.4f\n",
		exp.CurrentDepth, exp.NodeCount, exp.ProposalCalls, goal.Dimension, exp.BestGoalValue)
	if path != nil {
		fmt.Println("Winning path:")
		printPath(path)
	}
	return nil
}

// parseDimensions parses repeated name=value flags into a dimension map.
func parseDimensions(pairs []string) (map[string]float64, error) {
	dims := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid baseline dimension %q, expected name=value", pair)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid baseline value %q: %w", pair, err)
		}
		dims[name] = v
	}
	return dims, nil
}

func printPath(path *explore.Path) {
	for i, step := range path.Steps {
		if step.Action == nil {
			fmt.Printf("  %d. baseline (%.4f)\n", i, step.GoalValue)
			continue
		}
		fmt.Printf("  %d. [%s] %s (%.4f, %+.4f)\n",
			i, step.Action.Category, step.Action.Text, step.GoalValue, step.Delta)
	}
	fmt.Printf("  total improvement: %+.4f\n", path.TotalImprovement)
}
