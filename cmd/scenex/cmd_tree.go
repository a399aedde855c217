package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/calibrant/scenex/internal/explore"
	"github.com/calibrant/scenex/internal/logging"
	"github.com/calibrant/scenex/internal/tree"
)

func newTreeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree <exploration-id>",
		Short: "Show an exploration's tree and status counts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := resolveRoot(cmd)
			if err != nil {
				return err
			}
			store, err := openStore(root)
			if err != nil {
				return err
			}
			defer store.Close()

			ctrl := explore.New(store, nil, logging.NewLogger("error", os.Stderr))
			view, err := ctrl.GetTree(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(view)
			}

			exp := view.Exploration
			fmt.Printf("Exploration %s (%s)\n", exp.ID, exp.Status)
			fmt.Printf("  goal: %s >= %.2f  best: %.4f\n", exp.Goal.Dimension, exp.Goal.Threshold, exp.BestGoalValue)
			fmt.Printf("  depth: %d  nodes: %d  generator calls: %d/%d\n",
				exp.CurrentDepth, exp.NodeCount, exp.ProposalCalls, exp.Config.MaxProposalCalls)

			fmt.Print("  status: ")
			parts := make([]string, 0, 4)
			for _, s := range []tree.NodeStatus{tree.NodeActive, tree.NodeWinner, tree.NodeDominated, tree.NodeExpansionFailed} {
				if n := view.StatusCounts[s]; n > 0 {
					parts = append(parts, fmt.Sprintf("%d %s", n, s))
				}
			}
			fmt.Println(strings.Join(parts, ", "))

			for _, n := range view.Nodes {
				printNode(exp, n)
			}
			return nil
		},
	}
}

func printNode(exp *tree.Exploration, n *tree.Node) {
	indent := strings.Repeat("  ", n.Depth+1)
	label := "baseline"
	if n.Action != nil {
		label = fmt.Sprintf("[%s] %s", n.Action.Category, n.Action.Text)
	}
	value := "unevaluated"
	if v, ok := n.GoalValue(exp.Goal.Dimension); ok {
		value = fmt.Sprintf("%.4f", v)
	}
	fmt.Printf("%s%s %s (%s, %s)\n", indent, n.ID, label, value, n.Status)
}
