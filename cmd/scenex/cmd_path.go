package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/calibrant/scenex/internal/explore"
	"github.com/calibrant/scenex/internal/logging"
)

func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path <exploration-id>",
		Short: "Show the winning path of a finished exploration",
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
			path, err := ctrl.GetWinningPath(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(path)
			}
			if path == nil {
				fmt.Println("No winning path: the exploration has no winner node.")
				return nil
			}
			printPath(path)
			return nil
		},
	}
}
