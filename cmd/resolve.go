package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/welda-labs/compintel/internal/pipeline"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve partner names against the DART corporate registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, "resolve")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		summary, err := pipeline.New(st, nil, nil, newResolveStage(st)).Run(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("resolution complete",
			zap.Int("matched", summary.Resolve.Matched),
			zap.Int("unmatched", summary.Resolve.Unmatched),
			zap.Int("skipped", summary.Resolve.Skipped),
		)
		return printJSON(summary)
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
