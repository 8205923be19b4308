package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/welda-labs/compintel/internal/pipeline"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract partner organizations from crawled articles via Claude",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, "extract")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		summary, err := pipeline.New(st, nil, newExtractStage(st), nil).Run(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("extraction complete",
			zap.Int("processed", summary.Extract.Processed),
			zap.Int("appended", summary.Extract.Appended),
			zap.Int("failed", summary.Extract.Failed),
		)
		return printJSON(summary)
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
