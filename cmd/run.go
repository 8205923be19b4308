package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full crawl, extract, and resolve pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, "run")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := newPipeline(st)
		if err != nil {
			return err
		}

		summary, err := p.Run(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("pipeline complete",
			zap.String("run_id", summary.RunID),
			zap.Int("articles", summary.Crawl.Appended),
			zap.Int("collaborations", summary.Extract.Appended),
			zap.Int("matched", summary.Resolve.Matched),
			zap.Int("unmatched", summary.Resolve.Unmatched),
		)
		return printJSON(summary)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
