package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/welda-labs/compintel/internal/pipeline"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl competitor news into the articles sheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, "crawl")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stage, err := newCrawlStage(st)
		if err != nil {
			return err
		}

		summary, err := pipeline.New(st, stage, nil, nil).Run(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("crawl complete",
			zap.Int("appended", summary.Crawl.Appended),
			zap.Int("skipped", summary.Crawl.Skipped),
			zap.Int("failed", summary.Crawl.Failed),
		)
		return printJSON(summary)
	},
}

func init() {
	rootCmd.AddCommand(crawlCmd)
}
