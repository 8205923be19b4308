package main

import (
	"github.com/spf13/cobra"

	"github.com/welda-labs/compintel/internal/pipeline"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sheet counts and the most recent run",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, "status")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		status, err := pipeline.ReadStatus(ctx, st)
		if err != nil {
			return err
		}
		return printJSON(status)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
