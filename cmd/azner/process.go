package main

import (
	"github.com/spf13/cobra"

	"github.com/cognicore/azner/internal/articles"
)

var processLimit int

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Extract entities for every stored article",
	Long: `Run every stored source article through extraction and store the
processed articles in batches. Prints the run statistics as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := buildEngine(cmd.Context(), settings)
		if err != nil {
			return err
		}
		defer e.Close()

		stats, err := e.ProcessAll(cmd.Context(), processLimit)
		if err != nil {
			return err
		}
		return articles.WriteJSON(cmd.OutOrStdout(), stats)
	},
}

func init() {
	processCmd.Flags().IntVar(&processLimit, "limit", 0, "process at most this many articles (0 means all)")
	rootCmd.AddCommand(processCmd)
}
