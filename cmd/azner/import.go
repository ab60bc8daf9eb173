package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cognicore/azner/internal/articles"
	"github.com/cognicore/azner/internal/logger"
)

var importProcess bool

var importCmd = &cobra.Command{
	Use:   "import <file.jsonl>",
	Short: "Load scraped articles from a JSONL file",
	Long: `Load scraped articles, one JSON object per line, into the store.
Articles whose URL is already stored are skipped. With --process the
stored articles are processed right after the import.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := articles.LoadFromJSONL(args[0])
		if err != nil {
			return err
		}
		log := logger.GetLogger()
		log.WithField("articles", len(items)).Infof("loaded %s", args[0])

		e, err := buildEngine(cmd.Context(), settings)
		if err != nil {
			return err
		}
		defer e.Close()

		stats, err := e.Import(cmd.Context(), items)
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"inserted":   stats.Inserted,
			"duplicates": stats.Duplicates,
			"invalid":    stats.Invalid,
		}).Info("import complete")

		if !importProcess {
			return nil
		}
		run, err := e.ProcessAll(cmd.Context(), 0)
		if err != nil {
			return err
		}
		return articles.WriteJSON(cmd.OutOrStdout(), run)
	},
}

func init() {
	importCmd.Flags().BoolVar(&importProcess, "process", false, "process articles after importing")
	rootCmd.AddCommand(importCmd)
}
