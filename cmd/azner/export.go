package main

import (
	"github.com/spf13/cobra"

	"github.com/cognicore/azner/internal/articles"
	"github.com/cognicore/azner/internal/logger"
)

var (
	exportOut   string
	exportLimit int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write processed articles to a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context(), settings)
		if err != nil {
			return err
		}
		defer st.Close()

		processed, err := st.ListProcessed(cmd.Context(), exportLimit)
		if err != nil {
			return err
		}
		if exportOut == "-" {
			return articles.WriteJSON(cmd.OutOrStdout(), processed)
		}
		if err := articles.WriteJSONFile(exportOut, processed); err != nil {
			return err
		}
		logger.GetLogger().WithField("articles", len(processed)).Infof("exported to %s", exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "processed_articles.json", "output file, - for stdout")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "export at most this many articles (0 means all)")
	rootCmd.AddCommand(exportCmd)
}
