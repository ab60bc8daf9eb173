package main

import (
	"github.com/spf13/cobra"

	"github.com/cognicore/azner/pkg/azner/autotune"
)

var suggestThresholds autotune.Thresholds

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest subtype table entries from processed articles",
	Long: `List locations and organizations that were extracted without a
subtype often enough and confidently enough to be worth adding to the
subtype tables. Names the current tables already resolve are left out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		comp, err := loadComponents(settings)
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), settings)
		if err != nil {
			return err
		}
		defer st.Close()

		tuner := autotune.Tuner{
			Provider:   st,
			Thresholds: suggestThresholds,
			Reviewer:   autotune.TableReviewer{Resolver: comp.Resolver},
		}
		suggestions, err := tuner.Run(cmd.Context())
		if err != nil {
			return err
		}
		return autotune.WriteYAML(cmd.OutOrStdout(), suggestions)
	},
}

func init() {
	suggestCmd.Flags().IntVar(&suggestThresholds.MinArticles, "min-articles", autotune.DefaultThresholds.MinArticles, "minimum number of articles")
	suggestCmd.Flags().Float64Var(&suggestThresholds.MinScore, "min-score", autotune.DefaultThresholds.MinScore, "minimum mean score")
	rootCmd.AddCommand(suggestCmd)
}
