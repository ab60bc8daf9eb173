package main

import (
	"github.com/spf13/cobra"

	"github.com/cognicore/azner/internal/articles"
	"github.com/cognicore/azner/pkg/azner"
)

var (
	addIn   azner.ArticleInput
	addFile string
	addDate string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Store one article and extract its entities",
	Long: `Store a new article and its extraction result. The text comes from
--file or standard input.

Example:
  azner add --url https://apa.az/xeber/1 --title "Görüş" --file article.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd.InOrStdin(), addFile, nil)
		if err != nil {
			return err
		}
		in := addIn
		in.Text = text
		in.ArticleDate = articles.ParseDate(addDate)

		e, err := buildEngine(cmd.Context(), settings)
		if err != nil {
			return err
		}
		defer e.Close()

		p, err := e.AddArticle(cmd.Context(), in)
		if err != nil {
			return err
		}
		return articles.WriteJSON(cmd.OutOrStdout(), p)
	},
}

func init() {
	f := addCmd.Flags()
	f.StringVar(&addIn.URL, "url", "", "article URL")
	f.StringVar(&addIn.Title, "title", "", "article title")
	f.StringVar(&addIn.Source, "source", "", "publishing site")
	f.StringVar(&addIn.Author, "author", "", "author")
	f.StringVar(&addIn.Section, "section", "", "site section")
	f.StringSliceVar(&addIn.Tags, "tag", nil, "tag, repeatable")
	f.StringVar(&addDate, "date", "", "publication date, e.g. 2025-03-01 or 01.03.2025 10:00")
	f.StringVarP(&addFile, "file", "f", "", "read the text from a file")
	_ = addCmd.MarkFlagRequired("url")
	_ = addCmd.MarkFlagRequired("title")
	rootCmd.AddCommand(addCmd)
}
