package main

import (
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/azner/internal/articles"
	"github.com/cognicore/azner/pkg/azner/store/memstore"
)

var extractFile string

var extractCmd = &cobra.Command{
	Use:   "extract [text]",
	Short: "Extract entities from one text",
	Long: `Extract entities from the text given as argument, read from --file, or
read from standard input, and print the result as JSON.

Examples:
  azner extract "Prezident İlham Əliyev Bakıda çıxış edib"
  azner extract --file article.txt
  cat article.txt | azner extract`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(cmd.InOrStdin(), extractFile, args)
		if err != nil {
			return err
		}

		e, err := buildEngineWith(cmd.Context(), settings, memstore.New())
		if err != nil {
			return err
		}
		defer e.Close()

		out, err := e.Extract(cmd.Context(), text)
		if err != nil {
			return err
		}
		return articles.WriteJSON(cmd.OutOrStdout(), out)
	},
}

// readInput prefers the argument, then the file, then stdin.
func readInput(stdin io.Reader, file string, args []string) (string, error) {
	switch {
	case len(args) > 0:
		return args[0], nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(string(data)) == "" {
			return "", errors.New("no input text")
		}
		return string(data), nil
	}
}

func init() {
	extractCmd.Flags().StringVarP(&extractFile, "file", "f", "", "read the text from a file")
	rootCmd.AddCommand(extractCmd)
}
