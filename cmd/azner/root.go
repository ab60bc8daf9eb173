package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/azner/internal/logger"
	"github.com/cognicore/azner/internal/tagger"
	"github.com/cognicore/azner/pkg/azner"
	"github.com/cognicore/azner/pkg/azner/config"
	"github.com/cognicore/azner/pkg/azner/ingest"
	"github.com/cognicore/azner/pkg/azner/store"
	"github.com/cognicore/azner/pkg/azner/store/sqlite"
)

var (
	cfgFile  string
	envFile  string
	logLevel string
	settings *config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "azner",
	Short: "Named-entity extraction for Azerbaijani news",
	Long: `azner turns the token tags of a named-entity model into typed,
lemmatized and deduplicated persons, locations and organizations.

It can:
  - extract entities from a single text
  - import scraped articles and process them in batches
  - export processed articles as JSON
  - suggest new subtype table entries
  - serve extraction over HTTP`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := config.LoadSettings(cfgFile, envFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			s.LogLevel = logLevel
		}
		logger.SetLevel(s.LogLevel)
		settings = s
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./azner.yaml or ~/.azner/azner.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file, ignored when missing")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
}

// loadComponents reads the lookup tables named in s.
func loadComponents(s *config.Settings) (*config.Components, error) {
	loader := config.Loader{
		LabelsPath:        s.Tables.Labels,
		LocationsPath:     s.Tables.Locations,
		OrganizationsPath: s.Tables.Organizations,
		StoplistPath:      s.Tables.Stoplist,
		LexiconPath:       s.Tables.Lexicon,
	}
	return loader.Load()
}

func pipelineOptions(s *config.Settings, comp *config.Components) ingest.Options {
	return ingest.Options{
		ConfidenceFloor:    s.Extract.ConfidenceFloor,
		CaseSensitiveDedup: s.Extract.CaseSensitiveDedup,
		FilterProperNames:  s.Extract.FilterProperNames,
		MergePartialNames:  s.Extract.MergePartialNames,
		LegalFormSuffixes:  s.Extract.LegalFormSuffixes,
		Stoplist:           comp.Stoplist,
	}
}

func batchOptions(s *config.Settings) azner.BatchOptions {
	minLen := s.Engine.MinTextLength
	if minLen == 0 {
		// Settings carry their own default, so zero here was asked for.
		minLen = -1
	}
	return azner.BatchOptions{
		BatchSize:     s.Engine.BatchSize,
		MinTextLength: minLen,
		FlushAttempts: s.Engine.FlushAttempts,
	}
}

func openStore(ctx context.Context, s *config.Settings) (store.Store, error) {
	st, err := sqlite.OpenSQLite(ctx, s.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", s.Store.Path, err)
	}
	return st, nil
}

// buildEngine wires tables, tagger client, pipeline and the SQLite store.
func buildEngine(ctx context.Context, s *config.Settings) (*azner.Engine, error) {
	return buildEngineWith(ctx, s, nil)
}

// buildEngineWith uses st instead of opening the configured store when st
// is not nil.
func buildEngineWith(ctx context.Context, s *config.Settings, st store.Store) (*azner.Engine, error) {
	comp, err := loadComponents(s)
	if err != nil {
		return nil, err
	}

	client := tagger.New(tagger.Config{
		URL:         s.Tagger.URL,
		Timeout:     s.Tagger.Timeout,
		RetryMax:    s.Tagger.RetryMax,
		RuneOffsets: s.Tagger.RuneOffsets,
	})
	pipe, err := ingest.NewPipeline(client, comp.Resolver, comp.Lemmatizer, pipelineOptions(s, comp))
	if err != nil {
		return nil, err
	}

	if st == nil {
		if st, err = openStore(ctx, s); err != nil {
			return nil, err
		}
	}
	e, err := azner.New(azner.Options{Store: st, Pipeline: pipe, Batch: batchOptions(s)})
	if err != nil {
		st.Close()
		return nil, err
	}
	return e, nil
}
