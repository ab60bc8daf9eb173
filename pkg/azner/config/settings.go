package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/cognicore/azner/pkg/azner/internalerr"
)

// Settings is the runtime configuration of the azner binary.
type Settings struct {
	LogLevel string          `mapstructure:"log_level"`
	Tables   TablesSettings  `mapstructure:"tables"`
	Tagger   TaggerSettings  `mapstructure:"tagger"`
	Store    StoreSettings   `mapstructure:"store"`
	Extract  ExtractSettings `mapstructure:"extract"`
	Engine   EngineSettings  `mapstructure:"engine"`
	Server   ServerSettings  `mapstructure:"server"`
}

// TablesSettings locates the lookup tables and word lists.
type TablesSettings struct {
	Labels        string `mapstructure:"labels"`
	Locations     string `mapstructure:"locations"`
	Organizations string `mapstructure:"organizations"`
	Stoplist      string `mapstructure:"stoplist"`
	Lexicon       string `mapstructure:"lexicon"`
}

// TaggerSettings configure the token-classification server client.
type TaggerSettings struct {
	URL      string        `mapstructure:"url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	RetryMax int           `mapstructure:"retry_max"`
	// RuneOffsets is set when the server reports character offsets.
	RuneOffsets bool `mapstructure:"rune_offsets"`
}

// StoreSettings locate the SQLite article store.
type StoreSettings struct {
	Path string `mapstructure:"path"`
}

// ExtractSettings tune span assembly and normalization.
type ExtractSettings struct {
	ConfidenceFloor    float64  `mapstructure:"confidence_floor"`
	// CaseSensitiveDedup only matters with a case-preserving lemmatizer; the
	// built-in rules lower-case every lemma.
	CaseSensitiveDedup bool     `mapstructure:"case_sensitive_dedup"`
	FilterProperNames  bool     `mapstructure:"filter_proper_names"`
	MergePartialNames  bool     `mapstructure:"merge_partial_names"`
	LegalFormSuffixes  []string `mapstructure:"legal_form_suffixes"`
}

// EngineSettings tune batch processing.
type EngineSettings struct {
	BatchSize     int  `mapstructure:"batch_size"`
	MinTextLength int  `mapstructure:"min_text_length"`
	FlushAttempts uint `mapstructure:"flush_attempts"`
}

// ServerSettings configure the HTTP API.
type ServerSettings struct {
	Addr string `mapstructure:"addr"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		LogLevel: "info",
		Tables: TablesSettings{
			Labels:        "config/label_mapping.json",
			Locations:     "config/types_city_country.json",
			Organizations: "config/types_org.json",
			Stoplist:      "config/stoplist.yaml",
			Lexicon:       "config/lemmas.yaml",
		},
		Tagger: TaggerSettings{
			URL:         "http://localhost:8080/predict",
			Timeout:     30 * time.Second,
			RetryMax:    3,
			RuneOffsets: true,
		},
		Store: StoreSettings{Path: "azner.db"},
		Extract: ExtractSettings{
			FilterProperNames: true,
			LegalFormSuffixes: []string{"mmc", "asc", "mq", "ik"},
		},
		Engine: EngineSettings{
			BatchSize:     100,
			MinTextLength: 50,
			FlushAttempts: 3,
		},
		Server: ServerSettings{Addr: ":8090"},
	}
}

// legacyEnv maps settings keys to the environment names of older
// deployments. The AZNER_ names take precedence.
var legacyEnv = map[string]string{
	"tables.labels":        "LABELS_PATH",
	"tables.locations":     "TYPES_LOC_PATH",
	"tables.organizations": "ORGS_TYPES_PATH",
	"tagger.url":           "NER_URL",
}

// LoadSettings merges defaults, an optional YAML file, the environment and
// optional .env files. An empty cfgFile searches for azner.yaml in the
// working directory and $HOME/.azner; a missing file is not an error.
func LoadSettings(cfgFile string, envFiles ...string) (*Settings, error) {
	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, DefaultSettings())

	v.SetEnvPrefix("AZNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envName := "AZNER_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envName, legacy); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("azner")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.azner")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, internalerr.NewConfigLoadError(cfgFile, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, internalerr.NewConfigLoadError(v.ConfigFileUsed(), err)
	}
	// An explicit empty list turns the legal-form check off.
	if s.Extract.LegalFormSuffixes == nil {
		s.Extract.LegalFormSuffixes = []string{}
	}
	return &s, nil
}

func setDefaults(v *viper.Viper, d Settings) {
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("tables.labels", d.Tables.Labels)
	v.SetDefault("tables.locations", d.Tables.Locations)
	v.SetDefault("tables.organizations", d.Tables.Organizations)
	v.SetDefault("tables.stoplist", d.Tables.Stoplist)
	v.SetDefault("tables.lexicon", d.Tables.Lexicon)
	v.SetDefault("tagger.url", d.Tagger.URL)
	v.SetDefault("tagger.timeout", d.Tagger.Timeout)
	v.SetDefault("tagger.retry_max", d.Tagger.RetryMax)
	v.SetDefault("tagger.rune_offsets", d.Tagger.RuneOffsets)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("extract.confidence_floor", d.Extract.ConfidenceFloor)
	v.SetDefault("extract.case_sensitive_dedup", d.Extract.CaseSensitiveDedup)
	v.SetDefault("extract.filter_proper_names", d.Extract.FilterProperNames)
	v.SetDefault("extract.merge_partial_names", d.Extract.MergePartialNames)
	v.SetDefault("extract.legal_form_suffixes", d.Extract.LegalFormSuffixes)
	v.SetDefault("engine.batch_size", d.Engine.BatchSize)
	v.SetDefault("engine.min_text_length", d.Engine.MinTextLength)
	v.SetDefault("engine.flush_attempts", d.Engine.FlushAttempts)
	v.SetDefault("server.addr", d.Server.Addr)
}

func loadEnvFiles(files []string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return internalerr.NewConfigLoadError(f, err)
		}
	}
	return nil
}
