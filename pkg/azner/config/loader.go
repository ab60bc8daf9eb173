package config

import (
	"github.com/cognicore/azner/pkg/azner/lemma"
	"github.com/cognicore/azner/pkg/azner/stoplist"
	"github.com/cognicore/azner/pkg/azner/taxonomy"
)

// Loader loads all configuration files and constructs components
type Loader struct {
	LabelsPath        string
	LocationsPath     string
	OrganizationsPath string
	// StoplistPath and LexiconPath are optional; built-in lists are used
	// when they are empty.
	StoplistPath string
	LexiconPath  string
	// CacheSize is passed to the lemmatizer.
	CacheSize int
}

// Components holds all loaded configuration components
type Components struct {
	Resolver   *taxonomy.Resolver
	Lemmatizer *lemma.Rules
	Stoplist   *stoplist.List
}

// Load reads all configuration files and returns initialized components.
// The lemmatizer is seeded with every name from the subtype tables.
func (l *Loader) Load() (*Components, error) {
	tables, err := LoadTables(l.LabelsPath, l.LocationsPath, l.OrganizationsPath)
	if err != nil {
		return nil, err
	}
	comp := &Components{Resolver: taxonomy.NewResolver(tables)}

	if l.StoplistPath != "" {
		sl, err := LoadStoplist(l.StoplistPath)
		if err != nil {
			return nil, err
		}
		comp.Stoplist = stoplist.New(sl.Terms)
	} else {
		comp.Stoplist = stoplist.Default()
	}

	var lex *lemma.Lexicon
	if l.LexiconPath != "" {
		lex, err = LoadLexicon(l.LexiconPath)
		if err != nil {
			return nil, err
		}
	}
	comp.Lemmatizer = lemma.New(lemma.Options{
		Lexicon:    lex,
		KnownNames: comp.Resolver.KnownNames(),
		CacheSize:  l.CacheSize,
	})

	return comp, nil
}
