// Package config loads the lookup tables, word lists and runtime settings.
//
// Table files are YAML; JSON documents load unchanged since YAML is a
// superset. Every file is checked against an embedded JSON Schema and any
// failure is reported as *internalerr.ConfigLoadError.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/azner/pkg/azner/internalerr"
	"github.com/cognicore/azner/pkg/azner/lemma"
	"github.com/cognicore/azner/pkg/azner/taxonomy"
)

// LoadTables reads the label mapping and the two subtype tables.
func LoadTables(labelsPath, locationsPath, organizationsPath string) (taxonomy.Tables, error) {
	labels, err := LoadLabelMapping(labelsPath)
	if err != nil {
		return taxonomy.Tables{}, err
	}
	locs, err := LoadSubtypeTable(locationsPath)
	if err != nil {
		return taxonomy.Tables{}, err
	}
	orgs, err := LoadSubtypeTable(organizationsPath)
	if err != nil {
		return taxonomy.Tables{}, err
	}
	return taxonomy.Tables{Labels: labels, Locations: locs, Organizations: orgs}, nil
}

// LoadLabelMapping reads a {"label": "kind"} document.
func LoadLabelMapping(path string) (map[string]string, error) {
	root, err := readDocument(path, schemaLabels)
	if err != nil {
		return nil, err
	}
	var labels map[string]string
	if err := root.Decode(&labels); err != nil {
		return nil, internalerr.NewConfigLoadError(path, err)
	}
	return labels, nil
}

// LoadSubtypeTable reads a {"subtype": ["name", ...]} document, keeping the
// declared order of subtypes.
func LoadSubtypeTable(path string) ([]taxonomy.Subtype, error) {
	root, err := readDocument(path, schemaSubtypes)
	if err != nil {
		return nil, err
	}
	table := make([]taxonomy.Subtype, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		var names []string
		if err := root.Content[i+1].Decode(&names); err != nil {
			return nil, internalerr.NewConfigLoadError(path, err)
		}
		table = append(table, taxonomy.Subtype{Name: root.Content[i].Value, Names: names})
	}
	return table, nil
}

// Stoplist represents the stopword list configuration
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	root, err := readDocument(path, schemaStoplist)
	if err != nil {
		return nil, err
	}
	var sl Stoplist
	if err := root.Decode(&sl); err != nil {
		return nil, internalerr.NewConfigLoadError(path, err)
	}
	return &sl, nil
}

// LoadLexicon loads the lemma exceptions lexicon.
func LoadLexicon(path string) (*lemma.Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, internalerr.NewConfigLoadError(path, err)
	}
	if _, err := decodeDocument(data, schemaLexicon); err != nil {
		return nil, internalerr.NewConfigLoadError(path, err)
	}
	lex, err := lemma.ParseLexicon(data)
	if err != nil {
		return nil, internalerr.NewConfigLoadError(path, err)
	}
	return lex, nil
}

func readDocument(path, schemaName string) (*yaml.Node, error) {
	if path == "" {
		return nil, internalerr.NewConfigLoadError(path, fmt.Errorf("no path configured"))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, internalerr.NewConfigLoadError(path, err)
	}
	root, err := decodeDocument(data, schemaName)
	if err != nil {
		return nil, internalerr.NewConfigLoadError(path, err)
	}
	return root, nil
}
