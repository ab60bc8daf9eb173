package lemma

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Lexicon lists irregular forms and words that are never inflected.
type Lexicon struct {
	// Exceptions maps a surface form to its lemma.
	Exceptions   map[string]string
	Unchangeable []string
}

type lexiconFile struct {
	Lemmas []struct {
		Lemma string   `yaml:"lemma"`
		Forms []string `yaml:"forms"`
	} `yaml:"lemmas"`
	Unchangeable []string `yaml:"unchangeable"`
}

// LoadLexicon reads a YAML lexicon:
//
//	lemmas:
//	  - lemma: ol
//	    forms: [olunur, olub]
//	unchangeable: [var, yox]
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseLexicon(data)
}

// ParseLexicon decodes a YAML lexicon document.
func ParseLexicon(data []byte) (*Lexicon, error) {
	var file lexiconFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}

	lex := &Lexicon{
		Exceptions:   make(map[string]string),
		Unchangeable: file.Unchangeable,
	}
	for i, entry := range file.Lemmas {
		if entry.Lemma == "" {
			return nil, fmt.Errorf("parse lexicon: entry %d has no lemma", i)
		}
		for _, form := range entry.Forms {
			lex.Exceptions[form] = entry.Lemma
		}
	}
	return lex, nil
}

// DefaultLexicon returns the built-in irregular verbs and particles.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		Exceptions: map[string]string{
			"mənimsənilməsində": "mənimsən",
			"mənimsənilməsi":    "mənimsən",
			"olunur":            "ol",
			"edir":              "et",
			"gedir":             "get",
			"görür":             "gör",
			"deyir":             "de",
			"alır":              "al",
			"verir":             "ver",
			"gəlir":             "gəl",
			"oxuyur":            "oxu",
			"yazır":             "yaz",
			"işləyir":           "işlə",
			"demək":             "de",
			"görmək":            "gör",
			"almaq":             "al",
		},
		Unchangeable: []string{
			"var", "yox", "çox", "az", "bəli", "xeyr",
			"hə", "bəlkə", "olası", "mümkün",
		},
	}
}
