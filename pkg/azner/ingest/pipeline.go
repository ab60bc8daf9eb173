// Package ingest runs raw article text through tagging, span assembly and
// entity normalization.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/azner/pkg/azner/internalerr"
	"github.com/cognicore/azner/pkg/azner/lemma"
	"github.com/cognicore/azner/pkg/azner/normalize"
	"github.com/cognicore/azner/pkg/azner/span"
	"github.com/cognicore/azner/pkg/azner/stoplist"
)

// Resolver answers both kind and subtype queries; *taxonomy.Resolver
// satisfies it.
type Resolver interface {
	span.KindResolver
	normalize.SubtypeResolver
}

// DefaultLegalFormSuffixes mark an organization as a company.
var DefaultLegalFormSuffixes = []string{"mmc", "asc", "mq", "ik"}

// Options tune a Pipeline. A nil Stoplist takes the built-in one and nil
// LegalFormSuffixes take DefaultLegalFormSuffixes; an empty non-nil slice
// disables the legal-form check.
type Options struct {
	ConfidenceFloor    float64
	CaseSensitiveDedup bool
	FilterProperNames  bool
	MergePartialNames  bool
	LegalFormSuffixes  []string
	Stoplist           *stoplist.List
}

// Result is the outcome of one extraction.
type Result struct {
	Entities []normalize.Entity `json:"entities"`
	// Remaining is the text with every accepted span cut out.
	Remaining string `json:"remaining"`
	// Tokens are the keyword tokens of Remaining.
	Tokens []string `json:"tokens"`
}

// Pipeline orchestrates one extraction:
// text → tagger → span assembly → normalization → residual text
type Pipeline struct {
	tagger     Tagger
	assembler  *span.Assembler
	normalizer *normalize.Normalizer
	tokenizer  *Tokenizer
}

// NewPipeline wires a pipeline. It is safe for concurrent use when tagger is.
func NewPipeline(tagger Tagger, resolver Resolver, lem lemma.Lemmatizer, opts Options) (*Pipeline, error) {
	if tagger == nil || resolver == nil || lem == nil {
		return nil, fmt.Errorf("new pipeline: tagger, resolver and lemmatizer are required: %w", internalerr.ErrInvalidInput)
	}
	if opts.LegalFormSuffixes == nil {
		opts.LegalFormSuffixes = DefaultLegalFormSuffixes
	}
	if opts.Stoplist == nil {
		opts.Stoplist = stoplist.Default()
	}

	return &Pipeline{
		tagger:    tagger,
		assembler: span.NewAssembler(resolver, span.Options{ConfidenceFloor: opts.ConfidenceFloor}),
		normalizer: normalize.New(lem, resolver, normalize.Options{
			CaseSensitiveDedup: opts.CaseSensitiveDedup,
			FilterProperNames:  opts.FilterProperNames,
			Stoplist:           opts.Stoplist,
			LegalFormSuffixes:  opts.LegalFormSuffixes,
			MergePartialNames:  opts.MergePartialNames,
		}),
		tokenizer: NewTokenizer(opts.Stoplist, lem),
	}, nil
}

// ExtractFromText tags text once and returns its deduplicated entities.
// Blank input yields an empty result without calling the tagger. Tagger
// failures and malformed token streams are *internalerr.TaggingError.
func (p *Pipeline) ExtractFromText(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{Entities: []normalize.Entity{}}, nil
	}

	tokens, err := p.tagger.Tag(ctx, text)
	if err != nil {
		var te *internalerr.TaggingError
		if errors.As(err, &te) {
			return Result{}, err
		}
		return Result{}, internalerr.NewTaggingError("tagger call failed", err)
	}
	if err := ValidateTokens(tokens, len(text)); err != nil {
		return Result{}, err
	}

	spans := p.assembler.Assemble(tokens)
	entities, mentions := p.normalizer.NormalizeMentions(spans, text)
	remaining := Residual(text, mentions)

	return Result{
		Entities:  entities,
		Remaining: remaining,
		Tokens:    p.tokenizer.Tokenize(remaining),
	}, nil
}

// ValidateTokens checks a token stream against a source of textLen bytes.
func ValidateTokens(tokens []span.Token, textLen int) error {
	prev := 0
	for i, t := range tokens {
		if _, _, err := span.ParseTag(t.Tag); err != nil {
			return internalerr.NewTaggingError(fmt.Sprintf("token %d", i), err)
		}
		var reason string
		switch {
		case t.Start < 0 || t.End < 0:
			reason = "negative offset"
		case t.Start > t.End:
			reason = "start after end"
		case t.End > textLen:
			reason = "end beyond text"
		case t.Start < prev:
			reason = "offsets go backwards"
		}
		if reason != "" {
			return internalerr.NewTaggingError(fmt.Sprintf("token %d [%d:%d]: %s", i, t.Start, t.End, reason), nil)
		}
		prev = t.Start
	}
	return nil
}

// Residual removes the mention ranges from text and collapses whitespace.
func Residual(text string, mentions []normalize.Mention) string {
	if len(mentions) == 0 {
		return strings.Join(strings.Fields(text), " ")
	}
	ranges := make([]normalize.Mention, len(mentions))
	copy(ranges, mentions)
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Start < ranges[j].Start })

	var b strings.Builder
	pos := 0
	for _, m := range ranges {
		if m.End <= pos {
			continue
		}
		if m.Start > pos {
			b.WriteString(text[pos:m.Start])
		}
		b.WriteByte(' ')
		pos = m.End
	}
	b.WriteString(text[pos:])
	return strings.Join(strings.Fields(b.String()), " ")
}
