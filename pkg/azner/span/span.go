// Package span groups a tagged token stream into contiguous entity spans.
package span

// Token is one tagged unit of model output. Start and End are byte offsets
// into the source text.
type Token struct {
	Text  string  `json:"text"`
	Tag   string  `json:"tag"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Score float64 `json:"score"`
}

// Span is a run of tokens forming one entity mention. Start is the smallest
// token start and End the largest token end.
type Span struct {
	Kind      string  `json:"kind"`
	Tokens    []Token `json:"tokens"`
	Start     int     `json:"start"`
	End       int     `json:"end"`
	MeanScore float64 `json:"mean_score"`
}

// KindResolver maps a raw tag to an entity kind. ok is false for tags that
// map to nothing or to the outside kind.
type KindResolver interface {
	ResolveKind(tag string) (kind string, ok bool)
}

// Options tune the assembler.
type Options struct {
	// ConfidenceFloor drops spans whose mean score is below it; 0 disables.
	ConfidenceFloor float64
}

// Assembler turns token streams into spans. It holds no per-call state and
// is safe for concurrent use.
type Assembler struct {
	kinds KindResolver
	floor float64
}

// NewAssembler builds an Assembler. With a nil resolver the tag label itself
// is used as the kind.
func NewAssembler(kinds KindResolver, opts Options) *Assembler {
	return &Assembler{kinds: kinds, floor: opts.ConfidenceFloor}
}

type state int

const (
	stateIdle state = iota
	stateOpen
)

// Assemble groups tokens into spans. Malformed sequences never fail: an
// orphan continuation opens a new span and unparseable or unmapped tags act
// as outside.
func (a *Assembler) Assemble(tokens []Token) []Span {
	var (
		spans []Span
		cur   Span
		st    = stateIdle
	)

	emit := func() {
		if st == stateOpen {
			if sp, ok := a.finish(cur); ok {
				spans = append(spans, sp)
			}
		}
		st = stateIdle
		cur = Span{}
	}

	for _, tok := range tokens {
		prefix, label, err := ParseTag(tok.Tag)
		if err != nil || prefix == PrefixOutside {
			emit()
			continue
		}
		kind, ok := a.resolve(tok.Tag, label)
		if !ok {
			emit()
			continue
		}

		switch st {
		case stateIdle:
			cur = open(kind, tok)
			st = stateOpen
		case stateOpen:
			switch {
			case kind != cur.Kind:
				emit()
				cur = open(kind, tok)
				st = stateOpen
			case !prefix.opens():
				extend(&cur, tok)
			case tok.Start <= cur.End:
				// Subword piece of the same word.
				extend(&cur, tok)
			default:
				emit()
				cur = open(kind, tok)
				st = stateOpen
			}
		}

		if prefix.closes() {
			emit()
		}
	}
	emit()

	return spans
}

func (a *Assembler) resolve(tag, label string) (string, bool) {
	if a.kinds == nil {
		return label, true
	}
	return a.kinds.ResolveKind(tag)
}

func (a *Assembler) finish(sp Span) (Span, bool) {
	if len(sp.Tokens) == 0 {
		return Span{}, false
	}
	var sum float64
	for _, t := range sp.Tokens {
		sum += t.Score
	}
	sp.MeanScore = sum / float64(len(sp.Tokens))
	if a.floor > 0 && sp.MeanScore < a.floor {
		return Span{}, false
	}
	return sp, true
}

func open(kind string, tok Token) Span {
	return Span{
		Kind:   kind,
		Tokens: []Token{tok},
		Start:  tok.Start,
		End:    tok.End,
	}
}

func extend(sp *Span, tok Token) {
	sp.Tokens = append(sp.Tokens, tok)
	if tok.Start < sp.Start {
		sp.Start = tok.Start
	}
	if tok.End > sp.End {
		sp.End = tok.End
	}
}
