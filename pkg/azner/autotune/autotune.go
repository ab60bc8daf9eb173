// Package autotune mines processed articles for locations and organizations
// that the subtype tables do not cover yet.
package autotune

import (
	"context"
	"errors"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/azner/pkg/azner/store"
	"github.com/cognicore/azner/pkg/azner/taxonomy"
)

// Suggestion is a candidate entry for a subtype table.
type Suggestion struct {
	Kind        string  `yaml:"-"`
	Name        string  `yaml:"name"`
	Lemma       string  `yaml:"lemma"`
	Articles    int     `yaml:"articles"`
	Occurrences int     `yaml:"occurrences"`
	MeanScore   float64 `yaml:"mean_score"`
}

// StatsProvider supplies aggregated entity stats. store.Store satisfies it.
type StatsProvider interface {
	EntityStats(ctx context.Context) ([]store.EntityStat, error)
}

// Reviewer optionally approves suggestions.
type Reviewer interface {
	Approve(ctx context.Context, s Suggestion) (bool, error)
}

// Thresholds control how often and how confidently an entity must have
// been seen.
type Thresholds struct {
	MinArticles int
	MinScore    float64
}

// DefaultThresholds are used for zero fields.
var DefaultThresholds = Thresholds{MinArticles: 3, MinScore: 0.6}

// Tuner suggests new subtype table entries.
type Tuner struct {
	Provider   StatsProvider
	Thresholds Thresholds
	Reviewer   Reviewer
}

// Run returns suggestions ordered by kind, then by article count
// descending, then by lemma.
func (t *Tuner) Run(ctx context.Context) ([]Suggestion, error) {
	if t.Provider == nil {
		return nil, errors.New("autotune: nil stats provider")
	}
	stats, err := t.Provider.EntityStats(ctx)
	if err != nil {
		return nil, err
	}
	th := t.thresholdsOrDefault()

	var suggestions []Suggestion
	for _, st := range stats {
		if st.Kind != taxonomy.KindLocation && st.Kind != taxonomy.KindOrganization {
			continue
		}
		if st.Subtype != "" || st.Articles < th.MinArticles || st.MeanScore < th.MinScore {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Kind:        st.Kind,
			Name:        st.Surface,
			Lemma:       st.Lemma,
			Articles:    st.Articles,
			Occurrences: st.Occurrences,
			MeanScore:   st.MeanScore,
		})
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		if a.Articles != b.Articles {
			return a.Articles > b.Articles
		}
		return a.Lemma < b.Lemma
	})

	if t.Reviewer == nil {
		return suggestions, nil
	}

	var approved []Suggestion
	for _, s := range suggestions {
		ok, err := t.Reviewer.Approve(ctx, s)
		if err != nil {
			return nil, err
		}
		if ok {
			approved = append(approved, s)
		}
	}
	return approved, nil
}

func (t *Tuner) thresholdsOrDefault() Thresholds {
	th := t.Thresholds
	if th.MinArticles == 0 {
		th.MinArticles = DefaultThresholds.MinArticles
	}
	if th.MinScore == 0 {
		th.MinScore = DefaultThresholds.MinScore
	}
	return th
}

// SubtypeResolver is satisfied by *taxonomy.Resolver.
type SubtypeResolver interface {
	ResolveSubtype(kind, key string) (string, bool)
}

// TableReviewer rejects suggestions the current tables already resolve, for
// articles processed before the tables were extended.
type TableReviewer struct {
	Resolver SubtypeResolver
}

// Approve implements Reviewer.
func (r TableReviewer) Approve(_ context.Context, s Suggestion) (bool, error) {
	if r.Resolver == nil {
		return true, nil
	}
	for _, key := range []string{s.Lemma, s.Name} {
		if _, ok := r.Resolver.ResolveSubtype(s.Kind, key); ok {
			return false, nil
		}
	}
	return true, nil
}

// WriteYAML writes suggestions grouped by kind.
func WriteYAML(w io.Writer, suggestions []Suggestion) error {
	grouped := make(map[string][]Suggestion)
	for _, s := range suggestions {
		grouped[s.Kind] = append(grouped[s.Kind], s)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(map[string]any{"suggestions": grouped}); err != nil {
		return err
	}
	return enc.Close()
}
