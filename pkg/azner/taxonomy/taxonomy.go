// Package taxonomy resolves model labels to entity kinds and entity names to
// fine-grained subtypes.
package taxonomy

import (
	"strings"

	"github.com/cognicore/azner/internal/azcase"
	"github.com/cognicore/azner/pkg/azner/span"
)

// Canonical entity kinds.
const (
	KindPerson       = "PER"
	KindLocation     = "LOC"
	KindOrganization = "ORG"
	// KindPosition is a job title ("Prezident", "nazir") that the normalizer
	// attaches to the nearest person instead of emitting it.
	KindPosition = "POSITION"
)

var kindAliases = map[string]string{
	"PER":          KindPerson,
	"PERSON":       KindPerson,
	"LOC":          KindLocation,
	"LOCATION":     KindLocation,
	"GPE":          KindLocation,
	"ORG":          KindOrganization,
	"ORGANISATION": KindOrganization,
	"ORGANIZATION": KindOrganization,
	"POSITION":     KindPosition,
}

// CanonicalKind folds the kind names used by different models onto PER,
// LOC, ORG and POSITION. Other kinds are returned upper-cased.
func CanonicalKind(kind string) string {
	k := strings.ToUpper(strings.TrimSpace(kind))
	if canonical, ok := kindAliases[k]; ok {
		return canonical
	}
	return k
}

// Subtype is one entry of a subtype table: a name such as "city" and the
// entity names that belong to it.
type Subtype struct {
	Name  string
	Names []string
}

// Tables are the raw lookup tables.
type Tables struct {
	// Labels maps a model label ("PER", "LABEL_3" or "3") to a kind.
	Labels        map[string]string
	Locations     []Subtype
	Organizations []Subtype
}

// Resolver answers kind and subtype queries. It is immutable after
// construction and safe for concurrent use.
type Resolver struct {
	labels   map[string]string
	subtypes map[string]map[string]string // kind → normalized name → subtype
	known    []string
}

// NewResolver indexes t. When a name appears under several subtypes the
// first declared one wins.
func NewResolver(t Tables) *Resolver {
	r := &Resolver{
		labels:   make(map[string]string, len(t.Labels)),
		subtypes: make(map[string]map[string]string, 2),
	}
	for label, kind := range t.Labels {
		r.labels[strings.TrimSpace(label)] = CanonicalKind(kind)
	}
	r.addTable(KindLocation, t.Locations)
	r.addTable(KindOrganization, t.Organizations)
	return r
}

func (r *Resolver) addTable(kind string, table []Subtype) {
	index := make(map[string]string)
	for _, st := range table {
		for _, name := range st.Names {
			key := normalizeKey(name)
			if key == "" {
				continue
			}
			if _, seen := index[key]; seen {
				continue
			}
			index[key] = st.Name
			r.known = append(r.known, name)
		}
	}
	r.subtypes[kind] = index
}

// ResolveKind maps a raw tag to its kind. The scheme prefix is stripped and
// the label looked up; labels such as "LABEL_3" fall back to the part after
// the last underscore. ok is false for unparseable tags, unmapped labels and
// labels mapped to the outside kind.
func (r *Resolver) ResolveKind(tag string) (string, bool) {
	prefix, label, err := span.ParseTag(tag)
	if err != nil || prefix == span.PrefixOutside {
		return "", false
	}
	kind, ok := r.labels[label]
	if !ok {
		if i := strings.LastIndexByte(label, '_'); i >= 0 && i < len(label)-1 {
			kind, ok = r.labels[label[i+1:]]
		}
	}
	if !ok || kind == span.Outside || kind == "" {
		return "", false
	}
	return kind, true
}

// ResolveSubtype looks key up in the subtype table for kind, ignoring case
// and inner whitespace. A miss is not an error.
func (r *Resolver) ResolveSubtype(kind, key string) (string, bool) {
	index, ok := r.subtypes[kind]
	if !ok {
		return "", false
	}
	st, ok := index[normalizeKey(key)]
	return st, ok
}

// KnownNames returns every name listed in the subtype tables, in table order.
func (r *Resolver) KnownNames() []string {
	out := make([]string, len(r.known))
	copy(out, r.known)
	return out
}

func normalizeKey(s string) string {
	return strings.Join(strings.Fields(azcase.ToLower(s)), " ")
}
