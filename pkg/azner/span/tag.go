package span

import (
	"fmt"
	"strings"
)

// Prefix is the position marker of a tag in the BIO, BIOES or BILOU schemes.
type Prefix byte

const (
	// PrefixNone marks a bare label such as "PER" or "LABEL_3", as emitted
	// by IO-tagged models. It continues an open span of the same kind and
	// opens one otherwise, like an inside tag.
	PrefixNone    Prefix = 0
	PrefixOutside Prefix = 'O'
	PrefixBegin   Prefix = 'B'
	PrefixInside  Prefix = 'I'
	PrefixEnd     Prefix = 'E'
	PrefixSingle  Prefix = 'S'
)

// Outside is the tag of tokens that belong to no entity.
const Outside = "O"

// opens reports whether the prefix starts a new mention.
func (p Prefix) opens() bool {
	return p == PrefixBegin || p == PrefixSingle
}

// closes reports whether the span ends after this token.
func (p Prefix) closes() bool {
	return p == PrefixEnd || p == PrefixSingle
}

// ParseTag splits tag into its scheme prefix and label. BILOU's L and U are
// folded onto E and S. An empty tag, an unknown prefix letter or a prefix
// without a label is an error.
func ParseTag(tag string) (Prefix, string, error) {
	tag = strings.TrimSpace(tag)
	switch {
	case tag == "":
		return 0, "", fmt.Errorf("empty tag")
	case tag == Outside:
		return PrefixOutside, "", nil
	case len(tag) >= 2 && tag[1] == '-':
		label := tag[2:]
		if label == "" {
			return 0, "", fmt.Errorf("tag %q has no label", tag)
		}
		switch tag[0] {
		case 'B':
			return PrefixBegin, label, nil
		case 'I':
			return PrefixInside, label, nil
		case 'E', 'L':
			return PrefixEnd, label, nil
		case 'S', 'U':
			return PrefixSingle, label, nil
		default:
			return 0, "", fmt.Errorf("tag %q has unknown prefix %q", tag, tag[:1])
		}
	default:
		return PrefixNone, tag, nil
	}
}
