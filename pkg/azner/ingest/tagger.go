package ingest

import (
	"context"

	"github.com/cognicore/azner/pkg/azner/span"
)

// Tagger is the token-classification model boundary. Tag returns one token
// per model output unit with byte offsets into text.
type Tagger interface {
	Tag(ctx context.Context, text string) ([]span.Token, error)
}

// TaggerFunc adapts an ordinary function to Tagger.
type TaggerFunc func(ctx context.Context, text string) ([]span.Token, error)

// Tag calls f(ctx, text).
func (f TaggerFunc) Tag(ctx context.Context, text string) ([]span.Token, error) {
	return f(ctx, text)
}
