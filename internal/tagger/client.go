// Package tagger is the HTTP client of the token-classification model
// server.
package tagger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/cognicore/azner/internal/logger"
	"github.com/cognicore/azner/pkg/azner/internalerr"
	"github.com/cognicore/azner/pkg/azner/span"
)

// Config configures New.
type Config struct {
	URL    string
	APIKey string
	// Timeout bounds each attempt.
	Timeout  time.Duration
	RetryMax int
	// RetryWaitMin and RetryWaitMax bound the backoff; zero keeps the
	// retryablehttp defaults.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	// RuneOffsets is set when the server reports character offsets.
	RuneOffsets bool
}

// Client calls a token-classification endpoint that accepts
// {"inputs": text} and answers with a list of tagged tokens.
type Client struct {
	URL         string
	APIKey      string
	RuneOffsets bool

	HTTPClient *http.Client
}

// New creates a Client whose transport retries connection errors, 429 and
// 5xx answers. Other 4xx answers fail at once.
func New(cfg Config) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}
	if cfg.RetryWaitMin > 0 {
		rc.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		rc.RetryWaitMax = cfg.RetryWaitMax
	}
	rc.Logger = logger.NewLeveledLogrus(logger.GetLogger())
	rc.Backoff = retryablehttp.DefaultBackoff
	rc.CheckRetry = retryablehttp.DefaultRetryPolicy

	return &Client{
		URL:         cfg.URL,
		APIKey:      cfg.APIKey,
		RuneOffsets: cfg.RuneOffsets,
		HTTPClient:  rc.StandardClient(),
	}
}

type request struct {
	Inputs     string            `json:"inputs"`
	Parameters requestParameters `json:"parameters"`
}

type requestParameters struct {
	AggregationStrategy string `json:"aggregation_strategy"`
}

type rawToken struct {
	Entity      string  `json:"entity"`
	EntityGroup string  `json:"entity_group"`
	Score       float64 `json:"score"`
	Word        string  `json:"word"`
	Start       *int    `json:"start"`
	End         *int    `json:"end"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Tag sends text to the model server and returns its tokens with byte
// offsets into text. Every failure is an *internalerr.TaggingError.
func (c *Client) Tag(ctx context.Context, text string) ([]span.Token, error) {
	if c.URL == "" {
		return nil, internalerr.NewTaggingError("no tagger URL configured", nil)
	}
	body, err := c.send(ctx, text)
	if err != nil {
		return nil, err
	}
	raw, err := decodeTokens(body)
	if err != nil {
		return nil, internalerr.NewTaggingError("decode tagger response", err)
	}
	return c.convert(raw, text)
}

func (c *Client) send(ctx context.Context, text string) ([]byte, error) {
	// Per-token output; span.Assembler groups bare and prefixed labels.
	reqBody, err := json.Marshal(request{
		Inputs:     text,
		Parameters: requestParameters{AggregationStrategy: "none"},
	})
	if err != nil {
		return nil, internalerr.NewTaggingError("encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, internalerr.NewTaggingError("build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, internalerr.NewTaggingError("tagger request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, internalerr.NewTaggingError("read tagger response", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e errorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return nil, internalerr.NewTaggingError(fmt.Sprintf("tagger returned %s", resp.Status), fmt.Errorf("%s", e.Error))
		}
		return nil, internalerr.NewTaggingError(fmt.Sprintf("tagger returned %s", resp.Status), nil)
	}
	return body, nil
}

// decodeTokens accepts a flat token list or a batch of one.
func decodeTokens(body []byte) ([]rawToken, error) {
	var flat []rawToken
	if err := json.Unmarshal(body, &flat); err == nil {
		return flat, nil
	}
	var batch [][]rawToken
	if err := json.Unmarshal(body, &batch); err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, nil
	}
	return batch[0], nil
}

func (c *Client) convert(raw []rawToken, text string) ([]span.Token, error) {
	var runeToByte []int
	if c.RuneOffsets {
		runeToByte = runeOffsets(text)
	}

	tokens := make([]span.Token, 0, len(raw))
	for i, r := range raw {
		tag := r.Entity
		if tag == "" {
			tag = r.EntityGroup
		}
		if r.Start == nil || r.End == nil {
			return nil, internalerr.NewTaggingError(fmt.Sprintf("token %d (%q) has no offsets", i, r.Word), nil)
		}
		start, end := *r.Start, *r.End
		if c.RuneOffsets {
			if start < 0 || end < 0 || start >= len(runeToByte) || end >= len(runeToByte) {
				return nil, internalerr.NewTaggingError(fmt.Sprintf("token %d [%d:%d] outside text of %d runes", i, start, end, len(runeToByte)-1), nil)
			}
			start, end = runeToByte[start], runeToByte[end]
		}
		tokens = append(tokens, span.Token{
			Text:  r.Word,
			Tag:   tag,
			Start: start,
			End:   end,
			Score: r.Score,
		})
	}
	return tokens, nil
}

// runeOffsets maps each rune index of text, plus the end, to a byte offset.
func runeOffsets(text string) []int {
	out := make([]int, 0, utf8.RuneCountInString(text)+1)
	for i := range text {
		out = append(out, i)
	}
	return append(out, len(text))
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 30 * time.Second}
}
