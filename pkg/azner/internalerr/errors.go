package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicate        = errors.New("duplicate entry")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrTagging          = errors.New("tagging failed")
)

// ConfigLoadError reports a lookup table or config file that could not be
// read or parsed. It is fatal at construction time.
type ConfigLoadError struct {
	Path string
	Err  error
}

func (e *ConfigLoadError) Error() string {
	return fmt.Sprintf("load config %s: %v", e.Path, e.Err)
}

// Unwrap exposes both ErrInvalidConfig and the underlying cause.
func (e *ConfigLoadError) Unwrap() []error {
	return nonNil(ErrInvalidConfig, e.Err)
}

// NewConfigLoadError wraps err for the file at path.
func NewConfigLoadError(path string, err error) *ConfigLoadError {
	return &ConfigLoadError{Path: path, Err: err}
}

// TaggingError reports a failed tagger call or a malformed token stream.
// The caller may retry or skip the document.
type TaggingError struct {
	Reason string
	Err    error
}

func (e *TaggingError) Error() string {
	if e.Err == nil {
		return "tagging: " + e.Reason
	}
	return fmt.Sprintf("tagging: %s: %v", e.Reason, e.Err)
}

// Unwrap exposes both ErrTagging and the underlying cause.
func (e *TaggingError) Unwrap() []error {
	return nonNil(ErrTagging, e.Err)
}

// NewTaggingError builds a TaggingError; err may be nil.
func NewTaggingError(reason string, err error) *TaggingError {
	return &TaggingError{Reason: reason, Err: err}
}

func nonNil(errs ...error) []error {
	out := errs[:0:0]
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
