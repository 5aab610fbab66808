package util

import (
	"errors"
	"fmt"
)

var (
	ErrNoExtractableText = errors.New("no extractable text found in document")
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrEmptyInput        = errors.New("empty document input")

	ErrQuotaExhausted    = errors.New("provider quota exhausted")
	ErrRateLimited       = errors.New("provider rate limited")
	ErrTransient         = errors.New("transient provider error")
	ErrPermanent         = errors.New("permanent provider error")
	ErrMalformedResponse = errors.New("malformed embedding response")
)

// ExtractionError is fatal to the document being processed.
type ExtractionError struct {
	Format string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("extract text: %v", e.Err)
	}
	return fmt.Sprintf("extract %s text: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingError reports an embedding service failure. Batch is the
// zero-based group index for batched calls, -1 for single calls.
type EmbeddingError struct {
	Batch int
	Err   error
}

func (e *EmbeddingError) Error() string {
	if e.Batch < 0 {
		return fmt.Sprintf("embedding failed: %v", e.Err)
	}
	return fmt.Sprintf("embedding batch %d failed: %v", e.Batch, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// RetrievalError is a soft failure: callers degrade to answering without context.
type RetrievalError struct {
	Op  string
	Err error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval %s: %v", e.Op, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

func IsExtractionError(err error) bool {
	var target *ExtractionError
	return errors.As(err, &target)
}

func IsEmbeddingError(err error) bool {
	var target *EmbeddingError
	return errors.As(err, &target)
}
