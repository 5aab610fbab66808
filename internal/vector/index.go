// Package vector stores chunk embeddings and answers cosine similarity
// queries scoped to one context.
package vector

import (
	"context"
	"strconv"
	"strings"

	"edurag/internal/models"
)

const (
	DefaultTopK          = 5
	DefaultMinSimilarity = 0.6
	// MinSimilarityFloor is the most permissive threshold callers may use.
	MinSimilarityFloor = 0.4
)

type SearchQuery struct {
	ContextID     string
	Vector        []float32
	TopK          int
	MinSimilarity float64
}

func (q SearchQuery) withDefaults() SearchQuery {
	if q.TopK <= 0 {
		q.TopK = DefaultTopK
	}
	if q.MinSimilarity <= 0 {
		q.MinSimilarity = DefaultMinSimilarity
	}
	return q
}

// MaxDistance is the largest cosine distance that clears the threshold.
func (q SearchQuery) MaxDistance() float64 {
	return 1 - q.withDefaults().MinSimilarity
}

// Index is the chunk vector store. Writes are append-only: re-processing a
// document deletes its chunks and inserts the new set. Search only sees
// chunks of completed documents in the queried context, ordered by
// ascending cosine distance.
type Index interface {
	Insert(ctx context.Context, documentID string, chunks []models.Chunk) error
	Replace(ctx context.Context, documentID string, chunks []models.Chunk) error
	DeleteByDocument(ctx context.Context, documentID string) (int64, error)
	Search(ctx context.Context, q SearchQuery) ([]models.RetrievalResult, error)
	CountCompleted(ctx context.Context, contextID string) (int, error)
}

func ToLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v) * 10)
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
