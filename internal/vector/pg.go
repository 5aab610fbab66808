package vector

import (
	"context"
	"fmt"

	"edurag/internal/models"
	"edurag/internal/storage"

	"github.com/jackc/pgx/v5"
)

type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PGSearcher runs pgvector cosine searches.
type PGSearcher struct {
	q Queryer
}

func NewPGSearcher(q Queryer) *PGSearcher {
	return &PGSearcher{q: q}
}

const searchSQL = `
SELECT c.id::text,
       c.document_id::text,
       c.context_id,
       c.seq,
       c.text,
       c.start_offset,
       c.end_offset,
       c.metadata,
       d.filename,
       (c.embedding <=> $2::vector) AS distance
FROM chunks c
JOIN documents d ON d.id = c.document_id
WHERE c.context_id = $1
  AND d.status = 'completed'
  AND (c.embedding <=> $2::vector) <= $4
ORDER BY c.embedding <=> $2::vector
LIMIT $3`

func (s *PGSearcher) Search(ctx context.Context, q SearchQuery) ([]models.RetrievalResult, error) {
	q = q.withDefaults()
	rows, err := s.q.Query(ctx, searchSQL, q.ContextID, ToLiteral(q.Vector), q.TopK, q.MaxDistance())
	if err != nil {
		return nil, fmt.Errorf("query vector search: %w", err)
	}
	defer rows.Close()

	results := make([]models.RetrievalResult, 0, q.TopK)
	for rows.Next() {
		var r models.RetrievalResult
		c := &r.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ContextID, &c.Seq, &c.Text, &c.StartOffset, &c.EndOffset, &c.Metadata, &r.Filename, &r.Distance); err != nil {
			return nil, fmt.Errorf("scan chunk result: %w", err)
		}
		r.Score = 1 - r.Distance
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return results, nil
}

// PGIndex is the Postgres-backed Index.
type PGIndex struct {
	*PGSearcher
	chunks *storage.ChunkRepo
}

func NewPGIndex(db *storage.DB) *PGIndex {
	return &PGIndex{PGSearcher: NewPGSearcher(db.Pool), chunks: storage.NewChunkRepo(db)}
}

func (p *PGIndex) Insert(ctx context.Context, documentID string, chunks []models.Chunk) error {
	return p.chunks.Insert(ctx, toRecords(documentID, chunks))
}

func (p *PGIndex) Replace(ctx context.Context, documentID string, chunks []models.Chunk) error {
	_, err := p.chunks.Replace(ctx, documentID, toRecords(documentID, chunks))
	return err
}

func (p *PGIndex) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	return p.chunks.DeleteByDocument(ctx, documentID)
}

func (p *PGIndex) CountCompleted(ctx context.Context, contextID string) (int, error) {
	return p.chunks.CountCompleted(ctx, contextID)
}

func toRecords(documentID string, chunks []models.Chunk) []storage.ChunkRecord {
	out := make([]storage.ChunkRecord, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, storage.ChunkRecord{
			ID:          c.ID,
			DocumentID:  documentID,
			ContextID:   c.ContextID,
			Seq:         c.Seq,
			Text:        c.Text,
			Embedding:   ToLiteral(c.Embedding),
			StartOffset: c.StartOffset,
			EndOffset:   c.EndOffset,
			Metadata:    c.Metadata,
		})
	}
	return out
}
