package storage

import (
	"context"
	"fmt"

	"edurag/internal/models"

	"github.com/jackc/pgx/v5"
)

// ChunkRecord is a chunk row ready for insertion. Embedding is a pgvector
// text literal such as "[0.1,0.2]".
type ChunkRecord struct {
	ID          string
	DocumentID  string
	ContextID   string
	Seq         int
	Text        string
	Embedding   string
	StartOffset int
	EndOffset   int
	Metadata    models.ChunkMetadata
}

type ChunkRepo struct {
	db *DB
}

func NewChunkRepo(db *DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

func (r *ChunkRepo) Insert(ctx context.Context, chunks []ChunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		return insertChunks(ctx, tx, chunks)
	})
}

// Replace deletes every chunk of documentID and inserts chunks in the same
// transaction, so re-processing never leaves a mix of old and new rows.
func (r *ChunkRepo) Replace(ctx context.Context, documentID string, chunks []ChunkRecord) (int64, error) {
	var deleted int64
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM chunks WHERE document_id=$1::uuid`, documentID)
		if err != nil {
			return fmt.Errorf("delete previous chunks: %w", err)
		}
		deleted = tag.RowsAffected()
		return insertChunks(ctx, tx, chunks)
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func insertChunks(ctx context.Context, tx pgx.Tx, chunks []ChunkRecord) error {
	batch := &pgx.Batch{}
	for _, c := range chunks {
		batch.Queue(`
INSERT INTO chunks (id, document_id, context_id, seq, text, embedding, start_offset, end_offset, metadata)
VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6::vector, $7, $8, $9)`,
			c.ID, c.DocumentID, c.ContextID, c.Seq, c.Text, c.Embedding, c.StartOffset, c.EndOffset, c.Metadata,
		)
	}
	br := tx.SendBatch(ctx, batch)
	for _, c := range chunks {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert chunk %d of document %s: %w", c.Seq, c.DocumentID, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close chunk batch: %w", err)
	}
	return nil
}

func (r *ChunkRepo) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM chunks WHERE document_id=$1::uuid`, documentID)
	if err != nil {
		return 0, fmt.Errorf("delete chunks by document: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountCompleted counts searchable chunks: those of completed documents in contextID.
func (r *ChunkRepo) CountCompleted(ctx context.Context, contextID string) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM chunks c
JOIN documents d ON d.id = c.document_id
WHERE c.context_id=$1 AND d.status=$2`, contextID, string(models.StatusCompleted)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count completed chunks: %w", err)
	}
	return n, nil
}

func (r *ChunkRepo) ListByDocument(ctx context.Context, documentID string) ([]models.Chunk, error) {
	rows, err := r.db.Pool.Query(ctx, `
SELECT id::text, document_id::text, context_id, seq, text, start_offset, end_offset, metadata
FROM chunks
WHERE document_id=$1::uuid
ORDER BY seq ASC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list chunks by document: %w", err)
	}
	defer rows.Close()
	out := make([]models.Chunk, 0, 64)
	for rows.Next() {
		var c models.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.ContextID, &c.Seq, &c.Text, &c.StartOffset, &c.EndOffset, &c.Metadata); err != nil {
			return nil, fmt.Errorf("scan chunk by document: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk by document: %w", err)
	}
	return out, nil
}
