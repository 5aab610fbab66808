package storage

import (
	"context"
	"errors"
	"fmt"

	"edurag/internal/models"

	"github.com/jackc/pgx/v5"
)

type DocumentRepo struct {
	db *DB
}

func NewDocumentRepo(db *DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

const documentColumns = `id::text, context_id, filename, format, size_bytes, uploader_id, status,
       error_message, total_chunks, metadata, blob_key, uploaded_at, processed_at`

func scanDocument(row pgx.Row) (models.Document, error) {
	var d models.Document
	err := row.Scan(&d.ID, &d.ContextID, &d.Filename, &d.Format, &d.SizeBytes, &d.UploaderID, &d.Status,
		&d.ErrorMessage, &d.TotalChunks, &d.Metadata, &d.BlobKey, &d.UploadedAt, &d.ProcessedAt)
	return d, err
}

func (r *DocumentRepo) Create(ctx context.Context, d models.Document) error {
	if d.Status == "" {
		d.Status = models.StatusPending
	}
	if d.Metadata == nil {
		d.Metadata = map[string]any{}
	}
	_, err := r.db.Pool.Exec(ctx, `
INSERT INTO documents (id, context_id, filename, format, size_bytes, uploader_id, status, metadata, blob_key)
VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9)`,
		d.ID, d.ContextID, d.Filename, string(d.Format), d.SizeBytes, d.UploaderID, string(d.Status), d.Metadata, d.BlobKey,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepo) Get(ctx context.Context, id string) (models.Document, error) {
	d, err := scanDocument(r.db.Pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=$1::uuid`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Document{}, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (r *DocumentRepo) ListByContext(ctx context.Context, contextID string) ([]models.Document, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+documentColumns+`
FROM documents
WHERE context_id=$1
ORDER BY uploaded_at DESC`, contextID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]models.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// MarkProcessing moves a document into processing from any state that
// allows it, clearing the previous outcome.
func (r *DocumentRepo) MarkProcessing(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE documents
SET status=$2, error_message=NULL, total_chunks=NULL, processed_at=NULL
WHERE id=$1::uuid AND status = ANY($3)`,
		id, string(models.StatusProcessing), SourcesFor(models.StatusProcessing))
	if err != nil {
		return fmt.Errorf("mark document processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionError(ctx, id, models.StatusProcessing)
	}
	return nil
}

func (r *DocumentRepo) Complete(ctx context.Context, id string, totalChunks int) error {
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE documents
SET status=$2, total_chunks=$3, error_message=NULL, processed_at=NOW()
WHERE id=$1::uuid AND status = ANY($4)`,
		id, string(models.StatusCompleted), totalChunks, SourcesFor(models.StatusCompleted))
	if err != nil {
		return fmt.Errorf("complete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionError(ctx, id, models.StatusCompleted)
	}
	return nil
}

func (r *DocumentRepo) Fail(ctx context.Context, id, message string) error {
	tag, err := r.db.Pool.Exec(ctx, `
UPDATE documents
SET status=$2, error_message=$3, processed_at=NOW()
WHERE id=$1::uuid AND status = ANY($4)`,
		id, string(models.StatusError), message, SourcesFor(models.StatusError))
	if err != nil {
		return fmt.Errorf("fail document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.transitionError(ctx, id, models.StatusError)
	}
	return nil
}

// Delete removes the document and, through the foreign key cascade, its chunks.
func (r *DocumentRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM documents WHERE id=$1::uuid`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *DocumentRepo) Status(ctx context.Context, id string) (models.DocumentStatus, error) {
	var status string
	err := r.db.Pool.QueryRow(ctx, `SELECT status FROM documents WHERE id=$1::uuid`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get document status: %w", err)
	}
	return models.DocumentStatus(status), nil
}

func (r *DocumentRepo) transitionError(ctx context.Context, id string, next models.DocumentStatus) error {
	current, err := r.Status(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("document %s %s -> %s: %w", id, current, next, ErrInvalidTransition)
}

// SourcesFor lists the statuses a document may leave to reach next.
func SourcesFor(next models.DocumentStatus) []string {
	all := []models.DocumentStatus{models.StatusPending, models.StatusProcessing, models.StatusCompleted, models.StatusError}
	out := make([]string, 0, len(all))
	for _, s := range all {
		if s.CanTransition(next) {
			out = append(out, string(s))
		}
	}
	return out
}
