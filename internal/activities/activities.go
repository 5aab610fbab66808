package activities

import (
	"context"
	"fmt"
	"unicode/utf8"

	"edurag/internal/blob"
	"edurag/internal/config"
	"edurag/internal/extract"
	"edurag/internal/metrics"
	"edurag/internal/models"
	"edurag/internal/textproc"
	"edurag/internal/util"
	"edurag/internal/vector"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"
)

const (
	ErrTypeExtraction = "ExtractionError"
	ErrTypeEmbedding  = "EmbeddingError"
	ErrTypeNoChunks   = "NoChunksError"
)

// chunkNamespace derives stable chunk ids from document id and sequence.
var chunkNamespace = uuid.MustParse("6f1c2a52-3d0e-4c39-9a47-0b8f5e7d2c11")

type DocumentStore interface {
	Get(ctx context.Context, id string) (models.Document, error)
	MarkProcessing(ctx context.Context, id string) error
	Complete(ctx context.Context, id string, totalChunks int) error
	Fail(ctx context.Context, id, message string) error
}

type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error)
}

type Deps struct {
	Documents DocumentStore
	Index     vector.Index
	Blobs     blob.Store
	Embedder  BatchEmbedder
	Logger    *zap.Logger
}

type Activities struct {
	cfg      config.Config
	docs     DocumentStore
	index    vector.Index
	blobs    blob.Store
	embedder BatchEmbedder
	logger   *zap.Logger
}

func New(cfg config.Config, deps Deps) *Activities {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Activities{
		cfg:      cfg,
		docs:     deps.Documents,
		index:    deps.Index,
		blobs:    deps.Blobs,
		embedder: deps.Embedder,
		logger:   logger,
	}
}

func (a *Activities) MarkProcessingActivity(ctx context.Context, in DocumentInput) error {
	if err := a.docs.MarkProcessing(ctx, in.DocumentID); err != nil {
		return err
	}
	a.logger.Info("document processing started", zap.String("document_id", in.DocumentID))
	return nil
}

// ExtractTextActivity reads the uploaded bytes and returns normalized text.
// Extraction failures are not retried.
func (a *Activities) ExtractTextActivity(ctx context.Context, in DocumentInput) (ExtractTextOutput, error) {
	doc, err := a.docs.Get(ctx, in.DocumentID)
	if err != nil {
		return ExtractTextOutput{}, err
	}
	data, err := a.blobs.Get(ctx, doc.BlobKey)
	if err != nil {
		return ExtractTextOutput{}, err
	}
	raw, err := extract.Extract(data, doc.Format)
	if err != nil {
		return ExtractTextOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeExtraction, nil)
	}
	text := textproc.Preprocess(raw)
	if text == "" {
		err := &util.ExtractionError{Format: string(doc.Format), Err: util.ErrNoExtractableText}
		return ExtractTextOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeExtraction, nil)
	}
	n := utf8.RuneCountInString(text)
	a.logger.Info("document text extracted",
		zap.String("document_id", doc.ID),
		zap.String("format", string(doc.Format)),
		zap.Int("raw_chars", utf8.RuneCountInString(raw)),
		zap.Int("chars", n),
	)
	return ExtractTextOutput{Text: text, Characters: n}, nil
}

func (a *Activities) ChunkTextActivity(ctx context.Context, in ChunkTextInput) (ChunkTextOutput, error) {
	_ = ctx
	if in.ChunkSize <= 0 {
		in.ChunkSize = a.cfg.ChunkSize
	}
	if in.ChunkOverlap <= 0 || in.ChunkOverlap >= in.ChunkSize {
		in.ChunkOverlap = a.cfg.ChunkOverlap
	}
	drafts := textproc.NewChunker(in.ChunkSize, in.ChunkOverlap).Chunk(in.Text)
	if len(drafts) == 0 {
		return ChunkTextOutput{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("no chunks of at least %d characters produced", textproc.MinChunkLength), ErrTypeNoChunks, nil)
	}
	chunks := make([]models.Chunk, 0, len(drafts))
	for _, d := range drafts {
		chunks = append(chunks, models.Chunk{
			ID:          ChunkID(in.DocumentID, d.Seq),
			DocumentID:  in.DocumentID,
			ContextID:   in.ContextID,
			Text:        util.SanitizeText(d.Text),
			Seq:         d.Seq,
			StartOffset: d.Start,
			EndOffset:   d.End,
			Metadata:    d.Metadata,
		})
	}
	return ChunkTextOutput{Chunks: chunks}, nil
}

// EmbedChunksActivity embeds every chunk or fails as a whole. The generator
// already retries transient provider errors, so the activity is not retried.
func (a *Activities) EmbedChunksActivity(ctx context.Context, in EmbedChunksInput) (EmbedChunksOutput, error) {
	texts := make([]string, 0, len(in.Chunks))
	for _, c := range in.Chunks {
		texts = append(texts, c.Text)
	}
	vectors, err := a.embedder.EmbedBatch(ctx, texts, a.cfg.EmbedBatchSize)
	if err != nil {
		return EmbedChunksOutput{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeEmbedding, nil)
	}
	out := make([]models.Chunk, len(in.Chunks))
	copy(out, in.Chunks)
	for i := range out {
		out[i].Embedding = vectors[i]
	}
	a.logger.Info("document chunks embedded",
		zap.String("document_id", in.DocumentID),
		zap.Int("chunks", len(out)),
	)
	return EmbedChunksOutput{Chunks: out}, nil
}

// ReplaceChunksActivity swaps the stored chunk set of a document, so running
// the pipeline twice leaves one copy.
func (a *Activities) ReplaceChunksActivity(ctx context.Context, in ReplaceChunksInput) (ReplaceChunksOutput, error) {
	if err := a.index.Replace(ctx, in.DocumentID, in.Chunks); err != nil {
		return ReplaceChunksOutput{}, fmt.Errorf("replace chunks of document %s: %w", in.DocumentID, err)
	}
	metrics.ChunksWritten.Add(float64(len(in.Chunks)))
	return ReplaceChunksOutput{Written: len(in.Chunks)}, nil
}

func (a *Activities) CompleteDocumentActivity(ctx context.Context, in CompleteDocumentInput) error {
	if err := a.docs.Complete(ctx, in.DocumentID, in.TotalChunks); err != nil {
		return err
	}
	metrics.DocumentsProcessed.WithLabelValues(metrics.OutcomeCompleted).Inc()
	a.logger.Info("document processing completed",
		zap.String("document_id", in.DocumentID),
		zap.Int("total_chunks", in.TotalChunks),
	)
	return nil
}

// FailDocumentActivity is the single completion handler for failed runs.
func (a *Activities) FailDocumentActivity(ctx context.Context, in FailDocumentInput) error {
	if err := a.docs.Fail(ctx, in.DocumentID, in.Message); err != nil {
		return err
	}
	metrics.DocumentsProcessed.WithLabelValues(metrics.OutcomeError).Inc()
	a.logger.Warn("document processing failed",
		zap.String("document_id", in.DocumentID),
		zap.String("step", in.Step),
		zap.String("error", in.Message),
	)
	return nil
}

func ChunkID(documentID string, seq int) string {
	return uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s:%d", documentID, seq))).String()
}
