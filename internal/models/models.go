package models

import "time"

type DocumentFormat string

const (
	FormatPDF  DocumentFormat = "pdf"
	FormatDOCX DocumentFormat = "docx"
)

func (f DocumentFormat) Supported() bool {
	return f == FormatPDF || f == FormatDOCX
}

type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusError      DocumentStatus = "error"
)

// CanTransition reports whether a document may move from s to next.
// Terminal states re-enter processing only through an explicit reprocess.
func (s DocumentStatus) CanTransition(next DocumentStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusError
	case StatusCompleted, StatusError:
		return next == StatusProcessing
	}
	return false
}

type Document struct {
	ID           string         `json:"id"`
	ContextID    string         `json:"context_id"`
	Filename     string         `json:"filename"`
	Format       DocumentFormat `json:"format"`
	SizeBytes    int64          `json:"size_bytes"`
	UploaderID   string         `json:"uploader_id"`
	Status       DocumentStatus `json:"status"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	TotalChunks  *int           `json:"total_chunks,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	BlobKey      string         `json:"blob_key"`
	UploadedAt   time.Time      `json:"uploaded_at"`
	ProcessedAt  *time.Time     `json:"processed_at,omitempty"`
}

// ChunkMetadata is the enrichment record stored next to every chunk.
type ChunkMetadata struct {
	Length        int     `json:"length"`
	WordCount     int     `json:"word_count"`
	SentenceCount int     `json:"sentence_count"`
	Density       float64 `json:"density"`
	HasNumbers    bool    `json:"has_numbers"`
	HasFormulas   bool    `json:"has_formulas"`
	IsList        bool    `json:"is_list"`
	PrevExcerpt   string  `json:"prev_excerpt,omitempty"`
}

type Chunk struct {
	ID          string        `json:"id"`
	DocumentID  string        `json:"document_id"`
	ContextID   string        `json:"context_id"`
	Text        string        `json:"text"`
	Embedding   []float32     `json:"embedding,omitempty"`
	Seq         int           `json:"seq"`
	StartOffset int           `json:"start_offset"`
	EndOffset   int           `json:"end_offset"`
	Metadata    ChunkMetadata `json:"metadata"`
}

// RetrievalResult is a chunk surfaced by a similarity search. Score is
// similarity in [0,1]; Distance is the cosine distance it was derived from.
type RetrievalResult struct {
	Chunk    Chunk   `json:"chunk"`
	Filename string  `json:"filename,omitempty"`
	Score    float64 `json:"score"`
	Distance float64 `json:"distance"`
	Variant  string  `json:"variant,omitempty"`
}

type RetrievalContext struct {
	HasContext  bool              `json:"has_context"`
	Chunks      []RetrievalResult `json:"chunks"`
	ContextText string            `json:"context_text"`
	Digest      string            `json:"digest"`
	Variants    []string          `json:"variants,omitempty"`
}

// NoContext is the empty, valid outcome callers fall back to.
func NoContext() RetrievalContext {
	return RetrievalContext{HasContext: false, Chunks: []RetrievalResult{}}
}
