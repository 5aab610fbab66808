package activities

import "edurag/internal/models"

type DocumentInput struct {
	DocumentID string `json:"document_id"`
}

type ExtractTextOutput struct {
	Text       string `json:"text"`
	Characters int    `json:"characters"`
}

type ChunkTextInput struct {
	DocumentID   string `json:"document_id"`
	ContextID    string `json:"context_id"`
	Text         string `json:"text"`
	ChunkSize    int    `json:"chunk_size,omitempty"`
	ChunkOverlap int    `json:"chunk_overlap,omitempty"`
}

type ChunkTextOutput struct {
	Chunks []models.Chunk `json:"chunks"`
}

type EmbedChunksInput struct {
	DocumentID string         `json:"document_id"`
	Chunks     []models.Chunk `json:"chunks"`
}

type EmbedChunksOutput struct {
	Chunks []models.Chunk `json:"chunks"`
}

type ReplaceChunksInput struct {
	DocumentID string         `json:"document_id"`
	Chunks     []models.Chunk `json:"chunks"`
}

type ReplaceChunksOutput struct {
	Written int `json:"written"`
}

type CompleteDocumentInput struct {
	DocumentID  string `json:"document_id"`
	TotalChunks int    `json:"total_chunks"`
}

type FailDocumentInput struct {
	DocumentID string `json:"document_id"`
	Step       string `json:"step"`
	Message    string `json:"message"`
}
