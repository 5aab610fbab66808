package workflows

type DocumentProcessInput struct {
	DocumentID   string `json:"document_id"`
	ContextID    string `json:"context_id"`
	ChunkSize    int    `json:"chunk_size,omitempty"`
	ChunkOverlap int    `json:"chunk_overlap,omitempty"`
}

// DocumentProgress is returned by the GetDocumentStatus query.
type DocumentProgress struct {
	DocumentID  string            `json:"document_id"`
	CurrentStep string            `json:"current_step"`
	Status      string            `json:"status"`
	Steps       map[string]string `json:"steps"`
	TotalChunks int               `json:"total_chunks,omitempty"`
	Error       string            `json:"error,omitempty"`
}
