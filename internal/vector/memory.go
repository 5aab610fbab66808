package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"edurag/internal/models"
	"edurag/internal/storage"

	"github.com/philippgille/chromem-go"
)

// DocumentLookup resolves the owning document of a chunk. storage.DocumentRepo
// and MemoryDocuments both satisfy it.
type DocumentLookup interface {
	Get(ctx context.Context, id string) (models.Document, error)
}

// MemoryIndex keeps one chromem-go collection per context id.
type MemoryIndex struct {
	db   *chromem.DB
	docs DocumentLookup

	mu         sync.RWMutex
	docContext map[string]string
	docChunks  map[string]int
}

func NewMemoryIndex(docs DocumentLookup) *MemoryIndex {
	return &MemoryIndex{
		db:         chromem.NewDB(),
		docs:       docs,
		docContext: make(map[string]string),
		docChunks:  make(map[string]int),
	}
}

var errNoEmbedder = errors.New("memory index stores precomputed embeddings only")

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbedder
}

func (m *MemoryIndex) Insert(ctx context.Context, documentID string, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	contextID := chunks[0].ContextID
	coll, err := m.db.GetOrCreateCollection(contextID, nil, noEmbedding)
	if err != nil {
		return fmt.Errorf("get collection %s: %w", contextID, err)
	}
	docs := make([]chromem.Document, 0, len(chunks))
	for _, c := range chunks {
		if c.ContextID != contextID {
			return fmt.Errorf("insert chunks of document %s: mixed contexts %s and %s", documentID, contextID, c.ContextID)
		}
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("encode chunk metadata: %w", err)
		}
		docs = append(docs, chromem.Document{
			ID:        c.ID,
			Content:   c.Text,
			Embedding: c.Embedding,
			Metadata: map[string]string{
				"document_id": documentID,
				"seq":         strconv.Itoa(c.Seq),
				"start":       strconv.Itoa(c.StartOffset),
				"end":         strconv.Itoa(c.EndOffset),
				"meta":        string(meta),
			},
		})
	}
	if err := coll.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("add chunks to collection %s: %w", contextID, err)
	}

	m.mu.Lock()
	m.docContext[documentID] = contextID
	m.docChunks[documentID] += len(chunks)
	m.mu.Unlock()
	return nil
}

func (m *MemoryIndex) Replace(ctx context.Context, documentID string, chunks []models.Chunk) error {
	if _, err := m.DeleteByDocument(ctx, documentID); err != nil {
		return err
	}
	return m.Insert(ctx, documentID, chunks)
}

func (m *MemoryIndex) DeleteByDocument(ctx context.Context, documentID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	contextID, ok := m.docContext[documentID]
	if !ok {
		return 0, nil
	}
	n := m.docChunks[documentID]
	if coll := m.db.GetCollection(contextID, noEmbedding); coll != nil {
		if err := coll.Delete(ctx, map[string]string{"document_id": documentID}, nil); err != nil {
			return 0, fmt.Errorf("delete chunks of document %s: %w", documentID, err)
		}
	}
	delete(m.docContext, documentID)
	delete(m.docChunks, documentID)
	return int64(n), nil
}

func (m *MemoryIndex) CountCompleted(ctx context.Context, contextID string) (int, error) {
	m.mu.RLock()
	counts := make(map[string]int)
	for docID, ctxID := range m.docContext {
		if ctxID == contextID {
			counts[docID] = m.docChunks[docID]
		}
	}
	m.mu.RUnlock()

	total := 0
	for docID, n := range counts {
		doc, err := m.docs.Get(ctx, docID)
		if err != nil {
			return 0, fmt.Errorf("lookup document %s: %w", docID, err)
		}
		if doc.Status == models.StatusCompleted {
			total += n
		}
	}
	return total, nil
}

func (m *MemoryIndex) Search(ctx context.Context, q SearchQuery) ([]models.RetrievalResult, error) {
	q = q.withDefaults()
	coll := m.db.GetCollection(q.ContextID, noEmbedding)
	if coll == nil {
		return []models.RetrievalResult{}, nil
	}
	n := coll.Count()
	if n == 0 {
		return []models.RetrievalResult{}, nil
	}
	// the completed-status filter runs after the query, so rank everything
	hits, err := coll.QueryEmbedding(ctx, q.Vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", q.ContextID, err)
	}

	maxDistance := q.MaxDistance()
	docs := make(map[string]models.Document)
	out := make([]models.RetrievalResult, 0, q.TopK)
	for _, h := range hits {
		if len(out) == q.TopK {
			break
		}
		distance := 1 - float64(h.Similarity)
		if distance > maxDistance {
			break
		}
		docID := h.Metadata["document_id"]
		doc, ok := docs[docID]
		if !ok {
			doc, err = m.docs.Get(ctx, docID)
			if err != nil {
				return nil, fmt.Errorf("lookup document %s: %w", docID, err)
			}
			docs[docID] = doc
		}
		if doc.Status != models.StatusCompleted {
			continue
		}
		chunk, err := chunkFromHit(h, q.ContextID)
		if err != nil {
			return nil, err
		}
		out = append(out, models.RetrievalResult{
			Chunk:    chunk,
			Filename: doc.Filename,
			Score:    1 - distance,
			Distance: distance,
		})
	}
	return out, nil
}

func chunkFromHit(h chromem.Result, contextID string) (models.Chunk, error) {
	c := models.Chunk{
		ID:         h.ID,
		DocumentID: h.Metadata["document_id"],
		ContextID:  contextID,
		Text:       h.Content,
	}
	var err error
	if c.Seq, err = strconv.Atoi(h.Metadata["seq"]); err != nil {
		return c, fmt.Errorf("decode chunk %s seq: %w", h.ID, err)
	}
	if c.StartOffset, err = strconv.Atoi(h.Metadata["start"]); err != nil {
		return c, fmt.Errorf("decode chunk %s start: %w", h.ID, err)
	}
	if c.EndOffset, err = strconv.Atoi(h.Metadata["end"]); err != nil {
		return c, fmt.Errorf("decode chunk %s end: %w", h.ID, err)
	}
	if err := json.Unmarshal([]byte(h.Metadata["meta"]), &c.Metadata); err != nil {
		return c, fmt.Errorf("decode chunk %s metadata: %w", h.ID, err)
	}
	return c, nil
}

// MemoryDocuments is an in-process document table for MemoryIndex.
type MemoryDocuments struct {
	mu   sync.RWMutex
	docs map[string]models.Document
}

func NewMemoryDocuments() *MemoryDocuments {
	return &MemoryDocuments{docs: make(map[string]models.Document)}
}

func (d *MemoryDocuments) Put(doc models.Document) {
	d.mu.Lock()
	d.docs[doc.ID] = doc
	d.mu.Unlock()
}

func (d *MemoryDocuments) SetStatus(id string, status models.DocumentStatus) {
	d.mu.Lock()
	if doc, ok := d.docs[id]; ok {
		doc.Status = status
		d.docs[id] = doc
	}
	d.mu.Unlock()
}

func (d *MemoryDocuments) Get(_ context.Context, id string) (models.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	doc, ok := d.docs[id]
	if !ok {
		return models.Document{}, fmt.Errorf("document %s: %w", id, storage.ErrNotFound)
	}
	return doc, nil
}

// MarkProcessing, Complete and Fail follow the same status machine as
// storage.DocumentRepo.
func (d *MemoryDocuments) MarkProcessing(_ context.Context, id string) error {
	return d.transition(id, models.StatusProcessing, func(doc *models.Document) {
		doc.ErrorMessage, doc.TotalChunks, doc.ProcessedAt = nil, nil, nil
	})
}

func (d *MemoryDocuments) Complete(_ context.Context, id string, totalChunks int) error {
	return d.transition(id, models.StatusCompleted, func(doc *models.Document) {
		now := time.Now().UTC()
		doc.TotalChunks, doc.ErrorMessage, doc.ProcessedAt = &totalChunks, nil, &now
	})
}

func (d *MemoryDocuments) Fail(_ context.Context, id, message string) error {
	return d.transition(id, models.StatusError, func(doc *models.Document) {
		now := time.Now().UTC()
		doc.ErrorMessage, doc.ProcessedAt = &message, &now
	})
}

func (d *MemoryDocuments) transition(id string, next models.DocumentStatus, apply func(*models.Document)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.docs[id]
	if !ok {
		return fmt.Errorf("document %s: %w", id, storage.ErrNotFound)
	}
	if !doc.Status.CanTransition(next) {
		return fmt.Errorf("document %s %s -> %s: %w", id, doc.Status, next, storage.ErrInvalidTransition)
	}
	doc.Status = next
	apply(&doc)
	d.docs[id] = doc
	return nil
}

func (d *MemoryDocuments) List() []models.Document {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]models.Document, 0, len(d.docs))
	for _, doc := range d.docs {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.Before(out[j].UploadedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
