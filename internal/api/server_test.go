package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"edurag/internal/blob"
	"edurag/internal/config"
	"edurag/internal/models"
	"edurag/internal/retrieval"
	"edurag/internal/storage"
	"edurag/internal/workflows"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tclient "go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

type fakeDocs struct {
	mu   sync.Mutex
	docs map[string]models.Document
}

func (f *fakeDocs) Create(_ context.Context, d models.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[d.ID] = d
	return nil
}

func (f *fakeDocs) Get(_ context.Context, id string) (models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok {
		return models.Document{}, fmt.Errorf("document %s: %w", id, storage.ErrNotFound)
	}
	return d, nil
}

func (f *fakeDocs) ListByContext(_ context.Context, contextID string) ([]models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Document{}
	for _, d := range f.docs {
		if d.ContextID == contextID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDocs) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		return storage.ErrNotFound
	}
	delete(f.docs, id)
	return nil
}

type fakeRetriever struct {
	contextID, query string
	opts             retrieval.Options
}

func (f *fakeRetriever) RetrieveContext(_ context.Context, contextID, query string, opts retrieval.Options) models.RetrievalContext {
	f.contextID, f.query, f.opts = contextID, query, opts
	if contextID != "aula-1" {
		return models.NoContext()
	}
	return models.RetrievalContext{
		HasContext:  true,
		Chunks:      []models.RetrievalResult{{Chunk: models.Chunk{ID: "c1", Text: "La fotosíntesis ocurre en los cloroplastos."}, Score: 0.91}},
		ContextText: "La fotosíntesis ocurre en los cloroplastos.",
	}
}

type fakeStarter struct {
	opts  []tclient.StartWorkflowOptions
	input []workflows.DocumentProcessInput
	err   error
}

func (f *fakeStarter) ExecuteWorkflow(_ context.Context, o tclient.StartWorkflowOptions, _ interface{}, args ...interface{}) (tclient.WorkflowRun, error) {
	f.opts = append(f.opts, o)
	f.input = append(f.input, args[0].(workflows.DocumentProcessInput))
	return nil, f.err
}

type fixture struct {
	server    *Server
	docs      *fakeDocs
	blobs     *blob.LocalStore
	retriever *fakeRetriever
	starter   *fakeStarter
}

func setupTestServer(t *testing.T) *fixture {
	t.Helper()
	blobs, err := blob.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	f := &fixture{
		docs:      &fakeDocs{docs: map[string]models.Document{}},
		blobs:     blobs,
		retriever: &fakeRetriever{},
		starter:   &fakeStarter{},
	}
	cfg := config.Config{TemporalTaskQueue: "edurag-documents", ChunkSize: 1000, ChunkOverlap: 200}
	f.server, err = NewServer(cfg, Deps{
		Documents: f.docs,
		Blobs:     f.blobs,
		Retriever: f.retriever,
		Workflows: f.starter,
	}, zap.NewNop())
	require.NoError(t, err)
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, contextID, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("uploader_id", "tutor-7"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/contexts/"+contextID+"/documents", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apiError {
	t.Helper()
	var body struct {
		Error apiError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestNewServerRequiresDeps(t *testing.T) {
	_, err := NewServer(config.Config{}, Deps{}, nil)
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	f := setupTestServer(t)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestUploadStoresBlobAndStartsWorkflow(t *testing.T) {
	f := setupTestServer(t)
	content := []byte("%PDF-1.4 apuntes de biología")

	rec := f.do(uploadRequest(t, "aula-1", "Tema 3.pdf", content))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var doc models.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "aula-1", doc.ContextID)
	assert.Equal(t, models.StatusPending, doc.Status)
	assert.Equal(t, models.FormatPDF, doc.Format)
	assert.Equal(t, "tutor-7", doc.UploaderID)
	assert.Equal(t, int64(len(content)), doc.SizeBytes)
	assert.NotEmpty(t, doc.Metadata["sha256"])

	stored, err := f.blobs.Get(context.Background(), doc.BlobKey)
	require.NoError(t, err)
	assert.Equal(t, content, stored)

	require.Len(t, f.starter.opts, 1)
	assert.Equal(t, workflows.WorkflowID(doc.ID), f.starter.opts[0].ID)
	assert.Equal(t, "edurag-documents", f.starter.opts[0].TaskQueue)
	assert.Equal(t, workflows.DocumentProcessInput{
		DocumentID: doc.ID, ContextID: "aula-1", ChunkSize: 1000, ChunkOverlap: 200,
	}, f.starter.input[0])
}

func TestUploadSurvivesWorkflowStartFailure(t *testing.T) {
	f := setupTestServer(t)
	f.starter.err = fmt.Errorf("temporal unavailable")

	rec := f.do(uploadRequest(t, "aula-1", "notas.docx", []byte("PK fake docx")))
	require.Equal(t, http.StatusAccepted, rec.Code)
	docs, _ := f.docs.ListByContext(context.Background(), "aula-1")
	require.Len(t, docs, 1)
	assert.Equal(t, models.StatusPending, docs[0].Status)
}

func TestUploadRejectsBadInput(t *testing.T) {
	f := setupTestServer(t)

	rec := f.do(uploadRequest(t, "aula-1", "notas.txt", []byte("hola")))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.Equal(t, "ED-API-4015", decodeError(t, rec).Code)

	rec = f.do(uploadRequest(t, "aula-1", "vacio.pdf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/contexts/aula-1/documents", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec = f.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file provided.", decodeError(t, rec).Message)
	assert.Empty(t, f.starter.opts)
}

func TestGetListAndDeleteDocument(t *testing.T) {
	f := setupTestServer(t)
	rec := f.do(uploadRequest(t, "aula-1", "tema.pdf", []byte("%PDF-1.4")))
	var doc models.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))

	rec = f.do(httptest.NewRequest(http.MethodGet, "/documents/"+doc.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/contexts/aula-1/documents", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Documents []models.Document `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Documents, 1)

	rec = f.do(httptest.NewRequest(http.MethodDelete, "/documents/"+doc.ID, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	_, err := f.blobs.Get(context.Background(), doc.BlobKey)
	assert.ErrorIs(t, err, blob.ErrNotFound)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/documents/"+doc.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ED-API-4004", decodeError(t, rec).Code)
}

func TestReprocess(t *testing.T) {
	f := setupTestServer(t)
	f.docs.docs["d-done"] = models.Document{ID: "d-done", ContextID: "aula-1", Status: models.StatusError}
	f.docs.docs["d-busy"] = models.Document{ID: "d-busy", ContextID: "aula-1", Status: models.StatusProcessing}

	rec := f.do(httptest.NewRequest(http.MethodPost, "/documents/d-done/reprocess", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, f.starter.opts, 1)
	assert.Equal(t, "document-d-done", f.starter.opts[0].ID)

	rec = f.do(httptest.NewRequest(http.MethodPost, "/documents/d-busy/reprocess", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ED-API-4009", decodeError(t, rec).Code)

	rec = f.do(httptest.NewRequest(http.MethodPost, "/documents/missing/reprocess", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, f.starter.opts, 1)
}

func TestRetrieve(t *testing.T) {
	f := setupTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/contexts/aula-1/retrieve",
		strings.NewReader(`{"query":"  ¿Dónde ocurre la fotosíntesis? ","top_k":3,"min_similarity":0.7}`))
	req.Header.Set("Content-Type", "application/json")
	rec := f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)

	var out models.RetrievalContext
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.True(t, out.HasContext)
	require.Len(t, out.Chunks, 1)
	assert.Equal(t, "¿Dónde ocurre la fotosíntesis?", f.retriever.query)
	assert.Equal(t, retrieval.Options{TopK: 3, MinSimilarity: 0.7}, f.retriever.opts)

	req = httptest.NewRequest(http.MethodPost, "/contexts/aula-2/retrieve", strings.NewReader(`{"query":"célula"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = f.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.False(t, out.HasContext)
	assert.Empty(t, out.Chunks)

	req = httptest.NewRequest(http.MethodPost, "/contexts/aula-1/retrieve", strings.NewReader(`{"query":"   "}`))
	req.Header.Set("Content-Type", "application/json")
	rec = f.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestToAPIErrorHidesInternalDetails(t *testing.T) {
	status, apiErr := toAPIError(fmt.Errorf("list documents: ERROR: relation \"documents\" does not exist"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "ED-DB-5001", apiErr.Code)

	status, apiErr = toAPIError(fmt.Errorf("boom"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.NotContains(t, apiErr.Message, "boom")
}
