// Package api exposes document upload, lifecycle and retrieval over HTTP.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"edurag/internal/blob"
	"edurag/internal/config"
	"edurag/internal/extract"
	"edurag/internal/models"
	"edurag/internal/retrieval"
	"edurag/internal/util"
	"edurag/internal/workflows"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

const maxUploadBytes = 64 << 20

// Documents is the slice of storage.DocumentRepo the API needs.
type Documents interface {
	Create(ctx context.Context, d models.Document) error
	Get(ctx context.Context, id string) (models.Document, error)
	ListByContext(ctx context.Context, contextID string) ([]models.Document, error)
	Delete(ctx context.Context, id string) error
}

type Retriever interface {
	RetrieveContext(ctx context.Context, contextID, query string, opts retrieval.Options) models.RetrievalContext
}

// WorkflowStarter is satisfied by a Temporal client.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options tclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (tclient.WorkflowRun, error)
}

type Deps struct {
	Documents Documents
	Blobs     blob.Store
	Retriever Retriever
	Workflows WorkflowStarter
}

type Server struct {
	echo   *echo.Echo
	cfg    config.Config
	deps   Deps
	logger *zap.Logger
}

func NewServer(cfg config.Config, deps Deps, logger *zap.Logger) (*Server, error) {
	if deps.Documents == nil || deps.Blobs == nil || deps.Retriever == nil || deps.Workflows == nil {
		return nil, fmt.Errorf("api: documents, blobs, retriever and workflows are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return nil
		}
	})

	s := &Server{echo: e, cfg: cfg, deps: deps, logger: logger}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealthz)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.POST("/contexts/:context_id/documents", s.handleUpload, middleware.BodyLimit("64M"))
	s.echo.GET("/contexts/:context_id/documents", s.handleListDocuments)
	s.echo.POST("/contexts/:context_id/retrieve", s.handleRetrieve)

	s.echo.GET("/documents/:id", s.handleGetDocument)
	s.echo.POST("/documents/:id/reprocess", s.handleReprocess)
	s.echo.DELETE("/documents/:id", s.handleDeleteDocument)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.cfg.APIAddr))
	return s.echo.Start(s.cfg.APIAddr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}

// handleUpload stores the file, records a pending document and starts its
// processing workflow without waiting for it.
func (s *Server) handleUpload(c echo.Context) error {
	contextID := strings.TrimSpace(c.Param("context_id"))
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "no file provided")
	}
	format := extract.FormatFromFilename(fh.Filename)
	if !format.Supported() {
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, fmt.Sprintf("unsupported document format %q", format))
	}
	if fh.Size > maxUploadBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "file too large")
	}

	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "empty file")
	}

	ctx := c.Request().Context()
	doc := models.Document{
		ID:         uuid.NewString(),
		ContextID:  contextID,
		Filename:   util.SanitizeText(fh.Filename),
		Format:     format,
		UploaderID: strings.TrimSpace(c.FormValue("uploader_id")),
		Status:     models.StatusPending,
		Metadata: map[string]any{
			"sha256":       util.SHA256Hex(data),
			"content_type": fh.Header.Get(echo.HeaderContentType),
		},
	}
	doc.BlobKey = blob.Key(contextID, doc.ID, fh.Filename)
	n, err := s.deps.Blobs.Put(ctx, doc.BlobKey, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("store upload: %w", err)
	}
	doc.SizeBytes = n
	if err := s.deps.Documents.Create(ctx, doc); err != nil {
		_ = s.deps.Blobs.Delete(ctx, doc.BlobKey)
		return err
	}

	// a start failure leaves the document pending; reprocess picks it up
	if err := s.startProcessing(ctx, doc); err != nil {
		s.logger.Error("start document workflow", zap.String("document_id", doc.ID), zap.Error(err))
	}
	return c.JSON(http.StatusAccepted, doc)
}

func (s *Server) handleListDocuments(c echo.Context) error {
	docs, err := s.deps.Documents.ListByContext(c.Request().Context(), c.Param("context_id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleGetDocument(c echo.Context) error {
	doc, err := s.deps.Documents.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) handleReprocess(c echo.Context) error {
	ctx := c.Request().Context()
	doc, err := s.deps.Documents.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if !doc.Status.CanTransition(models.StatusProcessing) {
		return echo.NewHTTPError(http.StatusConflict, "document is already processing")
	}
	if err := s.startProcessing(ctx, doc); err != nil {
		return fmt.Errorf("start document workflow: %w", err)
	}
	return c.JSON(http.StatusAccepted, map[string]any{
		"document_id": doc.ID,
		"workflow_id": workflows.WorkflowID(doc.ID),
	})
}

func (s *Server) handleDeleteDocument(c echo.Context) error {
	ctx := c.Request().Context()
	doc, err := s.deps.Documents.Get(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if err := s.deps.Documents.Delete(ctx, doc.ID); err != nil {
		return err
	}
	if err := s.deps.Blobs.Delete(ctx, doc.BlobKey); err != nil && !errors.Is(err, blob.ErrNotFound) {
		s.logger.Warn("delete document blob", zap.String("document_id", doc.ID), zap.Error(err))
	}
	return c.NoContent(http.StatusNoContent)
}

type retrieveRequest struct {
	Query         string  `json:"query"`
	TopK          int     `json:"top_k"`
	MinSimilarity float64 `json:"min_similarity"`
}

func (s *Server) handleRetrieve(c echo.Context) error {
	var req retrieveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid json")
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	out := s.deps.Retriever.RetrieveContext(c.Request().Context(), c.Param("context_id"), req.Query, retrieval.Options{
		TopK:          req.TopK,
		MinSimilarity: req.MinSimilarity,
	})
	return c.JSON(http.StatusOK, out)
}

func (s *Server) startProcessing(ctx context.Context, doc models.Document) error {
	_, err := s.deps.Workflows.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:                    workflows.WorkflowID(doc.ID),
		TaskQueue:             s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}, workflows.DocumentProcessWorkflow, workflows.DocumentProcessInput{
		DocumentID:   doc.ID,
		ContextID:    doc.ContextID,
		ChunkSize:    s.cfg.ChunkSize,
		ChunkOverlap: s.cfg.ChunkOverlap,
	})
	return err
}
