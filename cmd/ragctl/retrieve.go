package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"edurag/internal/activities"
	"edurag/internal/blob"
	"edurag/internal/config"
	"edurag/internal/embedding"
	"edurag/internal/extract"
	"edurag/internal/models"
	"edurag/internal/providers"
	"edurag/internal/retrieval"
	"edurag/internal/storage"
	"edurag/internal/util"
	"edurag/internal/vector"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	retrieveMemory  bool
	retrieveFiles   []string
	retrieveTopK    int
	retrieveMinSim  float64
	retrieveJSON    bool
	retrieveOutPath string
	retrieveTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(retrieveCmd)
	retrieveCmd.Flags().BoolVar(&retrieveMemory, "memory", false, "ingest --file documents into an in-memory index instead of using Postgres")
	retrieveCmd.Flags().StringArrayVar(&retrieveFiles, "file", nil, "PDF or DOCX file to ingest (with --memory, repeatable)")
	retrieveCmd.Flags().IntVar(&retrieveTopK, "top-k", 0, "maximum chunks returned (default from config)")
	retrieveCmd.Flags().Float64Var(&retrieveMinSim, "min-similarity", 0, "similarity threshold, at least 0.4 (default from config)")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "print the full result as JSON")
	retrieveCmd.Flags().StringVar(&retrieveOutPath, "out", "", "also write the JSON result to this file")
	retrieveCmd.Flags().DurationVar(&retrieveTimeout, "timeout", 5*time.Minute, "overall deadline")
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <context-id> <query>",
	Short: "Retrieve the best matching chunks of a context for a query",
	Args:  cobra.ExactArgs(2),
	RunE:  runRetrieve,
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), retrieveTimeout)
	defer cancel()

	pm, err := providers.NewManager(cfg.EmbedProviders, cfg.EmbedDim, logger)
	if err != nil {
		return err
	}
	contextID, query := args[0], args[1]

	var index vector.Index
	if retrieveMemory {
		if len(retrieveFiles) == 0 {
			return fmt.Errorf("--memory needs at least one --file")
		}
		index, err = ingestLocal(ctx, cfg, pm, logger, contextID, retrieveFiles, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
	} else {
		db, err := storage.NewDB(ctx, cfg.PostgresURL)
		if err != nil {
			return err
		}
		defer db.Close()
		index = vector.NewPGIndex(db)
	}

	orchestrator := retrieval.NewOrchestrator(index, embedding.NewQueryGenerator(pm, cfg, logger),
		retrieval.Options{TopK: cfg.RetrievalTopK, MinSimilarity: cfg.RetrievalMinSimilarity}, logger)
	result := orchestrator.RetrieveContext(ctx, contextID, query, retrieval.Options{
		TopK:          retrieveTopK,
		MinSimilarity: retrieveMinSim,
	})

	if retrieveOutPath != "" {
		if err := util.WriteJSONAtomic(retrieveOutPath, result); err != nil {
			return err
		}
	}
	return printRetrieval(cmd.OutOrStdout(), result, retrieveJSON)
}

func printRetrieval(w io.Writer, result models.RetrievalContext, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	if !result.HasContext {
		_, err := fmt.Fprintln(w, "No context available.")
		return err
	}
	for i, r := range result.Chunks {
		fmt.Fprintf(w, "%d. [%.3f] %s #%d  %s\n", i+1, r.Score, r.Filename, r.Chunk.Seq, util.Snippet(r.Chunk.Text, 120))
	}
	fmt.Fprintf(w, "\nSummary: %s\n", result.Digest)
	return nil
}

// ingestLocal runs the processing steps for each file against a chromem-go
// index. Files that fail are reported and skipped.
func ingestLocal(ctx context.Context, cfg config.Config, provider providers.EmbeddingProvider, logger *zap.Logger, contextID string, files []string, errOut io.Writer) (*vector.MemoryIndex, error) {
	dir, err := os.MkdirTemp("", "ragctl-*")
	if err != nil {
		return nil, fmt.Errorf("create blob dir: %w", err)
	}
	defer os.RemoveAll(dir)
	blobs, err := blob.NewLocalStore(dir)
	if err != nil {
		return nil, err
	}
	docs := vector.NewMemoryDocuments()
	index := vector.NewMemoryIndex(docs)
	acts := activities.New(cfg, activities.Deps{
		Documents: docs,
		Index:     index,
		Blobs:     blobs,
		Embedder:  embedding.NewFromConfig(provider, cfg, logger),
		Logger:    logger,
	})

	for _, path := range files {
		format := extract.FormatFromFilename(path)
		if !format.Supported() {
			fmt.Fprintf(errOut, "skip %s: unsupported format %q\n", path, format)
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		doc := models.Document{
			ID:         uuid.NewString(),
			ContextID:  contextID,
			Filename:   filepath.Base(path),
			Format:     format,
			Status:     models.StatusPending,
			UploadedAt: time.Now().UTC(),
			Metadata:   map[string]any{"sha256": util.SHA256Hex(data)},
		}
		doc.BlobKey = blob.Key(contextID, doc.ID, doc.Filename)
		if doc.SizeBytes, err = blobs.Put(ctx, doc.BlobKey, bytes.NewReader(data)); err != nil {
			return nil, err
		}
		docs.Put(doc)
		if err := acts.RunInline(ctx, doc.ID, contextID); err != nil {
			fmt.Fprintf(errOut, "skip %s: %v\n", path, err)
		}
	}
	return index, nil
}
