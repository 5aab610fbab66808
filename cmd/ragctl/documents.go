package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"edurag/internal/config"
	"edurag/internal/logging"
	"edurag/internal/models"
	"edurag/internal/storage"
	"edurag/internal/util"
	"edurag/internal/workflows"

	"github.com/spf13/cobra"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

var exportOutPath string

func init() {
	rootCmd.AddCommand(reprocessCmd, statusCmd, exportCmd)
	exportCmd.Flags().StringVar(&exportOutPath, "out", "", "JSONL file to write (required)")
	_ = exportCmd.MarkFlagRequired("out")
}

var reprocessCmd = &cobra.Command{
	Use:   "reprocess <document-id>",
	Short: "Start the processing workflow again for a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		return withDocument(cmd.Context(), cfg, args[0], func(ctx context.Context, db *storage.DB, doc models.Document) error {
			if !doc.Status.CanTransition(models.StatusProcessing) {
				return fmt.Errorf("document %s is %s", doc.ID, doc.Status)
			}
			tc, err := dialTemporal(cfg, logger)
			if err != nil {
				return err
			}
			defer tc.Close()
			run, err := tc.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
				ID:                    workflows.WorkflowID(doc.ID),
				TaskQueue:             cfg.TemporalTaskQueue,
				WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
			}, workflows.DocumentProcessWorkflow, workflows.DocumentProcessInput{
				DocumentID:   doc.ID,
				ContextID:    doc.ContextID,
				ChunkSize:    cfg.ChunkSize,
				ChunkOverlap: cfg.ChunkOverlap,
			})
			if err != nil {
				return fmt.Errorf("start workflow: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "started %s (run %s)\n", run.GetID(), run.GetRunID())
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <document-id>",
	Short: "Show a document's stored status and its workflow progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		return withDocument(cmd.Context(), cfg, args[0], func(ctx context.Context, _ *storage.DB, doc models.Document) error {
			out := map[string]any{"document": doc}
			if tc, err := dialTemporal(cfg, logger); err == nil {
				defer tc.Close()
				if val, err := tc.QueryWorkflow(ctx, workflows.WorkflowID(doc.ID), "", workflows.QueryGetDocumentStatus); err == nil {
					var progress workflows.DocumentProgress
					if err := val.Get(&progress); err == nil {
						out["workflow"] = progress
					}
				} else {
					logger.Debug("workflow query failed", zap.Error(err))
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <document-id>",
	Short: "Write a document's stored chunks as JSON lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		return withDocument(cmd.Context(), cfg, args[0], func(ctx context.Context, db *storage.DB, doc models.Document) error {
			chunks, err := storage.NewChunkRepo(db).ListByDocument(ctx, doc.ID)
			if err != nil {
				return err
			}
			rows := make([]any, 0, len(chunks))
			for _, c := range chunks {
				c.Embedding = nil
				rows = append(rows, c)
			}
			if err := util.WriteJSONLinesAtomic(exportOutPath, rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d chunks of %s to %s\n", len(rows), doc.Filename, exportOutPath)
			return nil
		})
	},
}

func withDocument(parent context.Context, cfg config.Config, id string, fn func(context.Context, *storage.DB, models.Document) error) error {
	ctx, cancel := context.WithTimeout(parent, time.Minute)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer db.Close()
	doc, err := storage.NewDocumentRepo(db).Get(ctx, id)
	if err != nil {
		return err
	}
	return fn(ctx, db, doc)
}

func dialTemporal(cfg config.Config, logger *zap.Logger) (client.Client, error) {
	return client.Dial(client.Options{
		HostPort: cfg.TemporalAddress,
		Logger:   logging.NewTemporalLogger(logger),
	})
}
