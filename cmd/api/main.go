package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edurag/internal/api"
	"edurag/internal/blob"
	"edurag/internal/config"
	"edurag/internal/embedding"
	"edurag/internal/logging"
	"edurag/internal/providers"
	"edurag/internal/retrieval"
	"edurag/internal/storage"
	"edurag/internal/vector"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load(".env")
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("api exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx, cfg.EmbedDim); err != nil {
		return err
	}

	pm, err := providers.NewManager(cfg.EmbedProviders, cfg.EmbedDim, logger)
	if err != nil {
		return err
	}
	blobs, err := blob.NewLocalStore(cfg.DataInRoot)
	if err != nil {
		return err
	}
	tc, err := client.Dial(client.Options{
		HostPort: cfg.TemporalAddress,
		Logger:   logging.NewTemporalLogger(logger),
	})
	if err != nil {
		return err
	}
	defer tc.Close()

	orchestrator := retrieval.NewOrchestrator(
		vector.NewPGIndex(db),
		embedding.NewQueryGenerator(pm, cfg, logger),
		retrieval.Options{TopK: cfg.RetrievalTopK, MinSimilarity: cfg.RetrievalMinSimilarity},
		logger,
	)
	srv, err := api.NewServer(cfg, api.Deps{
		Documents: storage.NewDocumentRepo(db),
		Blobs:     blobs,
		Retriever: orchestrator,
		Workflows: tc,
	}, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("edurag api listening",
			zap.String("addr", cfg.APIAddr),
			zap.String("embed_providers", cfg.EmbedProviders),
		)
		errCh <- srv.Start()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sig:
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	return srv.Shutdown(shutdownCtx)
}
