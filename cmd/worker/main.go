package main

import (
	"context"
	"time"

	"edurag/internal/activities"
	"edurag/internal/blob"
	"edurag/internal/config"
	"edurag/internal/embedding"
	"edurag/internal/logging"
	"edurag/internal/providers"
	"edurag/internal/storage"
	"edurag/internal/vector"
	"edurag/internal/workflows"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
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
		logger.Fatal("worker exited", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	c, err := client.Dial(client.Options{
		HostPort: cfg.TemporalAddress,
		Logger:   logging.NewTemporalLogger(logger),
	})
	if err != nil {
		return err
	}
	defer c.Close()

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

	w := worker.New(c, cfg.TemporalTaskQueue, worker.Options{})
	workflows.Register(w)
	activities.Register(w, activities.New(cfg, activities.Deps{
		Documents: storage.NewDocumentRepo(db),
		Index:     vector.NewPGIndex(db),
		Blobs:     blobs,
		Embedder:  embedding.NewFromConfig(pm, cfg, logger),
		Logger:    logger,
	}))

	logger.Info("edurag worker listening",
		zap.String("temporal", cfg.TemporalAddress),
		zap.String("queue", cfg.TemporalTaskQueue),
		zap.String("embed_providers", cfg.EmbedProviders),
		zap.Int("embed_provider_count", pm.Count()),
		zap.Int("embed_dim", cfg.EmbedDim),
	)
	return w.Run(worker.InterruptCh())
}
