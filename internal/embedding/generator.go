// Package embedding turns chunk and query text into fixed-dimension vectors
// through a configured provider, pacing and batching the calls.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"edurag/internal/config"
	"edurag/internal/metrics"
	"edurag/internal/providers"
	"edurag/internal/util"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultBatchSize  = 10
	DefaultBatchDelay = time.Second
	DefaultMaxTries   = 3
)

type Options struct {
	Dimension  int
	BatchSize  int
	BatchDelay time.Duration
	// MaxTries bounds attempts per provider call for rate and transient errors.
	MaxTries     int
	RetryInitial time.Duration
	Logger       *zap.Logger
}

// Generator wraps an EmbeddingProvider. Provider calls are strictly
// sequential per batch and spaced by BatchDelay across all callers.
type Generator struct {
	provider     providers.EmbeddingProvider
	dim          int
	batchSize    int
	limiter      *rate.Limiter
	maxTries     uint
	retryInitial time.Duration
	logger       *zap.Logger
}

func New(provider providers.EmbeddingProvider, opts Options) *Generator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxTries <= 0 {
		opts.MaxTries = DefaultMaxTries
	}
	if opts.RetryInitial <= 0 {
		opts.RetryInitial = 500 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	limit := rate.Inf
	if opts.BatchDelay > 0 {
		limit = rate.Every(opts.BatchDelay)
	}
	return &Generator{
		provider:     provider,
		dim:          opts.Dimension,
		batchSize:    opts.BatchSize,
		limiter:      rate.NewLimiter(limit, 1),
		maxTries:     uint(opts.MaxTries),
		retryInitial: opts.RetryInitial,
		logger:       opts.Logger,
	}
}

func NewFromConfig(provider providers.EmbeddingProvider, cfg config.Config, logger *zap.Logger) *Generator {
	return New(provider, Options{
		Dimension:  cfg.EmbedDim,
		BatchSize:  cfg.EmbedBatchSize,
		BatchDelay: time.Duration(cfg.EmbedBatchDelayMS) * time.Millisecond,
		MaxTries:   cfg.EmbedMaxRetries,
		Logger:     logger,
	})
}

// NewQueryGenerator is the generator for retrieval queries. It keeps the
// retry bound but not the ingestion batch spacing.
func NewQueryGenerator(provider providers.EmbeddingProvider, cfg config.Config, logger *zap.Logger) *Generator {
	return New(provider, Options{
		Dimension: cfg.EmbedDim,
		BatchSize: 1,
		MaxTries:  cfg.EmbedMaxRetries,
		Logger:    logger,
	})
}

func (g *Generator) Dimension() int {
	return g.dim
}

func (g *Generator) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := g.call(ctx, []string{text})
	if err != nil {
		return nil, &util.EmbeddingError{Batch: -1, Err: err}
	}
	return out[0], nil
}

// EmbedBatch embeds texts in groups of batchSize (the generator default when
// batchSize <= 0), waiting for each group before sending the next. Any group
// failure fails the whole call; no partial result is returned.
func (g *Generator) EmbedBatch(ctx context.Context, texts []string, batchSize int) ([][]float32, error) {
	if batchSize <= 0 {
		batchSize = g.batchSize
	}
	out := make([][]float32, 0, len(texts))
	for start, batch := 0, 0; start < len(texts); start, batch = start+batchSize, batch+1 {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := g.call(ctx, texts[start:end])
		if err != nil {
			return nil, &util.EmbeddingError{Batch: batch, Err: err}
		}
		out = append(out, vecs...)
		g.logger.Debug("embedded batch",
			zap.Int("batch", batch),
			zap.Int("size", end-start),
			zap.Int("total", len(texts)),
		)
	}
	return out, nil
}

func (g *Generator) call(ctx context.Context, inputs []string) ([][]float32, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = g.retryInitial

	op := func() ([][]float32, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}
		vecs, info, err := g.provider.Embed(ctx, providers.EmbedRequest{Inputs: inputs, Dimension: g.dim})
		if err != nil {
			if ctx.Err() != nil || !providers.Retryable(err) {
				metrics.EmbeddingCalls.WithLabelValues(metrics.ResultError).Inc()
				return nil, backoff.Permanent(err)
			}
			metrics.EmbeddingCalls.WithLabelValues(metrics.ResultRetry).Inc()
			g.logger.Warn("embedding call failed, retrying",
				zap.String("provider", info.Name),
				zap.Int("inputs", len(inputs)),
				zap.Error(err),
			)
			return nil, err
		}
		if err := g.validate(vecs, len(inputs)); err != nil {
			metrics.EmbeddingCalls.WithLabelValues(metrics.ResultError).Inc()
			return nil, backoff.Permanent(err)
		}
		metrics.EmbeddingCalls.WithLabelValues(metrics.ResultSuccess).Inc()
		return vecs, nil
	}

	vecs, err := backoff.Retry(ctx, op, backoff.WithBackOff(bo), backoff.WithMaxTries(g.maxTries))
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		return nil, err
	}
	return vecs, nil
}

func (g *Generator) validate(vecs [][]float32, want int) error {
	if len(vecs) != want {
		return fmt.Errorf("%w: got %d vectors for %d inputs", util.ErrMalformedResponse, len(vecs), want)
	}
	for i, v := range vecs {
		if len(v) == 0 {
			return fmt.Errorf("%w: empty vector at %d", util.ErrMalformedResponse, i)
		}
		if g.dim > 0 && len(v) != g.dim {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", util.ErrMalformedResponse, i, len(v), g.dim)
		}
	}
	return nil
}
