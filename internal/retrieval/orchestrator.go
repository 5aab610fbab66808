package retrieval

import (
	"context"
	"sort"
	"strings"
	"time"

	"edurag/internal/metrics"
	"edurag/internal/models"
	"edurag/internal/util"
	"edurag/internal/vector"

	"go.uber.org/zap"
)

// Embedder embeds one query variant. *embedding.Generator satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Options struct {
	TopK          int
	MinSimilarity float64
}

// Orchestrator holds no per-request state and is safe for concurrent use.
type Orchestrator struct {
	index    vector.Index
	embedder Embedder
	defaults Options
	logger   *zap.Logger
}

func NewOrchestrator(index vector.Index, embedder Embedder, defaults Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaults.TopK <= 0 {
		defaults.TopK = vector.DefaultTopK
	}
	if defaults.MinSimilarity <= 0 {
		defaults.MinSimilarity = vector.DefaultMinSimilarity
	}
	return &Orchestrator{index: index, embedder: embedder, defaults: defaults, logger: logger}
}

func (o *Orchestrator) resolve(opts Options) Options {
	if opts.TopK <= 0 {
		opts.TopK = o.defaults.TopK
	}
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = o.defaults.MinSimilarity
	}
	if opts.MinSimilarity < vector.MinSimilarityFloor {
		opts.MinSimilarity = vector.MinSimilarityFloor
	}
	if opts.MinSimilarity > 1 {
		opts.MinSimilarity = 1
	}
	return opts
}

// RetrieveContext gathers the best chunks of contextID for query. Failures
// are logged and degrade to models.NoContext; it never returns an error.
func (o *Orchestrator) RetrieveContext(ctx context.Context, contextID, query string, opts Options) models.RetrievalContext {
	start := time.Now()
	defer func() { metrics.RetrievalDuration.Observe(time.Since(start).Seconds()) }()
	opts = o.resolve(opts)
	log := o.logger.With(zap.String("context_id", contextID))

	n, err := o.index.CountCompleted(ctx, contextID)
	if err != nil {
		log.Warn("retrieval failed", zap.Error(&util.RetrievalError{Op: "count", Err: err}))
		metrics.Retrievals.WithLabelValues(metrics.RetrievalFailed).Inc()
		return models.NoContext()
	}
	if n == 0 {
		metrics.Retrievals.WithLabelValues(metrics.RetrievalEmptyIndex).Inc()
		return models.NoContext()
	}

	variants := ExpandQuery(query)
	if len(variants) == 0 {
		metrics.Retrievals.WithLabelValues(metrics.RetrievalNoMatch).Inc()
		return models.NoContext()
	}
	perVariant := (opts.TopK+len(variants)-1)/len(variants) + 2

	merged := make(map[string]*models.RetrievalResult)
	order := make([]string, 0, opts.TopK*2)
	failed := 0
	var lastErr error
	for _, variant := range variants {
		vec, err := o.embedder.Embed(ctx, variant)
		if err != nil {
			failed, lastErr = failed+1, err
			log.Warn("embed query variant", zap.String("variant", variant), zap.Error(err))
			continue
		}
		hits, err := o.index.Search(ctx, vector.SearchQuery{
			ContextID:     contextID,
			Vector:        vec,
			TopK:          perVariant,
			MinSimilarity: opts.MinSimilarity,
		})
		if err != nil {
			failed, lastErr = failed+1, err
			log.Warn("search query variant", zap.String("variant", variant), zap.Error(err))
			continue
		}
		for _, h := range hits {
			score := h.Score
			if s := 1 - h.Distance; s > score {
				score = s
			}
			if prev, ok := merged[h.Chunk.ID]; ok {
				if score > prev.Score {
					prev.Score, prev.Distance, prev.Variant = score, h.Distance, variant
				}
				continue
			}
			h.Score, h.Variant = score, variant
			merged[h.Chunk.ID] = &h
			order = append(order, h.Chunk.ID)
		}
	}
	if failed == len(variants) {
		log.Error("retrieval failed", zap.Error(&util.RetrievalError{Op: "search", Err: lastErr}), zap.Int("variants", len(variants)))
		metrics.Retrievals.WithLabelValues(metrics.RetrievalFailed).Inc()
		return models.NoContext()
	}

	ranked := make([]models.RetrievalResult, 0, len(order))
	for _, id := range order {
		ranked = append(ranked, *merged[id])
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if len(ranked) > opts.TopK {
		ranked = ranked[:opts.TopK]
	}
	if len(ranked) == 0 {
		metrics.Retrievals.WithLabelValues(metrics.RetrievalNoMatch).Inc()
		return models.NoContext()
	}

	texts := make([]string, 0, len(ranked))
	for _, r := range ranked {
		texts = append(texts, r.Chunk.Text)
	}
	metrics.Retrievals.WithLabelValues(metrics.RetrievalWithContext).Inc()
	log.Debug("retrieved context",
		zap.Int("variants", len(variants)),
		zap.Int("chunks", len(ranked)),
		zap.Float64("top_score", ranked[0].Score),
	)
	return models.RetrievalContext{
		HasContext:  true,
		Chunks:      ranked,
		ContextText: FormatContext(ranked),
		Digest:      Synthesize(texts, query),
		Variants:    variants,
	}
}

// FormatContext concatenates chunk texts grouped by document, documents in
// order of first appearance. Sources are not named.
func FormatContext(results []models.RetrievalResult) string {
	groups := make(map[string][]string)
	docs := make([]string, 0, len(results))
	for _, r := range results {
		id := r.Chunk.DocumentID
		if _, ok := groups[id]; !ok {
			docs = append(docs, id)
		}
		groups[id] = append(groups[id], strings.TrimSpace(r.Chunk.Text))
	}
	parts := make([]string, 0, len(docs))
	for _, id := range docs {
		parts = append(parts, strings.Join(groups[id], "\n\n"))
	}
	return strings.Join(parts, "\n\n---\n\n")
}
