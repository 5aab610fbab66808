package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"edurag/internal/util"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIEmbedModel = "text-embedding-3-small"

// OpenAIProvider calls the OpenAI embeddings endpoint, or any compatible
// server set through EDURAG_OPENAI_BASE_URL.
type OpenAIProvider struct {
	keyName string
	hasKey  bool
	model   string
	client  *openai.Client
}

func NewOpenAIProvider(keyName string) *OpenAIProvider {
	apiKey := resolveOpenAIKey(keyName)
	cfg := openai.DefaultConfig(apiKey)
	if base := strings.TrimSpace(os.Getenv("EDURAG_OPENAI_BASE_URL")); base != "" {
		cfg.BaseURL = strings.TrimRight(base, "/")
	}
	model := strings.TrimSpace(os.Getenv("EDURAG_OPENAI_EMBED_MODEL"))
	if model == "" {
		model = defaultOpenAIEmbedModel
	}
	return &OpenAIProvider{
		keyName: keyName,
		hasKey:  apiKey != "",
		model:   model,
		client:  openai.NewClientWithConfig(cfg),
	}
}

func (o *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "openai", Model: o.model, Key: o.keyName}
	if !o.hasKey {
		return nil, info, fmt.Errorf("%w: openai key missing for alias %q", util.ErrPermanent, o.keyName)
	}
	if len(req.Inputs) == 0 {
		return nil, info, fmt.Errorf("no embedding inputs")
	}
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      req.Inputs,
		Model:      openai.EmbeddingModel(o.model),
		Dimensions: req.Dimension,
	})
	if err != nil {
		return nil, info, classifyOpenAIError(err)
	}
	if len(resp.Data) != len(req.Inputs) {
		return nil, info, fmt.Errorf("%w: openai returned %d embeddings for %d inputs", util.ErrMalformedResponse, len(resp.Data), len(req.Inputs))
	}
	out := make([][]float32, len(req.Inputs))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) || len(d.Embedding) == 0 {
			return nil, info, fmt.Errorf("%w: openai embedding at index %d", util.ErrMalformedResponse, d.Index)
		}
		out[d.Index] = matchDimension(d.Embedding, req.Dimension)
	}
	return out, info, nil
}

func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests && strings.Contains(strings.ToLower(apiErr.Message), "quota"):
			return fmt.Errorf("%w: openai: %s", util.ErrQuotaExhausted, apiErr.Message)
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("%w: openai: %s", util.ErrRateLimited, apiErr.Message)
		case apiErr.HTTPStatusCode >= 500:
			return fmt.Errorf("%w: openai: %s", util.ErrTransient, apiErr.Message)
		}
	}
	return fmt.Errorf("openai embedding request failed: %w", err)
}

func resolveOpenAIKey(alias string) string {
	if alias != "" {
		k := os.Getenv("EDURAG_OPENAI_KEY_" + sanitizeEnvToken(alias))
		if k != "" {
			return k
		}
	}
	return os.Getenv("OPENAI_API_KEY")
}
