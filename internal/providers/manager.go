package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type NamedEmbedProvider struct {
	Ref      ProviderRef
	Provider EmbeddingProvider
}

// Manager holds the configured embedding providers in preference order and
// is itself an EmbeddingProvider: a provider whose quota is exhausted hands
// the request to the next one.
type Manager struct {
	providers []NamedEmbedProvider
	logger    *zap.Logger
}

func NewManager(rawList string, dim int, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{logger: logger}
	for _, ref := range ParseProviderList(rawList) {
		p, err := buildProvider(ref, dim)
		if err != nil {
			return nil, err
		}
		m.providers = append(m.providers, NamedEmbedProvider{Ref: ref, Provider: p})
	}
	m.providers = preferredOrder(m.providers)
	return m, nil
}

func (m *Manager) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	var lastErr error
	for i, np := range m.providers {
		out, info, err := np.Provider.Embed(ctx, req)
		if err == nil {
			return out, info, nil
		}
		lastErr = err
		if ClassifyError(err) != ErrorQuota || i == len(m.providers)-1 {
			return nil, info, err
		}
		m.logger.Warn("embedding provider exhausted, failing over",
			zap.String("provider", np.Ref.Raw),
			zap.String("next", m.providers[i+1].Ref.Raw),
			zap.Error(err),
		)
	}
	if lastErr == nil {
		lastErr = errors.New("no embedding providers configured")
	}
	return nil, ProviderInfo{}, lastErr
}

func (m *Manager) Count() int {
	return len(m.providers)
}

func (m *Manager) Refs() []ProviderRef {
	out := make([]ProviderRef, 0, len(m.providers))
	for _, np := range m.providers {
		out = append(out, np.Ref)
	}
	return out
}

// preferredOrder keeps real providers first and the mock provider last.
func preferredOrder(in []NamedEmbedProvider) []NamedEmbedProvider {
	out := make([]NamedEmbedProvider, 0, len(in))
	for _, np := range in {
		if strings.ToLower(np.Ref.Name) != "mock" {
			out = append(out, np)
		}
	}
	for _, np := range in {
		if strings.ToLower(np.Ref.Name) == "mock" {
			out = append(out, np)
		}
	}
	return out
}

func buildProvider(ref ProviderRef, dim int) (EmbeddingProvider, error) {
	switch strings.ToLower(ref.Name) {
	case "mock":
		return NewMockProvider(dim), nil
	case "openai":
		return NewOpenAIProvider(ref.KeyAlias), nil
	case "ollama":
		return NewOllamaEmbeddingProvider(ref.KeyAlias), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", ref.Name)
	}
}
