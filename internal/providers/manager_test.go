package providers

import (
	"context"
	"errors"
	"testing"

	"edurag/internal/util"

	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	name  string
	err   error
	calls int
}

func (s *stubProvider) Embed(_ context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	s.calls++
	if s.err != nil {
		return nil, ProviderInfo{Name: s.name}, s.err
	}
	out := make([][]float32, len(req.Inputs))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, ProviderInfo{Name: s.name}, nil
}

func TestNewManagerOrdersMockLast(t *testing.T) {
	m, err := NewManager("mock|ollama:nomic", 8, nil)
	require.NoError(t, err)
	refs := m.Refs()
	require.Len(t, refs, 2)
	require.Equal(t, "ollama", refs[0].Name)
	require.Equal(t, "mock", refs[1].Name)

	_, err = NewManager("groq", 8, nil)
	require.Error(t, err)
}

func TestManagerFailsOverOnQuota(t *testing.T) {
	first := &stubProvider{name: "first", err: util.ErrQuotaExhausted}
	second := &stubProvider{name: "second"}
	m := &Manager{providers: []NamedEmbedProvider{{Ref: ProviderRef{Raw: "first"}, Provider: first}, {Ref: ProviderRef{Raw: "second"}, Provider: second}}}
	m.logger = nopLogger()

	out, info, err := m.Embed(context.Background(), EmbedRequest{Inputs: []string{"a"}})
	require.NoError(t, err)
	require.Equal(t, "second", info.Name)
	require.Len(t, out, 1)
}

func TestManagerDoesNotFailOverOnOtherErrors(t *testing.T) {
	boom := errors.New("bad request")
	first := &stubProvider{name: "first", err: boom}
	second := &stubProvider{name: "second"}
	m := &Manager{providers: []NamedEmbedProvider{{Provider: first}, {Provider: second}}, logger: nopLogger()}

	_, _, err := m.Embed(context.Background(), EmbedRequest{Inputs: []string{"a"}})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 0, second.calls)
}
