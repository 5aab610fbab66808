package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"edurag/internal/util"

	"github.com/stretchr/testify/require"
)

func TestResolveOllamaEmbedModel_Default(t *testing.T) {
	t.Setenv("EDURAG_OLLAMA_EMBED_MODEL", "")
	got := resolveOllamaEmbedModel("")
	if got != "nomic-embed-text" {
		t.Fatalf("expected default nomic-embed-text, got %q", got)
	}
	if got := resolveOllamaEmbedModel("bge-m3"); got != "bge-m3" {
		t.Fatalf("expected direct model alias, got %q", got)
	}
}

func TestMatchDimension(t *testing.T) {
	src := []float32{1, 2, 3}
	a := matchDimension(src, 2)
	if len(a) != 2 || a[0] != 1 || a[1] != 2 {
		t.Fatalf("truncate failed: %#v", a)
	}
	b := matchDimension(src, 5)
	if len(b) != 5 || b[0] != 1 || b[2] != 3 || b[3] != 0 || b[4] != 0 {
		t.Fatalf("pad failed: %#v", b)
	}
}

func TestOllamaEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "nomic-embed-text", body["model"])
		_ = json.NewEncoder(w).Encode(map[string]any{"embedding": []float32{0.5, 0.5, 0.5}})
	}))
	defer srv.Close()
	t.Setenv("EDURAG_OLLAMA_BASE_URL", srv.URL)

	p := NewOllamaEmbeddingProvider("nomic")
	out, info, err := p.Embed(context.Background(), EmbedRequest{Inputs: []string{"a", "b"}, Dimension: 4})
	require.NoError(t, err)
	require.Equal(t, "ollama", info.Name)
	require.Len(t, out, 2)
	require.Equal(t, []float32{0.5, 0.5, 0.5, 0}, out[1])
}

func TestOllamaEmbedClassifiesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	t.Setenv("EDURAG_OLLAMA_BASE_URL", srv.URL)

	_, _, err := NewOllamaEmbeddingProvider("").Embed(context.Background(), EmbedRequest{Inputs: []string{"a"}})
	require.ErrorIs(t, err, util.ErrRateLimited)
	require.True(t, Retryable(err))
}
