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

func newOpenAITestServer(t *testing.T, status int, body any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/embeddings", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	t.Setenv("EDURAG_OPENAI_BASE_URL", srv.URL+"/v1")
	t.Setenv("EDURAG_OPENAI_KEY_TUTOR", "sk-test")
	return srv
}

func TestOpenAIEmbedOrdersByIndex(t *testing.T) {
	newOpenAITestServer(t, http.StatusOK, map[string]any{
		"object": "list",
		"model":  "text-embedding-3-small",
		"data": []map[string]any{
			{"object": "embedding", "index": 1, "embedding": []float32{0, 1}},
			{"object": "embedding", "index": 0, "embedding": []float32{1, 0}},
		},
	})

	out, info, err := NewOpenAIProvider("tutor").Embed(context.Background(), EmbedRequest{Inputs: []string{"a", "b"}})
	require.NoError(t, err)
	require.Equal(t, "openai", info.Name)
	require.Equal(t, [][]float32{{1, 0}, {0, 1}}, out)
}

func TestOpenAIEmbedRejectsShortResponse(t *testing.T) {
	newOpenAITestServer(t, http.StatusOK, map[string]any{
		"object": "list",
		"data":   []map[string]any{{"object": "embedding", "index": 0, "embedding": []float32{1}}},
	})
	_, _, err := NewOpenAIProvider("tutor").Embed(context.Background(), EmbedRequest{Inputs: []string{"a", "b"}})
	require.ErrorIs(t, err, util.ErrMalformedResponse)
}

func TestOpenAIEmbedMapsRateLimit(t *testing.T) {
	newOpenAITestServer(t, http.StatusTooManyRequests, map[string]any{
		"error": map[string]any{"message": "Rate limit reached", "type": "requests"},
	})
	_, _, err := NewOpenAIProvider("tutor").Embed(context.Background(), EmbedRequest{Inputs: []string{"a"}})
	require.ErrorIs(t, err, util.ErrRateLimited)
}

func TestOpenAIEmbedWithoutKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, _, err := NewOpenAIProvider("missing").Embed(context.Background(), EmbedRequest{Inputs: []string{"a"}})
	require.ErrorIs(t, err, util.ErrPermanent)
}
