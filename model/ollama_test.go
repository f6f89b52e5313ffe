package model

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOllamaEmbedder(apiURL string) *OllamaEmbedder {
	return &OllamaEmbedder{
		apiURL: apiURL,
		model:  "nomic-embed-text",
		client: http.DefaultClient,
	}
}

func embeddingServer(t *testing.T, embedding []float64, gotReq *OllamaEmbeddingRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotReq != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(gotReq))
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(OllamaEmbeddingResponse{Embedding: embedding}))
	}))
}

func vectorNorm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}

func TestEmbedReturnsNormalizedVector(t *testing.T) {
	var gotReq OllamaEmbeddingRequest
	srv := embeddingServer(t, []float64{3, 4}, &gotReq)
	defer srv.Close()

	embedder := newTestOllamaEmbedder(srv.URL)
	vec, err := embedder.Embed(context.Background(), "jazz concert in Paris")

	require.NoError(t, err)
	require.Len(t, vec, 2)
	assert.InDelta(t, 0.6, float64(vec[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(vec[1]), 1e-6)
	assert.InDelta(t, 1.0, vectorNorm(vec), 1e-6)

	assert.Equal(t, "nomic-embed-text", gotReq.Model)
	assert.Equal(t, "jazz concert in Paris", gotReq.Prompt)
}

func TestEmbedZeroVectorStaysZero(t *testing.T) {
	srv := embeddingServer(t, []float64{0, 0, 0}, nil)
	defer srv.Close()

	vec, err := newTestOllamaEmbedder(srv.URL).Embed(context.Background(), "text")

	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0}, vec)
}

func TestEmbedEmptyEmbeddingIsError(t *testing.T) {
	srv := embeddingServer(t, nil, nil)
	defer srv.Close()

	vec, err := newTestOllamaEmbedder(srv.URL).Embed(context.Background(), "text")

	assert.Nil(t, vec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty embedding")
}

func TestEmbedErrorStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	vec, err := newTestOllamaEmbedder(srv.URL).Embed(context.Background(), "text")

	assert.Nil(t, vec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestEmbedRespectsContext(t *testing.T) {
	srv := embeddingServer(t, []float64{1}, nil)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestOllamaEmbedder(srv.URL).Embed(ctx, "text")
	assert.Error(t, err)
}

func TestModelReportsConfiguredName(t *testing.T) {
	assert.Equal(t, "nomic-embed-text", newTestOllamaEmbedder("http://localhost").Model())
}
