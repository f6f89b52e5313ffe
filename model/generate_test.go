package model

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pulse/types"
)

func newTestMistralClient(baseURL string) *MistralClient {
	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = baseURL
	return &MistralClient{
		client:      openai.NewClientWithConfig(cfg),
		temperature: 0.2,
		timeout:     5 * time.Second,
	}
}

func completionServer(t *testing.T, content string, gotReq *openai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if gotReq != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(gotReq))
		}
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestGenerateReturnsAnswerAndPicksTierModel(t *testing.T) {
	var gotReq openai.ChatCompletionRequest
	srv := completionServer(t, "here is your answer", &gotReq)
	defer srv.Close()

	client := newTestMistralClient(srv.URL)
	answer, err := client.Generate(context.Background(), "what is on tonight?", "small")

	require.NoError(t, err)
	assert.Equal(t, "here is your answer", answer)
	assert.Equal(t, "mistral-small-latest", gotReq.Model)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "what is on tonight?", gotReq.Messages[0].Content)
	assert.InDelta(t, 0.2, gotReq.Temperature, 0.001)
}

func TestGenerateLargeTier(t *testing.T) {
	var gotReq openai.ChatCompletionRequest
	srv := completionServer(t, "answer", &gotReq)
	defer srv.Close()

	_, err := newTestMistralClient(srv.URL).Generate(context.Background(), "q", "large")

	require.NoError(t, err)
	assert.Equal(t, "mistral-large-latest", gotReq.Model)
}

func TestGenerateEmptyChoicesIsEmptyResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	answer, err := newTestMistralClient(srv.URL).Generate(context.Background(), "q", "small")

	assert.Empty(t, answer)
	var genErr *types.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, types.GenEmptyResponse, genErr.Kind)
}

func TestGenerateBlankContentIsEmptyResponse(t *testing.T) {
	srv := completionServer(t, "   \n\t", nil)
	defer srv.Close()

	answer, err := newTestMistralClient(srv.URL).Generate(context.Background(), "q", "small")

	assert.Empty(t, answer)
	var genErr *types.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, types.GenEmptyResponse, genErr.Kind)
}

func TestGenerateHTTPErrorIsBackendUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	answer, err := newTestMistralClient(srv.URL).Generate(context.Background(), "q", "small")

	assert.Empty(t, answer)
	var genErr *types.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, types.GenBackendUnavailable, genErr.Kind)
}

func TestGenerateUnreachableBackendIsBackendUnavailable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestMistralClient("http://127.0.0.1:1/v1").Generate(ctx, "q", "small")

	var genErr *types.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, types.GenBackendUnavailable, genErr.Kind)
}
