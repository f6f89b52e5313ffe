package model

import (
	"context"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"pulse/types"
)

// Generator produces an answer for a fully assembled prompt. The tier
// selects a quality/cost setting of the backing model.
type Generator interface {
	Generate(ctx context.Context, prompt string, tier string) (string, error)
}

const defaultMistralBaseURL = "https://api.mistral.ai/v1"

// MistralClient calls a Mistral chat endpoint through its
// OpenAI-compatible API. Two tiers are exposed: small and large.
type MistralClient struct {
	client      *openai.Client
	temperature float32
	timeout     time.Duration
}

func NewMistralClient() *MistralClient {
	cfg := openai.DefaultConfig(os.Getenv("MISTRAL_API_KEY"))
	cfg.BaseURL = defaultMistralBaseURL
	if base := os.Getenv("MISTRAL_BASE_URL"); base != "" {
		cfg.BaseURL = base
	}

	return &MistralClient{
		client:      openai.NewClientWithConfig(cfg),
		temperature: 0.2,
		timeout:     60 * time.Second,
	}
}

func modelForTier(tier string) string {
	if tier == "small" {
		return "mistral-small-latest"
	}
	return "mistral-large-latest"
}

func (m *MistralClient) Generate(ctx context.Context, prompt string, tier string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       modelForTier(tier),
		Temperature: m.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", types.NewGenerationError(types.GenBackendUnavailable, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", types.NewGenerationError(types.GenEmptyResponse, nil)
	}
	return resp.Choices[0].Message.Content, nil
}
