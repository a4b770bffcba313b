package titler

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

type GPTConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
}

// GPTTitler asks a chat model for a title and falls back to SimpleTitler
// whenever the model is unreachable or answers with nothing usable.
type GPTTitler struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
	fallback    *SimpleTitler
	logger      *zap.Logger
}

func NewGPTTitler(cfg GPTConfig, logger *zap.Logger) *GPTTitler {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &GPTTitler{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		fallback:    NewSimpleTitler(MaxTitleLength),
		logger:      logger,
	}
}

func (t *GPTTitler) SuggestTitle(ctx context.Context, content string) string {
	prompt := fmt.Sprintf(`Write a short title (at most %d characters) for the following note.
Reply with the title only, without quotes or punctuation at the end.

Note: %s`, MaxTitleLength, content)

	resp, err := t.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: t.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   t.maxTokens,
			Temperature: float32(t.temperature),
		},
	)
	if err != nil {
		t.logger.Warn("Failed to get title from GPT", zap.Error(err))
		return t.fallback.SuggestTitle(ctx, content)
	}
	if len(resp.Choices) == 0 {
		t.logger.Warn("GPT returned no choices")
		return t.fallback.SuggestTitle(ctx, content)
	}

	answer := strings.SplitN(strings.TrimSpace(resp.Choices[0].Message.Content), "\n", 2)[0]
	title := strings.TrimRight(clean(answer, MaxTitleLength), ".")
	if title == "" {
		return t.fallback.SuggestTitle(ctx, content)
	}
	return title
}
