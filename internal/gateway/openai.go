package gateway

import (
	"context"
	"errors"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/neo/debateengine/internal/domain"
	"github.com/neo/debateengine/internal/enginerr"
)

// OpenAIBackend dispatches to the OpenAI chat completions API.
type OpenAIBackend struct {
	client *openai.Client
}

// NewOpenAIBackend wraps a go-openai client built from apiKey and
// pointed at OpenAI's default API URL. Generate does not read
// binding.Endpoint, so requests always go to that URL.
func NewOpenAIBackend(apiKey string) *OpenAIBackend {
	return &OpenAIBackend{client: openai.NewClient(apiKey)}
}

func (b *OpenAIBackend) Generate(ctx context.Context, binding domain.ModelBinding, systemPrompt string, messages []ChatMessage, temperature float64, maxTokens int) (string, error) {
	providerModel := binding.Provider + "/" + binding.Model

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: systemPrompt,
		})
	}
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := b.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       binding.Model,
		Messages:    chatMessages,
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", classifyOpenAIError(providerModel, err)
	}
	if len(resp.Choices) == 0 {
		return "", enginerr.New(enginerr.UpstreamMalformed, providerModel, "empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

func classifyOpenAIError(providerModel string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return enginerr.Wrap(enginerr.UpstreamAuth, providerModel, err)
		case http.StatusTooManyRequests:
			return enginerr.Wrap(enginerr.UpstreamUnavailable, providerModel, err)
		default:
			if apiErr.HTTPStatusCode >= 500 {
				return enginerr.Wrap(enginerr.UpstreamUnavailable, providerModel, err)
			}
			return enginerr.Wrap(enginerr.UpstreamMalformed, providerModel, err)
		}
	}
	// Connection errors, timeouts, etc. without a structured API error.
	return enginerr.Wrap(enginerr.UpstreamUnavailable, providerModel, err)
}
