package gateway

import (
	"context"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"

	"github.com/neo/debateengine/internal/domain"
	"github.com/neo/debateengine/internal/enginerr"
)

// AnthropicBackend dispatches through langchaingo's unified llms.Model
// interface, the same abstraction the teacher uses for its single
// OpenAI-backed agent, generalized here to a second provider.
type AnthropicBackend struct {
	apiKey string
}

// NewAnthropicBackend defers client construction to Generate so a
// missing apiKey surfaces as UpstreamAuth rather than a constructor
// panic at startup.
func NewAnthropicBackend(apiKey string) *AnthropicBackend {
	return &AnthropicBackend{apiKey: apiKey}
}

func (b *AnthropicBackend) Generate(ctx context.Context, binding domain.ModelBinding, systemPrompt string, messages []ChatMessage, temperature float64, maxTokens int) (string, error) {
	providerModel := binding.Provider + "/" + binding.Model

	if b.apiKey == "" {
		return "", enginerr.New(enginerr.UpstreamAuth, providerModel, "missing Anthropic API key")
	}

	model, err := anthropic.New(anthropic.WithToken(b.apiKey), anthropic.WithModel(binding.Model))
	if err != nil {
		return "", enginerr.Wrap(enginerr.UpstreamUnavailable, providerModel, err)
	}

	prompt := combinePrompt(systemPrompt, messages)
	text, err := llms.GenerateFromSinglePrompt(ctx, model, prompt,
		llms.WithTemperature(temperature), llms.WithMaxTokens(maxTokens))
	if err != nil {
		return "", classifyLangchainError(providerModel, err)
	}
	return text, nil
}

func combinePrompt(systemPrompt string, messages []ChatMessage) string {
	var b strings.Builder
	if systemPrompt != "" {
		b.WriteString(systemPrompt)
		b.WriteString("\n\n")
	}
	for _, m := range messages {
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func classifyLangchainError(providerModel string, err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "401") || strings.Contains(msg, "api key"):
		return enginerr.Wrap(enginerr.UpstreamAuth, providerModel, err)
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return enginerr.Wrap(enginerr.UpstreamUnavailable, providerModel, err)
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "connection"):
		return enginerr.Wrap(enginerr.UpstreamUnavailable, providerModel, err)
	default:
		return enginerr.Wrap(enginerr.UpstreamMalformed, providerModel, err)
	}
}
