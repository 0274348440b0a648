package gateway

import (
	"context"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"

	"github.com/neo/debateengine/internal/domain"
	"github.com/neo/debateengine/internal/enginerr"
)

// OllamaBackend dispatches to a local Ollama server. Unlike the cloud
// backends, it requires no API key — binding.Endpoint selects the
// server, defaulting to Ollama's standard localhost port.
type OllamaBackend struct {
	defaultEndpoint string
}

// NewOllamaBackend accepts the default server URL used when a binding
// doesn't override Endpoint.
func NewOllamaBackend(defaultEndpoint string) *OllamaBackend {
	if defaultEndpoint == "" {
		defaultEndpoint = "http://localhost:11434"
	}
	return &OllamaBackend{defaultEndpoint: defaultEndpoint}
}

func (b *OllamaBackend) Generate(ctx context.Context, binding domain.ModelBinding, systemPrompt string, messages []ChatMessage, temperature float64, maxTokens int) (string, error) {
	providerModel := binding.Provider + "/" + binding.Model

	endpoint := binding.Endpoint
	if endpoint == "" {
		endpoint = b.defaultEndpoint
	}

	model, err := ollama.New(ollama.WithModel(binding.Model), ollama.WithServerURL(endpoint))
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
