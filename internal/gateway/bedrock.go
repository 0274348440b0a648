package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/neo/debateengine/internal/domain"
	"github.com/neo/debateengine/internal/enginerr"
)

// BedrockBackend dispatches to AWS Bedrock's InvokeModel API, request
// shape selected by the model-id family prefix (anthropic.claude,
// amazon.titan, meta.llama).
type BedrockBackend struct {
	client *bedrockruntime.Client
}

// NewBedrockBackend loads AWS credentials via the default chain for
// region.
func NewBedrockBackend(ctx context.Context, region string) (*BedrockBackend, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("bedrock backend: failed to load AWS config: %w", err)
	}
	return &BedrockBackend{client: bedrockruntime.NewFromConfig(cfg)}, nil
}

func (b *BedrockBackend) Generate(ctx context.Context, binding domain.ModelBinding, systemPrompt string, messages []ChatMessage, temperature float64, maxTokens int) (string, error) {
	providerModel := binding.Provider + "/" + binding.Model
	modelID := binding.Model

	var body []byte
	var err error
	switch {
	case strings.HasPrefix(modelID, "anthropic.claude"):
		body, err = buildClaudeRequest(systemPrompt, messages, temperature, maxTokens)
	case strings.HasPrefix(modelID, "amazon.titan"):
		body, err = buildTitanRequest(systemPrompt, messages, temperature, maxTokens)
	case strings.HasPrefix(modelID, "meta.llama"):
		body, err = buildLlamaRequest(systemPrompt, messages, temperature, maxTokens)
	default:
		return "", enginerr.New(enginerr.InvalidConfig, providerModel, "unsupported bedrock model family")
	}
	if err != nil {
		return "", enginerr.Wrap(enginerr.UpstreamMalformed, providerModel, err)
	}

	output, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return "", classifyBedrockError(providerModel, err)
	}

	switch {
	case strings.HasPrefix(modelID, "anthropic.claude"):
		return parseClaudeResponse(providerModel, output.Body)
	case strings.HasPrefix(modelID, "amazon.titan"):
		return parseTitanResponse(providerModel, output.Body)
	default:
		return parseLlamaResponse(providerModel, output.Body)
	}
}

func buildClaudeRequest(systemPrompt string, messages []ChatMessage, temperature float64, maxTokens int) ([]byte, error) {
	chatMessages := make([]map[string]string, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role == "assistant" {
			role = "assistant"
		}
		chatMessages = append(chatMessages, map[string]string{"role": role, "content": m.Content})
	}

	req := map[string]any{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        maxTokens,
		"messages":          chatMessages,
		"temperature":       temperature,
	}
	if systemPrompt != "" {
		req["system"] = systemPrompt
	}
	return json.Marshal(req)
}

func parseClaudeResponse(providerModel string, body []byte) (string, error) {
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", enginerr.Wrap(enginerr.UpstreamMalformed, providerModel, err)
	}
	var text strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	return text.String(), nil
}

func buildTitanRequest(systemPrompt string, messages []ChatMessage, temperature float64, maxTokens int) ([]byte, error) {
	var prompt strings.Builder
	if systemPrompt != "" {
		prompt.WriteString(systemPrompt)
		prompt.WriteString("\n\n")
	}
	for _, m := range messages {
		prompt.WriteString(m.Content)
		prompt.WriteString("\n")
	}
	prompt.WriteString("Assistant:")

	req := map[string]any{
		"inputText": prompt.String(),
		"textGenerationConfig": map[string]any{
			"maxTokenCount": maxTokens,
			"temperature":   temperature,
		},
	}
	return json.Marshal(req)
}

func parseTitanResponse(providerModel string, body []byte) (string, error) {
	var resp struct {
		Results []struct {
			OutputText string `json:"outputText"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", enginerr.Wrap(enginerr.UpstreamMalformed, providerModel, err)
	}
	if len(resp.Results) == 0 {
		return "", enginerr.New(enginerr.UpstreamMalformed, providerModel, "no results in Titan response")
	}
	return resp.Results[0].OutputText, nil
}

func buildLlamaRequest(systemPrompt string, messages []ChatMessage, temperature float64, maxTokens int) ([]byte, error) {
	var prompt strings.Builder
	if systemPrompt != "" {
		fmt.Fprintf(&prompt, "<s>[INST] <<SYS>>\n%s\n<</SYS>>\n\n", systemPrompt)
	} else {
		prompt.WriteString("<s>[INST] ")
	}
	for _, m := range messages {
		prompt.WriteString(m.Content)
	}
	prompt.WriteString(" [/INST]")

	req := map[string]any{
		"prompt":      prompt.String(),
		"max_gen_len": maxTokens,
		"temperature": temperature,
	}
	return json.Marshal(req)
}

func parseLlamaResponse(providerModel string, body []byte) (string, error) {
	var resp struct {
		Generation string `json:"generation"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", enginerr.Wrap(enginerr.UpstreamMalformed, providerModel, err)
	}
	return resp.Generation, nil
}

func classifyBedrockError(providerModel string, err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "ThrottlingException"), strings.Contains(msg, "TooManyRequestsException"),
		strings.Contains(msg, "ServiceUnavailableException"), strings.Contains(msg, "InternalServerException"):
		return enginerr.Wrap(enginerr.UpstreamUnavailable, providerModel, err)
	case strings.Contains(msg, "AccessDeniedException"), strings.Contains(msg, "UnauthorizedException"):
		return enginerr.Wrap(enginerr.UpstreamAuth, providerModel, err)
	case strings.Contains(msg, "ValidationException"):
		return enginerr.Wrap(enginerr.UpstreamMalformed, providerModel, err)
	default:
		return enginerr.Wrap(enginerr.UpstreamUnavailable, providerModel, err)
	}
}
