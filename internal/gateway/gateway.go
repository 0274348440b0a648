// Package gateway is the debate engine's uniform text-generation
// primitive: a single Generate call dispatched to a provider backend,
// with retry/backoff and error normalization so callers never see raw
// provider errors.
package gateway

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/neo/debateengine/internal/domain"
	"github.com/neo/debateengine/internal/enginerr"
	"github.com/neo/debateengine/internal/telemetry"
)

// Backend is what a concrete provider implements. It returns the raw
// generated text or an *enginerr.Error already classified by kind; the
// Gateway decides, from that Kind, whether to retry.
type Backend interface {
	Generate(ctx context.Context, binding domain.ModelBinding, systemPrompt string, messages []ChatMessage, temperature float64, maxTokens int) (string, error)
}

// ChatMessage mirrors prompt.ChatMessage without importing the prompt
// package, keeping gateway a leaf with respect to prompt construction.
type ChatMessage struct {
	Role    string
	Content string
}

// maxAttempts and the backoff schedule are fixed by spec.md §4.1: 3
// attempts, waiting 1s before the second and 2s before the third.
const (
	maxAttempts  = 3
	initialDelay = 1 * time.Second
)

// Gateway dispatches generation requests to the backend registered for
// a binding's provider tag.
type Gateway struct {
	backends map[string]Backend
}

// New returns a Gateway with no backends registered; callers wire
// providers with Register.
func New() *Gateway {
	return &Gateway{backends: make(map[string]Backend)}
}

// Register associates a provider tag with a backend implementation.
func (g *Gateway) Register(provider string, backend Backend) {
	g.backends[provider] = backend
}

func newRetryPolicy(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = initialDelay
	eb.Multiplier = 2
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0 // bounded by WithMaxRetries instead of wall-clock

	withRetries := backoff.WithMaxRetries(eb, maxAttempts-1)
	return backoff.WithContext(withRetries, ctx)
}

// Generate retries transient failures up to 3 attempts with exponential
// backoff doubling from 1s, then surfaces a normalized enginerr.Error.
func (g *Gateway) Generate(ctx context.Context, binding domain.ModelBinding, systemPrompt string, messages []ChatMessage, temperature float64, maxTokens int) (string, error) {
	backend, ok := g.backends[binding.Provider]
	if !ok {
		return "", enginerr.New(enginerr.InvalidConfig, binding.Provider, "no gateway backend registered for provider")
	}

	providerModel := binding.Provider + "/" + binding.Model
	var result string

	operation := func() error {
		text, err := backend.Generate(ctx, binding, systemPrompt, messages, temperature, maxTokens)
		if err == nil {
			result = text
			return nil
		}

		if ctx.Err() != nil {
			return backoff.Permanent(enginerr.Wrap(enginerr.Cancelled, providerModel, ctx.Err()))
		}

		switch enginerr.Of(err) {
		case enginerr.UpstreamUnavailable:
			telemetry.LogGatewayEvent("transient_failure", binding.Provider, binding.Model, telemetry.Fields{"error": err.Error()})
			return err // retryable
		case enginerr.UpstreamAuth, enginerr.UpstreamMalformed, enginerr.Cancelled:
			return backoff.Permanent(err)
		default:
			return backoff.Permanent(enginerr.Wrap(enginerr.UpstreamUnavailable, providerModel, err))
		}
	}

	err := backoff.Retry(operation, newRetryPolicy(ctx))
	if err != nil {
		if ee, ok := err.(*enginerr.Error); ok {
			telemetry.LogGatewayEvent("generate_failed", binding.Provider, binding.Model, telemetry.Fields{"kind": ee.Kind})
			return "", ee
		}
		return "", enginerr.Wrap(enginerr.UpstreamUnavailable, providerModel, err)
	}

	telemetry.LogGatewayEvent("generate_succeeded", binding.Provider, binding.Model, nil)
	return result, nil
}
