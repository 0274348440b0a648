package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neo/debateengine/internal/domain"
	"github.com/neo/debateengine/internal/enginerr"
)

type fakeBackend struct {
	calls     int
	responses []fakeResponse
}

type fakeResponse struct {
	text string
	err  error
}

func (f *fakeBackend) Generate(ctx context.Context, binding domain.ModelBinding, systemPrompt string, messages []ChatMessage, temperature float64, maxTokens int) (string, error) {
	r := f.responses[f.calls]
	f.calls++
	return r.text, r.err
}

func testBinding() domain.ModelBinding {
	return domain.ModelBinding{Provider: "fake", Model: "test-model"}
}

func TestGenerateSucceedsFirstTry(t *testing.T) {
	backend := &fakeBackend{responses: []fakeResponse{{text: "hello"}}}
	gw := New()
	gw.Register("fake", backend)

	text, err := gw.Generate(context.Background(), testBinding(), "", nil, 0.7, 100)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
	assert.Equal(t, 1, backend.calls)
}

func TestGenerateRetriesTransientFailuresThenSucceeds(t *testing.T) {
	backend := &fakeBackend{responses: []fakeResponse{
		{err: enginerr.New(enginerr.UpstreamUnavailable, "fake/test-model", "429")},
		{err: enginerr.New(enginerr.UpstreamUnavailable, "fake/test-model", "429")},
		{text: "recovered"},
	}}
	gw := New()
	gw.Register("fake", backend)

	start := time.Now()
	text, err := gw.Generate(context.Background(), testBinding(), "", nil, 0.7, 100)
	require.NoError(t, err)
	assert.Equal(t, "recovered", text)
	assert.Equal(t, 3, backend.calls)
	assert.GreaterOrEqual(t, time.Since(start), 3*time.Second, "1s+2s backoff schedule before 3rd attempt")
}

func TestGenerateExhaustsRetriesAndSurfacesUpstreamUnavailable(t *testing.T) {
	failure := enginerr.New(enginerr.UpstreamUnavailable, "fake/test-model", "down")
	backend := &fakeBackend{responses: []fakeResponse{{err: failure}, {err: failure}, {err: failure}}}
	gw := New()
	gw.Register("fake", backend)

	_, err := gw.Generate(context.Background(), testBinding(), "", nil, 0.7, 100)
	assert.Equal(t, enginerr.UpstreamUnavailable, enginerr.Of(err))
	assert.Equal(t, 3, backend.calls)
}

func TestGenerateDoesNotRetryAuthFailures(t *testing.T) {
	backend := &fakeBackend{responses: []fakeResponse{
		{err: enginerr.New(enginerr.UpstreamAuth, "fake/test-model", "bad key")},
	}}
	gw := New()
	gw.Register("fake", backend)

	_, err := gw.Generate(context.Background(), testBinding(), "", nil, 0.7, 100)
	assert.Equal(t, enginerr.UpstreamAuth, enginerr.Of(err))
	assert.Equal(t, 1, backend.calls)
}

func TestGenerateUnregisteredProviderIsInvalidConfig(t *testing.T) {
	gw := New()
	_, err := gw.Generate(context.Background(), testBinding(), "", nil, 0.7, 100)
	assert.Equal(t, enginerr.InvalidConfig, enginerr.Of(err))
}

func TestGenerateHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	backend := &fakeBackend{responses: []fakeResponse{
		{err: enginerr.New(enginerr.UpstreamUnavailable, "fake/test-model", "down")},
	}}
	gw := New()
	gw.Register("fake", backend)

	_, err := gw.Generate(ctx, testBinding(), "", nil, 0.7, 100)
	assert.Equal(t, enginerr.Cancelled, enginerr.Of(err))
}
