package turn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neo/debateengine/internal/broadcaster"
	"github.com/neo/debateengine/internal/domain"
	"github.com/neo/debateengine/internal/enginerr"
	"github.com/neo/debateengine/internal/gateway"
	"github.com/neo/debateengine/internal/store"
)

type stubBackend struct {
	text string
	err  error
}

func (s *stubBackend) Generate(ctx context.Context, binding domain.ModelBinding, systemPrompt string, messages []gateway.ChatMessage, temperature float64, maxTokens int) (string, error) {
	return s.text, s.err
}

func newFixture(t *testing.T, backend gateway.Backend) (*Executor, *store.Store, string) {
	t.Helper()
	repo := store.New()
	bc := broadcaster.New()
	gw := gateway.New()
	gw.Register("fake", backend)

	cfg := domain.DebateConfig{
		Topic:     "T",
		NumRounds: 1,
		Agents: []domain.AgentConfig{
			{AgentID: "a1", Name: "Ada", Role: domain.RoleDebater, MaxTokens: 100,
				Binding: domain.ModelBinding{Provider: "fake", Model: "m"}},
		},
	}
	id, err := repo.Create(cfg)
	require.NoError(t, err)

	return New(gw, repo, bc), repo, id
}

func TestRunCommitsMessageOnSuccess(t *testing.T) {
	exec, repo, debateID := newFixture(t, &stubBackend{text: "remote work wins"})
	agent := domain.AgentConfig{AgentID: "a1", Name: "Ada", Stance: "Pro", MaxTokens: 100}

	msg, err := exec.Run(context.Background(), debateID, agent, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, "remote work wins", msg.Content)
	assert.Equal(t, 1, msg.RoundNumber)
	assert.Equal(t, 0, msg.TurnNumber)

	snap, _ := repo.Get(debateID)
	assert.Len(t, snap.History, 1)
}

func TestRunReturnsTurnFailedWithoutCommitOnGatewayError(t *testing.T) {
	exec, repo, debateID := newFixture(t, &stubBackend{err: enginerr.New(enginerr.UpstreamUnavailable, "fake/m", "down")})
	agent := domain.AgentConfig{AgentID: "a1", Name: "Ada", MaxTokens: 100}

	_, err := exec.Run(context.Background(), debateID, agent, 1, 0)
	var tf *TurnFailed
	require.ErrorAs(t, err, &tf)

	snap, _ := repo.Get(debateID)
	assert.Empty(t, snap.History)
}

func TestRunPropagatesCancellationWithoutCommit(t *testing.T) {
	exec, repo, debateID := newFixture(t, &stubBackend{err: enginerr.New(enginerr.Cancelled, "fake/m", "cancelled")})
	agent := domain.AgentConfig{AgentID: "a1", Name: "Ada", MaxTokens: 100}

	_, err := exec.Run(context.Background(), debateID, agent, 1, 0)
	assert.Equal(t, enginerr.Cancelled, enginerr.Of(err))

	snap, _ := repo.Get(debateID)
	assert.Empty(t, snap.History)
}

func TestRunEmitsThinkingMessageAndTurnCompleteEvents(t *testing.T) {
	exec, _, debateID := newFixture(t, &stubBackend{text: "hi"})
	sub := exec.broadcaster.Subscribe(debateID, nil)
	agent := domain.AgentConfig{AgentID: "a1", Name: "Ada", MaxTokens: 100}

	_, err := exec.Run(context.Background(), debateID, agent, 1, 0)
	require.NoError(t, err)

	types := []broadcaster.EventType{}
	for i := 0; i < 3; i++ {
		e := <-sub.Events
		types = append(types, e.Type)
	}
	assert.Equal(t, []broadcaster.EventType{
		broadcaster.EventAgentThinking, broadcaster.EventMessageReceived, broadcaster.EventTurnComplete,
	}, types)
}
