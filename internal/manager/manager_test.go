package manager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/neo/debateengine/internal/broadcaster"
	"github.com/neo/debateengine/internal/domain"
	"github.com/neo/debateengine/internal/enginerr"
	"github.com/neo/debateengine/internal/gateway"
	"github.com/neo/debateengine/internal/store"
)

// sequencedBackend returns responses[i] on its i-th call, used to drive
// deterministic scripted scenarios against the real manager/executor.
type sequencedBackend struct {
	responses []scriptedResponse
	calls     int
}

type scriptedResponse struct {
	text string
	err  error
}

func (s *sequencedBackend) Generate(ctx context.Context, binding domain.ModelBinding, systemPrompt string, messages []gateway.ChatMessage, temperature float64, maxTokens int) (string, error) {
	r := s.responses[s.calls]
	s.calls++
	return r.text, r.err
}

func twoAgentJudgeConfig() domain.DebateConfig {
	return domain.DebateConfig{
		Topic:     "T",
		NumRounds: 2,
		Agents: []domain.AgentConfig{
			{AgentID: "A", Name: "A", Stance: "Pro", Role: domain.RoleDebater, MaxTokens: 100,
				Binding: domain.ModelBinding{Provider: "fake", Model: "m"}},
			{AgentID: "B", Name: "B", Stance: "Con", Role: domain.RoleDebater, MaxTokens: 100,
				Binding: domain.ModelBinding{Provider: "fake", Model: "m"}},
		},
		JudgeConfig: &domain.AgentConfig{AgentID: "J", Name: "Judge", Role: domain.RoleJudge, MaxTokens: 200,
			Binding: domain.ModelBinding{Provider: "fake", Model: "m"}},
	}
}

func newManagerFixture(backend gateway.Backend) (*Manager, store.Repository, *broadcaster.Broadcaster) {
	repo := store.New()
	bc := broadcaster.New()
	gw := gateway.New()
	gw.Register("fake", backend)
	return New(repo, bc, gw), repo, bc
}

func waitForTerminal(t *testing.T, repo store.Repository, id string) *domain.DebateState {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := repo.Get(id)
		require.NoError(t, err)
		if snap.Status == domain.StatusCompleted || snap.Status == domain.StatusFailed {
			return snap
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("debate did not reach a terminal state in time")
	return nil
}

// S1 — two-agent, two-round, judge completes.
func TestScenarioS1TwoAgentTwoRoundJudgeCompletes(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("time.Sleep"))

	judgeJSON := `{"summary":"close debate","agent_scores":[{"agent_id":"A","agent_name":"A","score":7.5,"reasoning":"strong"},{"agent_id":"B","agent_name":"B","score":6.0,"reasoning":"weaker"}],"winner_id":"A","winner_name":"A","key_arguments":["point 1"]}`

	backend := &sequencedBackend{responses: []scriptedResponse{
		{text: "t_A1"}, {text: "t_B1"}, {text: "t_A2"}, {text: "t_B2"}, {text: judgeJSON},
	}}
	mgr, repo, bc := newManagerFixture(backend)

	id, err := mgr.CreateDebate(twoAgentJudgeConfig())
	require.NoError(t, err)

	sub := bc.Subscribe(id, nil)
	require.NoError(t, mgr.Start(id))

	final := waitForTerminal(t, repo, id)
	assert.Equal(t, domain.StatusCompleted, final.Status)
	assert.Len(t, final.History, 4)
	assert.Equal(t, []int{1, 1, 2, 2}, []int{final.History[0].RoundNumber, final.History[1].RoundNumber, final.History[2].RoundNumber, final.History[3].RoundNumber})
	assert.Equal(t, []int{0, 1, 0, 1}, []int{final.History[0].TurnNumber, final.History[1].TurnNumber, final.History[2].TurnNumber, final.History[3].TurnNumber})
	assert.Equal(t, "A", final.JudgeResult.WinnerID)

	// The terminal status is committed before debate_complete is
	// published; the manager's MarkTerminal closes sub.Events after it.
	counts := map[broadcaster.EventType]int{}
	for e := range sub.Events {
		counts[e.Type]++
	}
	assert.Equal(t, 1, counts[broadcaster.EventDebateStarted])
	assert.Equal(t, 2, counts[broadcaster.EventRoundStarted])
	assert.Equal(t, 4, counts[broadcaster.EventAgentThinking])
	assert.Equal(t, 4, counts[broadcaster.EventMessageReceived])
	assert.Equal(t, 4, counts[broadcaster.EventTurnComplete])
	assert.Equal(t, 2, counts[broadcaster.EventRoundComplete])
	assert.Equal(t, 1, counts[broadcaster.EventJudgingStarted])
	assert.Equal(t, 1, counts[broadcaster.EventJudgeResult])
	assert.Equal(t, 1, counts[broadcaster.EventDebateComplete])
	assert.Equal(t, 0, counts[broadcaster.EventError])
}

// S2 — three-agent mixed ordering.
func TestScenarioS2ThreeAgentOrdering(t *testing.T) {
	cfg := domain.DebateConfig{
		Topic: "T", NumRounds: 1,
		Agents: []domain.AgentConfig{
			{AgentID: "X", Name: "X", Role: domain.RoleDebater, MaxTokens: 100, Binding: domain.ModelBinding{Provider: "fake", Model: "m"}},
			{AgentID: "Y", Name: "Y", Role: domain.RoleDebater, MaxTokens: 100, Binding: domain.ModelBinding{Provider: "fake", Model: "m"}},
			{AgentID: "Z", Name: "Z", Role: domain.RoleDebater, MaxTokens: 100, Binding: domain.ModelBinding{Provider: "fake", Model: "m"}},
		},
	}
	backend := &sequencedBackend{responses: []scriptedResponse{{text: "x"}, {text: "y"}, {text: "z"}}}
	mgr, repo, _ := newManagerFixture(backend)

	id, err := mgr.CreateDebate(cfg)
	require.NoError(t, err)
	require.NoError(t, mgr.Start(id))

	final := waitForTerminal(t, repo, id)
	require.Equal(t, domain.StatusCompleted, final.Status)
	require.Len(t, final.History, 3)
	assert.Equal(t, "X", final.History[0].AgentID)
	assert.Equal(t, "Y", final.History[1].AgentID)
	assert.Equal(t, "Z", final.History[2].AgentID)
	assert.Equal(t, 0, final.History[0].TurnNumber)
	assert.Equal(t, 1, final.History[1].TurnNumber)
	assert.Equal(t, 2, final.History[2].TurnNumber)
}

// S4 — permanent upstream failure on turn 2.
func TestScenarioS4PermanentFailureOnSecondTurn(t *testing.T) {
	permanentFailure := enginerr.New(enginerr.UpstreamUnavailable, "fake/m", "exhausted")
	backend := &sequencedBackend{responses: []scriptedResponse{
		{text: "t_A1"}, {err: permanentFailure}, {err: permanentFailure}, {err: permanentFailure},
	}}
	mgr, repo, bc := newManagerFixture(backend)

	cfg := twoAgentJudgeConfig()
	cfg.NumRounds = 2
	id, err := mgr.CreateDebate(cfg)
	require.NoError(t, err)

	sub := bc.Subscribe(id, nil)
	require.NoError(t, mgr.Start(id))

	final := waitForTerminal(t, repo, id)
	assert.Equal(t, domain.StatusFailed, final.Status)
	assert.NotEmpty(t, final.ErrorMessage)
	assert.Len(t, final.History, 1)
	assert.Nil(t, final.JudgeResult)

	// The FAILED status is committed before the error event is published;
	// the manager's MarkTerminal closes sub.Events after it.
	var lastType broadcaster.EventType
	for e := range sub.Events {
		lastType = e.Type
	}
	assert.Equal(t, broadcaster.EventError, lastType)
}

// S5 — judge partial-output salvage.
func TestScenarioS5JudgePartialSalvage(t *testing.T) {
	partialJSON := `{"agent_scores":[{"agent_id":"A","agent_name":"A","score":8.2},{"agent_id":"B","agent_name":"B","score":8.1}]}`
	backend := &sequencedBackend{responses: []scriptedResponse{
		{text: "t_A1"}, {text: "t_B1"}, {text: partialJSON},
	}}
	cfg := twoAgentJudgeConfig()
	cfg.NumRounds = 1
	mgr, repo, _ := newManagerFixture(backend)

	id, err := mgr.CreateDebate(cfg)
	require.NoError(t, err)
	require.NoError(t, mgr.Start(id))

	final := waitForTerminal(t, repo, id)
	require.Equal(t, domain.StatusCompleted, final.Status)
	require.NotNil(t, final.JudgeResult)
	assert.Equal(t, "A", final.JudgeResult.WinnerID)
	assert.Equal(t, "", final.JudgeResult.Summary)
	assert.Equal(t, []string{}, final.JudgeResult.KeyArguments)
}

// S6 — late subscriber on a terminal debate.
func TestScenarioS6LateSubscriberReceivesFullLog(t *testing.T) {
	judgeJSON := `{"summary":"s","agent_scores":[{"agent_id":"A","agent_name":"A","score":7},{"agent_id":"B","agent_name":"B","score":5}],"winner_id":"A","winner_name":"A","key_arguments":[]}`
	backend := &sequencedBackend{responses: []scriptedResponse{
		{text: "t_A1"}, {text: "t_B1"}, {text: judgeJSON},
	}}
	cfg := twoAgentJudgeConfig()
	cfg.NumRounds = 1
	mgr, repo, bc := newManagerFixture(backend)

	id, err := mgr.CreateDebate(cfg)
	require.NoError(t, err)
	require.NoError(t, mgr.Start(id))
	waitForTerminal(t, repo, id)

	snap, err := repo.Get(id)
	require.NoError(t, err)
	late := bc.Subscribe(id, snap)
	defer late.Unsubscribe()
	assert.Equal(t, domain.StatusCompleted, late.Snapshot.Status)
	require.NotNil(t, late.Snapshot.JudgeResult)

	// A late subscriber on an already-terminal debate must see
	// end-of-stream on its own, with no Unsubscribe needed to unblock it.
	count := 0
	for range late.Events {
		count++
	}
	assert.Greater(t, count, 0)
}

func TestStartTwiceSecondCallFails(t *testing.T) {
	backend := &sequencedBackend{responses: []scriptedResponse{{text: "a"}, {text: "b"}}}
	cfg := domain.DebateConfig{
		Topic: "T", NumRounds: 1,
		Agents: []domain.AgentConfig{
			{AgentID: "A", Name: "A", Role: domain.RoleDebater, MaxTokens: 100, Binding: domain.ModelBinding{Provider: "fake", Model: "m"}},
			{AgentID: "B", Name: "B", Role: domain.RoleDebater, MaxTokens: 100, Binding: domain.ModelBinding{Provider: "fake", Model: "m"}},
		},
	}
	mgr, repo, _ := newManagerFixture(backend)
	id, err := mgr.CreateDebate(cfg)
	require.NoError(t, err)

	require.NoError(t, mgr.Start(id))
	err = mgr.Start(id)
	assert.Equal(t, enginerr.InvalidTransition, enginerr.Of(err))

	waitForTerminal(t, repo, id)
}

func TestCreateDebateRejectsInvalidConfig(t *testing.T) {
	backend := &sequencedBackend{}
	mgr, _, _ := newManagerFixture(backend)

	_, err := mgr.CreateDebate(domain.DebateConfig{Topic: "T", NumRounds: 1})
	assert.Equal(t, enginerr.InvalidConfig, enginerr.Of(err))
}
