// Package turn executes a single debater's contribution as one logical
// unit: prompt build, gateway call, history commit, event emission.
package turn

import (
	"context"
	"time"

	"github.com/neo/debateengine/internal/broadcaster"
	"github.com/neo/debateengine/internal/domain"
	"github.com/neo/debateengine/internal/enginerr"
	"github.com/neo/debateengine/internal/gateway"
	"github.com/neo/debateengine/internal/prompt"
	"github.com/neo/debateengine/internal/store"
	"github.com/neo/debateengine/internal/telemetry"
)

// Executor runs turns against a Gateway, committing results through a
// Repository and announcing progress through a Broadcaster.
type Executor struct {
	gateway     *gateway.Gateway
	repo        store.Repository
	broadcaster *broadcaster.Broadcaster
}

// New builds an Executor wired to the engine's shared components.
func New(gw *gateway.Gateway, repo store.Repository, bc *broadcaster.Broadcaster) *Executor {
	return &Executor{gateway: gw, repo: repo, broadcaster: bc}
}

// Run executes one turn for agent at (roundNumber, turnNumber). On
// success it returns the committed Message. On Cancelled it propagates
// without committing. On any other gateway failure it returns a
// TurnFailed error without emitting message_received.
func (e *Executor) Run(ctx context.Context, debateID string, agent domain.AgentConfig, roundNumber, turnNumber int) (*domain.Message, error) {
	e.broadcaster.Publish(debateID, broadcaster.EventAgentThinking, map[string]any{
		"agent_id": agent.AgentID, "agent_name": agent.Name,
		"round_number": roundNumber, "turn_number": turnNumber,
	})

	snapshot, err := e.repo.Get(debateID)
	if err != nil {
		return nil, err
	}

	systemPrompt := prompt.DebaterSystemPrompt(agent, snapshot.Config.Topic, roundNumber, snapshot.Config.NumRounds)
	historyMsg := prompt.HistoryContext(snapshot.Config.Topic, snapshot.History)

	text, err := e.gateway.Generate(ctx, agent.Binding, systemPrompt,
		[]gateway.ChatMessage{{Role: historyMsg.Role, Content: historyMsg.Content}},
		agent.Temperature, agent.MaxTokens)
	if err != nil {
		if enginerr.Of(err) == enginerr.Cancelled {
			return nil, err
		}
		telemetry.LogTurnEvent("turn_failed", debateID, agent.AgentID, roundNumber, turnNumber, telemetry.Fields{"error": err.Error()})
		return nil, &TurnFailed{Cause: err}
	}

	message := domain.Message{
		AgentID: agent.AgentID, AgentName: agent.Name, Stance: agent.Stance,
		RoundNumber: roundNumber, TurnNumber: turnNumber, Content: text,
		Timestamp: time.Now().UTC(),
	}

	updated, err := e.repo.Update(debateID, func(d *domain.DebateState) error {
		d.History = append(d.History, message)
		d.CurrentRound = roundNumber
		d.CurrentTurn = turnNumber
		return nil
	})
	if err != nil {
		return nil, err
	}
	committed := updated.History[len(updated.History)-1]

	e.broadcaster.Publish(debateID, broadcaster.EventMessageReceived, committed)
	e.broadcaster.Publish(debateID, broadcaster.EventTurnComplete, map[string]int{
		"round_number": roundNumber, "turn_number": turnNumber,
	})
	telemetry.LogTurnEvent("turn_complete", debateID, agent.AgentID, roundNumber, turnNumber, nil)

	return &committed, nil
}

// TurnFailed wraps a non-cancellation gateway failure for the manager
// to classify into a terminal FAILED transition.
type TurnFailed struct {
	Cause error
}

func (t *TurnFailed) Error() string { return "turn failed: " + t.Cause.Error() }
func (t *TurnFailed) Unwrap() error { return t.Cause }
