// Package manager implements the debate engine's state machine: config
// validation, lifecycle transitions, the execution goroutine, failure
// handling, and cancellation. It is the sole writer to a debate record
// while that debate is IN_PROGRESS.
package manager

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/neo/debateengine/internal/broadcaster"
	"github.com/neo/debateengine/internal/domain"
	"github.com/neo/debateengine/internal/enginerr"
	"github.com/neo/debateengine/internal/gateway"
	"github.com/neo/debateengine/internal/prompt"
	"github.com/neo/debateengine/internal/store"
	"github.com/neo/debateengine/internal/telemetry"
	"github.com/neo/debateengine/internal/turn"
)

// interTurnDelay smooths provider rate limits between debater turns.
// Fixed per spec; not presently wired to configuration (see DESIGN.md
// Open Question decisions).
const interTurnDelay = 1 * time.Second

// Manager drives debates from CREATED through a terminal status.
type Manager struct {
	repo        store.Repository
	broadcaster *broadcaster.Broadcaster
	executor    *turn.Executor
	gateway     *gateway.Gateway

	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// New wires a Manager to the engine's shared components.
func New(repo store.Repository, bc *broadcaster.Broadcaster, gw *gateway.Gateway) *Manager {
	return &Manager{
		repo:        repo,
		broadcaster: bc,
		executor:    turn.New(gw, repo, bc),
		gateway:     gw,
		active:      make(map[string]context.CancelFunc),
	}
}

// CreateDebate validates config and persists a CREATED record.
func (m *Manager) CreateDebate(config domain.DebateConfig) (string, error) {
	if err := config.Validate(); err != nil {
		return "", enginerr.Wrap(enginerr.InvalidConfig, "", err)
	}
	id, err := m.repo.Create(config)
	if err != nil {
		return "", err
	}
	telemetry.LogDebateEvent("debate_created", id, telemetry.Fields{"topic": config.Topic})
	return id, nil
}

// Start transitions id from CREATED to IN_PROGRESS and spawns the
// background execution task. It returns once the transition is
// committed; it does not wait for execution to finish.
func (m *Manager) Start(id string) error {
	m.mu.Lock()
	if _, running := m.active[id]; running {
		m.mu.Unlock()
		return enginerr.New(enginerr.InvalidTransition, id, "debate already has an active task")
	}

	snapshot, err := m.repo.Get(id)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if snapshot.Status != domain.StatusCreated {
		m.mu.Unlock()
		return enginerr.New(enginerr.InvalidTransition, id, "start requires status CREATED, got "+string(snapshot.Status))
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.active[id] = cancel
	m.mu.Unlock()

	now := time.Now().UTC()
	_, err = m.repo.Update(id, func(d *domain.DebateState) error {
		if d.Status != domain.StatusCreated {
			return enginerr.New(enginerr.InvalidTransition, id, "start requires status CREATED, got "+string(d.Status))
		}
		d.Status = domain.StatusInProgress
		d.StartedAt = &now
		return nil
	})
	if err != nil {
		m.mu.Lock()
		delete(m.active, id)
		m.mu.Unlock()
		cancel()
		return err
	}

	go m.run(ctx, id)
	return nil
}

// Cancel stops id's background task at its next suspension point and
// removes the debate record. Cancelling a debate with no active task
// only removes the record.
func (m *Manager) Cancel(id string) error {
	m.mu.Lock()
	cancel, running := m.active[id]
	m.mu.Unlock()
	if running {
		cancel()
	}
	return m.repo.Delete(id)
}

func (m *Manager) finishTask(id string) {
	m.mu.Lock()
	delete(m.active, id)
	m.mu.Unlock()
}

// run is the debate's background execution task: spec.md §4.6's
// execution algorithm, steps 1-4, with panic isolation so a defect in
// prompt/gateway code fails the debate instead of crashing the process.
func (m *Manager) run(ctx context.Context, id string) {
	defer m.finishTask(id)
	defer func() {
		if r := recover(); r != nil {
			m.fail(id, enginerr.New(enginerr.UpstreamUnavailable, id, "recovered from panic during execution"))
		}
	}()

	snapshot, err := m.repo.Get(id)
	if err != nil {
		return
	}
	config := snapshot.Config

	m.broadcaster.Publish(id, broadcaster.EventDebateStarted, map[string]any{
		"topic": config.Topic, "num_rounds": config.NumRounds, "num_agents": len(config.Agents),
	})
	telemetry.LogDebateEvent("debate_started", id, nil)

	for round := 1; round <= config.NumRounds; round++ {
		if ctx.Err() != nil {
			return
		}
		m.broadcaster.Publish(id, broadcaster.EventRoundStarted, map[string]int{
			"round_number": round, "total_rounds": config.NumRounds,
		})

		for turnNumber, agent := range config.Agents {
			if ctx.Err() != nil {
				return
			}

			_, err := m.executor.Run(ctx, id, agent, round, turnNumber)
			if err != nil {
				if enginerr.Of(err) == enginerr.Cancelled {
					return
				}
				m.fail(id, classifyTurnError(id, err))
				return
			}

			if !(round == config.NumRounds && turnNumber == len(config.Agents)-1) {
				select {
				case <-ctx.Done():
					return
				case <-time.After(interTurnDelay):
				}
			}
		}

		m.broadcaster.Publish(id, broadcaster.EventRoundComplete, map[string]int{"round_number": round})
	}

	if config.JudgeConfig != nil {
		if ctx.Err() != nil {
			return
		}
		if !m.runJudge(ctx, id, config) {
			return
		}
	}

	m.complete(id)
}

func classifyTurnError(id string, err error) *enginerr.Error {
	var ee *enginerr.Error
	if errors.As(err, &ee) {
		return ee
	}
	return enginerr.Wrap(enginerr.UpstreamUnavailable, id, err)
}

// runJudge executes the evaluation phase. It returns false if the
// debate was failed or cancelled and the caller should stop.
func (m *Manager) runJudge(ctx context.Context, id string, config domain.DebateConfig) bool {
	snapshot, err := m.repo.Get(id)
	if err != nil {
		m.fail(id, classifyTurnError(id, err))
		return false
	}

	m.broadcaster.Publish(id, broadcaster.EventJudgingStarted, map[string]int{"message_count": len(snapshot.History)})
	telemetry.LogJudgeEvent("judging_started", id, nil)

	systemPrompt, userMsg := prompt.JudgePrompt(config.Topic, config.Agents, snapshot.History)
	text, err := m.gateway.Generate(ctx, config.JudgeConfig.Binding, systemPrompt,
		[]gateway.ChatMessage{{Role: userMsg.Role, Content: userMsg.Content}},
		config.JudgeConfig.Temperature, config.JudgeConfig.MaxTokens)
	if err != nil {
		if enginerr.Of(err) == enginerr.Cancelled {
			return false
		}
		m.fail(id, classifyTurnError(id, err))
		return false
	}

	result, err := prompt.ParseJudgeResponse(text, config.Agents)
	if err != nil {
		m.fail(id, classifyTurnError(id, err))
		return false
	}

	if _, err := m.repo.Update(id, func(d *domain.DebateState) error {
		d.JudgeResult = result
		return nil
	}); err != nil {
		m.fail(id, classifyTurnError(id, err))
		return false
	}

	m.broadcaster.Publish(id, broadcaster.EventJudgeResult, result)
	telemetry.LogJudgeEvent("judge_result", id, telemetry.Fields{"winner_id": result.WinnerID})
	return true
}

func (m *Manager) complete(id string) {
	now := time.Now().UTC()
	snapshot, err := m.repo.Update(id, func(d *domain.DebateState) error {
		d.Status = domain.StatusCompleted
		d.CompletedAt = &now
		return nil
	})
	if err != nil {
		return
	}

	winnerID, winnerName := "", ""
	if snapshot.JudgeResult != nil {
		winnerID, winnerName = snapshot.JudgeResult.WinnerID, snapshot.JudgeResult.WinnerName
	}
	m.broadcaster.Publish(id, broadcaster.EventDebateComplete, map[string]any{
		"winner_id": winnerID, "winner_name": winnerName, "total_messages": len(snapshot.History),
	})
	m.broadcaster.MarkTerminal(id)
	telemetry.LogDebateEvent("debate_complete", id, nil)
}

func (m *Manager) fail(id string, cause *enginerr.Error) {
	_, err := m.repo.Update(id, func(d *domain.DebateState) error {
		d.Status = domain.StatusFailed
		d.ErrorMessage = cause.Error()
		return nil
	})
	if err != nil {
		return
	}
	m.broadcaster.Publish(id, broadcaster.EventError, map[string]string{
		"error_kind": string(cause.Kind), "error_message": cause.Error(),
	})
	m.broadcaster.MarkTerminal(id)
	telemetry.LogDebateEvent("debate_failed", id, telemetry.Fields{"kind": cause.Kind})
}
