// Package domain defines the debate engine's closed data model:
// configuration, messages, judge output, and the mutable debate record.
package domain

import "time"

// Role distinguishes a debater from the judge.
type Role string

const (
	RoleDebater Role = "debater"
	RoleJudge   Role = "judge"
)

// Status is a DebateState's lifecycle position.
type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// ModelBinding names how to reach a model: the provider tag, the model
// name within that provider, and optional credential/endpoint overrides.
type ModelBinding struct {
	Provider   string `json:"provider" validate:"required"`
	Model      string `json:"model" validate:"required"`
	APIKeyEnv  string `json:"api_key_env,omitempty"`
	Endpoint   string `json:"endpoint,omitempty"`
}

// AgentConfig describes one participant, debater or judge, immutable
// once its owning DebateConfig is created.
type AgentConfig struct {
	AgentID      string       `json:"agent_id" validate:"required"`
	Name         string       `json:"name" validate:"required"`
	Stance       string       `json:"stance"`
	Role         Role         `json:"role" validate:"required,oneof=debater judge"`
	SystemPrompt string       `json:"system_prompt"`
	Temperature  float64      `json:"temperature" validate:"gte=0,lte=2"`
	MaxTokens    int          `json:"max_tokens" validate:"gte=1"`
	Binding      ModelBinding `json:"model_binding" validate:"required"`
}

// DebateConfig is the immutable configuration a debate is created from.
type DebateConfig struct {
	Topic      string        `json:"topic" validate:"required"`
	NumRounds  int           `json:"num_rounds" validate:"gte=1"`
	Agents     []AgentConfig `json:"agents" validate:"required,min=2,dive"`
	JudgeConfig *AgentConfig `json:"judge_config,omitempty"`
}

// Message is one committed turn's contribution. History is append-only.
type Message struct {
	AgentID     string    `json:"agent_id"`
	AgentName   string    `json:"agent_name"`
	Stance      string    `json:"stance"`
	RoundNumber int       `json:"round_number"`
	TurnNumber  int       `json:"turn_number"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
}

// AgentScore is the judge's per-debater evaluation.
type AgentScore struct {
	AgentID   string  `json:"agent_id"`
	AgentName string  `json:"agent_name"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// JudgeResult is the outcome of the evaluation phase.
type JudgeResult struct {
	Summary      string       `json:"summary"`
	AgentScores  []AgentScore `json:"agent_scores"`
	WinnerID     string       `json:"winner_id"`
	WinnerName   string       `json:"winner_name"`
	KeyArguments []string     `json:"key_arguments"`
}

// DebateState is the mutable record the Store holds for one debate.
// Exactly one DebateManager execution owns write access while the
// debate is IN_PROGRESS; all other accessors see deep-copied snapshots.
type DebateState struct {
	DebateID     string       `json:"debate_id"`
	Config       DebateConfig `json:"config"`
	Status       Status       `json:"status"`
	CurrentRound int          `json:"current_round"`
	CurrentTurn  int          `json:"current_turn"`
	History      []Message    `json:"history"`
	JudgeResult  *JudgeResult `json:"judge_result,omitempty"`
	ErrorMessage string       `json:"error_message,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	StartedAt    *time.Time   `json:"started_at,omitempty"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

// Clone returns a deep copy safe to hand to a reader without
// synchronization.
func (d *DebateState) Clone() *DebateState {
	if d == nil {
		return nil
	}
	out := *d
	out.Config.Agents = append([]AgentConfig(nil), d.Config.Agents...)
	if d.Config.JudgeConfig != nil {
		jc := *d.Config.JudgeConfig
		out.Config.JudgeConfig = &jc
	}
	if d.History != nil {
		out.History = append(make([]Message, 0, len(d.History)), d.History...)
	}
	if d.JudgeResult != nil {
		jr := *d.JudgeResult
		if d.JudgeResult.AgentScores != nil {
			jr.AgentScores = append(make([]AgentScore, 0, len(d.JudgeResult.AgentScores)), d.JudgeResult.AgentScores...)
		}
		if d.JudgeResult.KeyArguments != nil {
			jr.KeyArguments = append(make([]string, 0, len(d.JudgeResult.KeyArguments)), d.JudgeResult.KeyArguments...)
		}
		out.JudgeResult = &jr
	}
	if d.StartedAt != nil {
		t := *d.StartedAt
		out.StartedAt = &t
	}
	if d.CompletedAt != nil {
		t := *d.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// Debaters returns the agents in configured order, excluding the judge.
func (c DebateConfig) Debaters() []AgentConfig {
	return c.Agents
}
