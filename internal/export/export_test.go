package export

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neo/debateengine/internal/domain"
	"github.com/neo/debateengine/internal/enginerr"
)

func sampleState() *domain.DebateState {
	return &domain.DebateState{
		DebateID: "d1",
		Config: domain.DebateConfig{
			Topic: "Remote work beats the office", NumRounds: 1,
			Agents: []domain.AgentConfig{
				{AgentID: "a1", Name: "Ada", Stance: "Pro", Binding: domain.ModelBinding{Provider: "openai", Model: "gpt-4"}},
				{AgentID: "a2", Name: "Bryan", Stance: "Con", Binding: domain.ModelBinding{Provider: "openai", Model: "gpt-4"}},
			},
		},
		Status:    domain.StatusCompleted,
		CreatedAt: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		History: []domain.Message{
			{AgentID: "a1", AgentName: "Ada", Stance: "Pro", RoundNumber: 1, TurnNumber: 0, Content: "Remote work wins."},
			{AgentID: "a2", AgentName: "Bryan", Stance: "Con", RoundNumber: 1, TurnNumber: 1, Content: "The office wins."},
		},
		JudgeResult: &domain.JudgeResult{
			Summary: "Close debate.", WinnerID: "a1", WinnerName: "Ada",
			AgentScores:  []domain.AgentScore{{AgentID: "a1", AgentName: "Ada", Score: 7.5, Reasoning: "clear"}},
			KeyArguments: []string{"flexibility"},
		},
	}
}

func TestExportJSONRoundTrips(t *testing.T) {
	data, err := Export(sampleState(), FormatJSON)
	require.NoError(t, err)

	var decoded domain.DebateState
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "d1", decoded.DebateID)
	assert.Equal(t, "Ada", decoded.JudgeResult.WinnerName)
}

func TestExportMarkdownContainsKeySections(t *testing.T) {
	data, err := Export(sampleState(), FormatMarkdown)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "# Remote work beats the office")
	assert.Contains(t, out, "## Participants")
	assert.Contains(t, out, "Ada (Pro) — openai/gpt-4")
	assert.Contains(t, out, "## Judge's Verdict")
}

func TestExportTextIsUnformattedButComplete(t *testing.T) {
	data, err := Export(sampleState(), FormatText)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "REMOTE WORK BEATS THE OFFICE")
	assert.Contains(t, out, "Ada (Pro) — openai/gpt-4")
	assert.NotContains(t, out, "##")
}

func TestExportUnsupportedFormat(t *testing.T) {
	_, err := Export(sampleState(), Format("xml"))
	assert.Equal(t, enginerr.UnsupportedFormat, enginerr.Of(err))
}
