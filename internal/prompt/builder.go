// Package prompt builds deterministic prompts from debate metadata and
// history, and parses the judge's structured response. It performs no
// I/O.
package prompt

import (
	"fmt"
	"strings"

	"github.com/neo/debateengine/internal/domain"
)

// ChatMessage is the gateway's provider-agnostic message shape.
type ChatMessage struct {
	Role    string // "user" | "assistant"
	Content string
}

// DebaterSystemPrompt concatenates the agent's configured system prompt
// with the fixed structured context block: topic, stance, round
// progress, and style instructions. The block format is stable.
func DebaterSystemPrompt(agent domain.AgentConfig, topic string, currentRound, totalRounds int) string {
	var b strings.Builder
	if agent.SystemPrompt != "" {
		b.WriteString(agent.SystemPrompt)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Debate topic: %s\n", topic)
	fmt.Fprintf(&b, "Your stance: %s\n", agent.Stance)
	fmt.Fprintf(&b, "Round %d of %d.\n", currentRound, totalRounds)
	b.WriteString("Present clear arguments, address prior points made by other participants, " +
		"maintain your assigned persona, and be persuasive but respectful.")
	return b.String()
}

// HistoryContext renders the single user-role message carrying the
// topic header and the chronological transcript so far.
func HistoryContext(topic string, history []domain.Message) ChatMessage {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n\n", topic)
	if len(history) == 0 {
		b.WriteString("No arguments have been made yet. You are opening the debate.")
		return ChatMessage{Role: "user", Content: b.String()}
	}
	b.WriteString("Transcript so far:\n")
	for _, m := range history {
		fmt.Fprintf(&b, "[Round %d, Turn %d] %s (%s): %s\n", m.RoundNumber, m.TurnNumber, m.AgentName, m.Stance, m.Content)
	}
	return ChatMessage{Role: "user", Content: b.String()}
}

// judgeInstructions is the fixed instruction requesting strict
// structured output; the parser in judge_parser.go is built against
// exactly this shape.
const judgeInstructions = `You are judging a formal debate. Evaluate every debater and respond with
a single JSON object and nothing else, in this exact shape:

{
  "summary": "<one paragraph overview of the debate>",
  "agent_scores": [
    {"agent_id": "<id>", "agent_name": "<name>", "score": <0-10 float>, "reasoning": "<why>"}
  ],
  "winner_id": "<agent_id of the strongest debater>",
  "winner_name": "<name of the strongest debater>",
  "key_arguments": ["<notable argument>", "..."]
}

Score every debater on a scale of 0 to 10. Do not include any text outside the JSON object.`

// JudgePrompt builds the judge's system prompt and the full-transcript
// user message.
func JudgePrompt(topic string, debaters []domain.AgentConfig, history []domain.Message) (system string, user ChatMessage) {
	var participants strings.Builder
	for _, d := range debaters {
		fmt.Fprintf(&participants, "- %s (agent_id=%s, stance=%s)\n", d.Name, d.AgentID, d.Stance)
	}

	var transcript strings.Builder
	fmt.Fprintf(&transcript, "Topic: %s\n\nParticipants:\n%s\nTranscript:\n", topic, participants.String())
	for _, m := range history {
		fmt.Fprintf(&transcript, "[Round %d, Turn %d] %s (%s): %s\n", m.RoundNumber, m.TurnNumber, m.AgentName, m.Stance, m.Content)
	}

	return judgeInstructions, ChatMessage{Role: "user", Content: transcript.String()}
}
