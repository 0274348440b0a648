// Package export renders a DebateState snapshot to one of the formats
// spec.md §6 defines: json, markdown, text. It is pure and
// side-effect-free, operating only on a Store snapshot.
package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/neo/debateengine/internal/domain"
	"github.com/neo/debateengine/internal/enginerr"
)

// Format is one of the engine's supported export formats.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// Export renders state per format, or UnsupportedFormat for anything
// else.
func Export(state *domain.DebateState, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return exportJSON(state)
	case FormatMarkdown:
		return []byte(render(state, markdownStyle)), nil
	case FormatText:
		return []byte(render(state, textStyle)), nil
	default:
		return nil, enginerr.New(enginerr.UnsupportedFormat, string(format), "unknown export format")
	}
}

func exportJSON(state *domain.DebateState) ([]byte, error) {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, enginerr.Wrap(enginerr.UnsupportedFormat, "json", err)
	}
	return data, nil
}

// style carries the handful of characters that differ between markdown
// and plain text rendering, so the two share one writer.
type style struct {
	title      func(s string) string
	heading    func(s string) string
	separator  string
}

var markdownStyle = style{
	title:     func(s string) string { return "# " + s },
	heading:   func(s string) string { return "## " + s },
	separator: "---",
}

var textStyle = style{
	title:     func(s string) string { return strings.ToUpper(s) },
	heading:   func(s string) string { return s },
	separator: strings.Repeat("-", 40),
}

func render(state *domain.DebateState, s style) string {
	var b strings.Builder

	b.WriteString(s.title(state.Config.Topic))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Status: %s\n", state.Status)
	fmt.Fprintf(&b, "Rounds: %d\n", state.Config.NumRounds)
	fmt.Fprintf(&b, "Created: %s\n", state.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	b.WriteString(s.separator + "\n\n")

	b.WriteString(s.heading("Participants"))
	b.WriteString("\n")
	for _, a := range state.Config.Agents {
		fmt.Fprintf(&b, "- %s (%s) — %s/%s\n", a.Name, a.Stance, a.Binding.Provider, a.Binding.Model)
	}
	b.WriteString("\n")

	b.WriteString(s.heading("Transcript"))
	b.WriteString("\n")
	round := 0
	for _, m := range state.History {
		if m.RoundNumber != round {
			round = m.RoundNumber
			fmt.Fprintf(&b, "\n%s\n", s.heading(fmt.Sprintf("Round %d", round)))
		}
		fmt.Fprintf(&b, "\n%s (%s):\n%s\n", m.AgentName, m.Stance, m.Content)
	}
	b.WriteString("\n" + s.separator + "\n\n")

	if state.JudgeResult != nil {
		jr := state.JudgeResult
		b.WriteString(s.heading("Judge's Verdict"))
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "Winner: %s\n\n", jr.WinnerName)
		fmt.Fprintf(&b, "%s\n\n", jr.Summary)
		for _, score := range jr.AgentScores {
			fmt.Fprintf(&b, "- %s: %.1f/10 — %s\n", score.AgentName, score.Score, score.Reasoning)
		}
		if len(jr.KeyArguments) > 0 {
			b.WriteString("\nKey arguments:\n")
			for _, arg := range jr.KeyArguments {
				fmt.Fprintf(&b, "- %s\n", arg)
			}
		}
	}

	if state.Status == domain.StatusFailed {
		fmt.Fprintf(&b, "%s\n\n%s\n", s.heading("Failure"), state.ErrorMessage)
	}

	return b.String()
}
