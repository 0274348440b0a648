package prompt

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"

	"github.com/neo/debateengine/internal/domain"
	"github.com/neo/debateengine/internal/enginerr"
)

// rawJudgeResponse mirrors the judge instructions' requested shape
// loosely enough to unmarshal partially-correct output: fields may be
// missing. A field of the wrong type fails the unmarshal, and the parse
// falls through to the repair and scraping stages.
type rawJudgeResponse struct {
	Summary      string             `json:"summary"`
	AgentScores  []rawAgentScore    `json:"agent_scores"`
	WinnerID     string             `json:"winner_id"`
	WinnerName   string             `json:"winner_name"`
	KeyArguments []string           `json:"key_arguments"`
}

type rawAgentScore struct {
	AgentID   string  `json:"agent_id"`
	AgentName string  `json:"agent_name"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

var jsonBlockPattern = regexp.MustCompile(`(?s)\{.*\}`)

// ParseJudgeResponse extracts the brace-delimited block of the judge's
// text (from the first '{' through the last '}') and salvages what it
// can. On complete success
// it yields a fully populated JudgeResult. On total failure (no
// parseable agent_scores by any stage of the cascade) it returns a
// JudgeUnparseable error.
func ParseJudgeResponse(raw string, debaters []domain.AgentConfig) (*domain.JudgeResult, error) {
	candidate := extractJSONBlock(raw)

	var parsed rawJudgeResponse
	ok := tryUnmarshal(candidate, &parsed)
	if !ok {
		if repaired, err := jsonrepair.RepairJSON(candidate); err == nil {
			ok = tryUnmarshal(repaired, &parsed)
		}
	}
	if !ok {
		parsed, ok = scrapeFields(raw)
	}
	if !ok || len(parsed.AgentScores) == 0 {
		return nil, enginerr.New(enginerr.JudgeUnparseable, "", "judge output contained no parseable agent_scores")
	}

	return salvage(parsed, debaters), nil
}

func extractJSONBlock(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.Trim(trimmed, "`")
	if m := jsonBlockPattern.FindString(trimmed); m != "" {
		return m
	}
	return trimmed
}

func tryUnmarshal(s string, out *rawJudgeResponse) bool {
	return json.Unmarshal([]byte(s), out) == nil
}

// scrapeFields is the last-resort fallback: regex-find agent_id/score
// pairs directly in free text when the response isn't valid JSON even
// after repair.
var scorePairPattern = regexp.MustCompile(`"?agent_id"?\s*[:=]\s*"?([\w\-]+)"?[^}]*?"?score"?\s*[:=]\s*([0-9]+(?:\.[0-9]+)?)`)

func scrapeFields(raw string) (rawJudgeResponse, bool) {
	matches := scorePairPattern.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return rawJudgeResponse{}, false
	}
	var parsed rawJudgeResponse
	for _, m := range matches {
		score, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		parsed.AgentScores = append(parsed.AgentScores, rawAgentScore{AgentID: m[1], Score: score})
	}
	return parsed, len(parsed.AgentScores) > 0
}

// salvage applies the spec's fixed partial-success rules: when
// agent_scores exists but winner_id/summary/key_arguments are missing
// or malformed, derive winner_id as the highest-scoring debater (ties
// broken by earliest agent_id in config order) and default the rest to
// empty.
func salvage(parsed rawJudgeResponse, debaters []domain.AgentConfig) *domain.JudgeResult {
	scores := make([]domain.AgentScore, 0, len(parsed.AgentScores))
	for _, s := range parsed.AgentScores {
		name := s.AgentName
		if name == "" {
			name = nameFor(debaters, s.AgentID)
		}
		scores = append(scores, domain.AgentScore{
			AgentID: s.AgentID, AgentName: name, Score: clamp(s.Score, 0, 10), Reasoning: s.Reasoning,
		})
	}

	winnerID, winnerName := parsed.WinnerID, parsed.WinnerName
	if winnerID == "" || !hasAgentID(scores, winnerID) {
		winnerID, winnerName = highestScoring(scores, debaters)
	}

	keyArgs := parsed.KeyArguments
	if keyArgs == nil {
		keyArgs = []string{}
	}

	return &domain.JudgeResult{
		Summary:      parsed.Summary,
		AgentScores:  scores,
		WinnerID:     winnerID,
		WinnerName:   winnerName,
		KeyArguments: keyArgs,
	}
}

func hasAgentID(scores []domain.AgentScore, id string) bool {
	for _, s := range scores {
		if s.AgentID == id {
			return true
		}
	}
	return false
}

// highestScoring picks the top score, ties broken by earliest agent_id
// in the debaters' configured order.
func highestScoring(scores []domain.AgentScore, debaters []domain.AgentConfig) (id, name string) {
	order := make(map[string]int, len(debaters))
	for i, d := range debaters {
		order[d.AgentID] = i
	}

	var best *domain.AgentScore
	bestRank := len(debaters) + 1
	for i := range scores {
		s := &scores[i]
		rank, known := order[s.AgentID]
		if !known {
			rank = len(debaters)
		}
		switch {
		case best == nil:
			best, bestRank = s, rank
		case s.Score > best.Score:
			best, bestRank = s, rank
		case s.Score == best.Score && rank < bestRank:
			best, bestRank = s, rank
		}
	}
	if best == nil {
		return "", ""
	}
	return best.AgentID, best.AgentName
}

func nameFor(debaters []domain.AgentConfig, agentID string) string {
	for _, d := range debaters {
		if d.AgentID == agentID {
			return d.Name
		}
	}
	return agentID
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
