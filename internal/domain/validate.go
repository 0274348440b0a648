package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New()

// Validate enforces spec-mandated creation-time rules: struct tags
// first, then the cross-field checks go-playground/validator tags
// cannot express on their own (unique agent_id, judge role, well-formed
// judge config).
func (c DebateConfig) Validate() error {
	if err := structValidator.Struct(c); err != nil {
		return fmt.Errorf("invalid debate config: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Agents))
	for _, a := range c.Agents {
		if _, dup := seen[a.AgentID]; dup {
			return fmt.Errorf("duplicate agent_id %q", a.AgentID)
		}
		seen[a.AgentID] = struct{}{}
		if a.Role != RoleDebater {
			return fmt.Errorf("agent %q: agents list must contain only debaters, got role %q", a.AgentID, a.Role)
		}
	}

	if c.JudgeConfig != nil {
		if err := structValidator.Struct(c.JudgeConfig); err != nil {
			return fmt.Errorf("invalid judge_config: %w", err)
		}
		if c.JudgeConfig.Role != RoleJudge {
			return fmt.Errorf("judge_config.role must be %q, got %q", RoleJudge, c.JudgeConfig.Role)
		}
		if _, dup := seen[c.JudgeConfig.AgentID]; dup {
			return fmt.Errorf("judge agent_id %q collides with a debater agent_id", c.JudgeConfig.AgentID)
		}
	}

	return nil
}
