package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type PlanStatus string

const (
	PlanPendingConfirmation PlanStatus = "pending_confirmation"
	// PlanPending is accepted as an alias of the initial state. It is
	// never produced by a transition.
	PlanPending   PlanStatus = "pending"
	PlanRunning   PlanStatus = "running"
	PlanCompleted PlanStatus = "completed"
	PlanFailed    PlanStatus = "failed"
	PlanCancelled PlanStatus = "cancelled"
)

func NormalizePlanStatus(raw string) (PlanStatus, error) {
	switch PlanStatus(strings.ToLower(strings.TrimSpace(raw))) {
	case PlanPendingConfirmation:
		return PlanPendingConfirmation, nil
	case PlanPending:
		return PlanPending, nil
	case PlanRunning:
		return PlanRunning, nil
	case PlanCompleted:
		return PlanCompleted, nil
	case PlanFailed:
		return PlanFailed, nil
	case PlanCancelled:
		return PlanCancelled, nil
	default:
		return "", fmt.Errorf("unknown plan status: %q", raw)
	}
}

func (s PlanStatus) IsTerminal() bool {
	return s == PlanCompleted || s == PlanFailed || s == PlanCancelled
}

// CanTransitionPlanStatus enforces the plan state machine:
// pending_confirmation/pending -> running -> completed/failed, with
// cancelled reachable from any non-terminal state. Terminal states
// never move onward.
func CanTransitionPlanStatus(from, to PlanStatus) bool {
	if from.IsTerminal() {
		return false
	}
	switch to {
	case PlanRunning:
		return from == PlanPendingConfirmation || from == PlanPending
	case PlanCompleted, PlanFailed:
		return from == PlanRunning
	case PlanCancelled:
		return true
	default:
		return false
	}
}

// SkillChainStep is one entry of a plan's derived skill chain.
// DependsOn is declarative metadata only; the executor runs steps
// strictly in list order.
type SkillChainStep struct {
	Step         int            `json:"step"`
	SkillID      string         `json:"skill_id"`
	SkillName    string         `json:"skill_name"`
	Platform     string         `json:"platform"`
	Input        map[string]any `json:"input"`
	OutputFormat string         `json:"output_format"`
	DependsOn    []int          `json:"depends_on"`
}

type Plan struct {
	PlanID            string           `json:"plan_id"`
	UserID            string           `json:"user_id"`
	TaskDescription   string           `json:"task_description"`
	SkillChain        []SkillChainStep `json:"skill_chain"`
	Status            PlanStatus       `json:"status"`
	EstimatedDuration int              `json:"estimated_duration"`
	CreatedAt         time.Time        `json:"created_at"`
	ExecutedAt        *time.Time       `json:"executed_at"`
	Error             string           `json:"error,omitempty"`
}

func (p Plan) Validate() error {
	if strings.TrimSpace(p.PlanID) == "" {
		return errors.New("plan id is required")
	}
	if strings.TrimSpace(p.UserID) == "" {
		return errors.New("user id is required")
	}
	if strings.TrimSpace(p.TaskDescription) == "" {
		return errors.New("task description is required")
	}
	if len(p.SkillChain) == 0 {
		return errors.New("skill chain must have at least one step")
	}
	for i, step := range p.SkillChain {
		if step.Step != i+1 {
			return fmt.Errorf("step numbers must be contiguous from 1 (step %d has number %d)", i+1, step.Step)
		}
		if strings.TrimSpace(step.SkillID) == "" {
			return fmt.Errorf("step %d: skill id is required", step.Step)
		}
		for _, dep := range step.DependsOn {
			if dep < 1 || dep >= step.Step {
				return fmt.Errorf("step %d: depends_on %d must reference an earlier step", step.Step, dep)
			}
		}
	}
	if _, err := NormalizePlanStatus(string(p.Status)); err != nil {
		return err
	}
	return nil
}
