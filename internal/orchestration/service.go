// Package orchestration is the planning and execution core: it derives
// skill chains from task descriptions, persists plans, and drives the
// plan lifecycle state machine.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/powerskills-labs/powerskills-go/internal/domain"
	"github.com/powerskills-labs/powerskills-go/internal/gateway"
)

const estimatedSecondsPerStep = 30

var (
	ErrNotFound          = errors.New("plan not found")
	ErrAlreadyRunning    = errors.New("plan already running")
	ErrInvalidTransition = errors.New("invalid plan state transition")
	ErrNotOwner          = errors.New("plan not owned by caller")
)

type Service struct {
	gw               gateway.Gateway
	deriver          ChainDeriver
	executor         *Executor
	logger           *slog.Logger
	enforceOwnership bool
	now              func() time.Time
}

func NewService(gw gateway.Gateway, deriver ChainDeriver, executor *Executor, logger *slog.Logger, enforceOwnership bool) *Service {
	return &Service{
		gw:               gw,
		deriver:          deriver,
		executor:         executor,
		logger:           logger,
		enforceOwnership: enforceOwnership,
		now:              time.Now,
	}
}

// CreatePlan derives a skill chain for the task description, persists
// the plan, and returns it in pending_confirmation state.
func (s *Service) CreatePlan(ctx context.Context, userID, taskDescription string) (domain.Plan, error) {
	if strings.TrimSpace(taskDescription) == "" {
		return domain.Plan{}, errors.New("task description is required")
	}

	chain := s.deriver.Derive(taskDescription)
	plan := domain.Plan{
		PlanID:            domain.NewPlanID(),
		UserID:            userID,
		TaskDescription:   taskDescription,
		SkillChain:        chain,
		Status:            domain.PlanPendingConfirmation,
		EstimatedDuration: estimatedSecondsPerStep * len(chain),
		CreatedAt:         s.now().UTC(),
	}
	if err := plan.Validate(); err != nil {
		return domain.Plan{}, err
	}

	rec, err := gateway.EncodeRecord(plan)
	if err != nil {
		return domain.Plan{}, err
	}
	if err := s.gw.Insert(ctx, gateway.CollectionPlans, plan.PlanID, rec); err != nil {
		return domain.Plan{}, fmt.Errorf("insert plan: %w", err)
	}

	s.logger.Info("plan created",
		"plan_id", plan.PlanID,
		"user_id", userID,
		"steps", len(chain),
	)
	return plan, nil
}

func (s *Service) GetPlan(ctx context.Context, callerID, planID string) (domain.Plan, error) {
	plan, err := s.fetch(ctx, planID)
	if err != nil {
		return domain.Plan{}, err
	}
	if err := s.checkOwnership(callerID, plan); err != nil {
		return domain.Plan{}, err
	}
	return plan, nil
}

// ListPlans returns the caller's plans in insertion order with a true
// cross-page total.
func (s *Service) ListPlans(ctx context.Context, userID string, page, limit int) ([]domain.Plan, domain.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	filters := gateway.Filters{"user_id": userID}
	offset := (page - 1) * limit
	records, err := s.gw.Query(ctx, gateway.CollectionPlans, filters, offset, limit)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("list plans: %w", err)
	}
	total, err := s.gw.Count(ctx, gateway.CollectionPlans, filters)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("count plans: %w", err)
	}

	out := make([]domain.Plan, 0, len(records))
	for _, rec := range records {
		var plan domain.Plan
		if err := gateway.DecodeRecord(rec, &plan); err != nil {
			return nil, domain.Pagination{}, err
		}
		out = append(out, plan)
	}
	return out, domain.NewPagination(page, limit, total), nil
}

// ExecutePlan moves a plan to running, dispatches the background step
// loop, and returns the updated plan without waiting for completion.
func (s *Service) ExecutePlan(ctx context.Context, callerID, planID string) (domain.Plan, error) {
	plan, err := s.fetch(ctx, planID)
	if err != nil {
		return domain.Plan{}, err
	}
	if err := s.checkOwnership(callerID, plan); err != nil {
		return domain.Plan{}, err
	}

	if plan.Status == domain.PlanRunning {
		return domain.Plan{}, ErrAlreadyRunning
	}
	if !domain.CanTransitionPlanStatus(plan.Status, domain.PlanRunning) {
		return domain.Plan{}, fmt.Errorf("%w: %s -> running", ErrInvalidTransition, plan.Status)
	}

	executedAt := s.now().UTC()
	if err := s.gw.Update(ctx, gateway.CollectionPlans, planID, gateway.Record{
		"status":      string(domain.PlanRunning),
		"executed_at": executedAt.Format(time.RFC3339Nano),
	}); err != nil {
		return domain.Plan{}, fmt.Errorf("mark running: %w", err)
	}

	plan.Status = domain.PlanRunning
	plan.ExecutedAt = &executedAt
	s.executor.Start(plan)

	s.logger.Info("plan dispatched", "plan_id", planID, "user_id", plan.UserID)
	return plan, nil
}

// CancelPlan returns false when the plan is missing or already
// completed/failed. Cancelling an already cancelled plan succeeds
// again, matching the lifecycle contract.
func (s *Service) CancelPlan(ctx context.Context, callerID, planID string) (bool, error) {
	plan, err := s.fetch(ctx, planID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := s.checkOwnership(callerID, plan); err != nil {
		return false, err
	}

	if plan.Status == domain.PlanCompleted || plan.Status == domain.PlanFailed {
		return false, nil
	}

	if err := s.gw.Update(ctx, gateway.CollectionPlans, planID, gateway.Record{
		"status": string(domain.PlanCancelled),
	}); err != nil {
		return false, fmt.Errorf("mark cancelled: %w", err)
	}
	s.executor.Cancel(planID)

	s.logger.Info("plan cancelled", "plan_id", planID, "user_id", plan.UserID)
	return true, nil
}

func (s *Service) fetch(ctx context.Context, planID string) (domain.Plan, error) {
	rec, err := s.gw.Get(ctx, gateway.CollectionPlans, planID)
	if err != nil {
		if errors.Is(err, gateway.ErrNotFound) {
			return domain.Plan{}, ErrNotFound
		}
		return domain.Plan{}, fmt.Errorf("get plan: %w", err)
	}
	var plan domain.Plan
	if err := gateway.DecodeRecord(rec, &plan); err != nil {
		return domain.Plan{}, err
	}
	return plan, nil
}

func (s *Service) checkOwnership(callerID string, plan domain.Plan) error {
	if !s.enforceOwnership {
		return nil
	}
	if callerID != plan.UserID {
		return ErrNotOwner
	}
	return nil
}
