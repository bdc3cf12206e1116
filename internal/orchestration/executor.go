package orchestration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/powerskills-labs/powerskills-go/internal/domain"
	"github.com/powerskills-labs/powerskills-go/internal/gateway"
	"github.com/powerskills-labs/powerskills-go/internal/platform/objectstore"
)

// Executor runs confirmed plans in the background. Each dispatched
// plan gets its own cancellable context so cancel_plan can stop a
// mid-flight run instead of racing its terminal write.
type Executor struct {
	gw        gateway.Gateway
	logger    *slog.Logger
	stepDelay time.Duration
	invoke    StepInvoker

	reports       objectstore.Store
	reportsBucket string

	baseCtx context.Context
	mu      sync.Mutex
	running map[string]*runHandle
	wg      sync.WaitGroup
}

type runHandle struct {
	cancel context.CancelFunc
}

// StepInvoker performs one chain step. The default invoker only waits
// the simulated step duration; platform adapters can replace it.
type StepInvoker func(ctx context.Context, plan domain.Plan, step domain.SkillChainStep) error

type ExecutorOption func(*Executor)

// WithStepInvoker replaces the simulated step execution.
func WithStepInvoker(invoke StepInvoker) ExecutorOption {
	return func(e *Executor) { e.invoke = invoke }
}

// WithStepDelay overrides the simulated per-step execution time.
func WithStepDelay(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.stepDelay = d }
}

// WithReportStore uploads a JSON execution report after each terminal
// write. Uploads are best-effort and never fail the run.
func WithReportStore(store objectstore.Store, bucket string) ExecutorOption {
	return func(e *Executor) {
		e.reports = store
		e.reportsBucket = bucket
	}
}

func NewExecutor(baseCtx context.Context, gw gateway.Gateway, logger *slog.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		gw:        gw,
		logger:    logger,
		stepDelay: time.Second,
		baseCtx:   baseCtx,
		running:   make(map[string]*runHandle),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.invoke == nil {
		e.invoke = e.simulateStep
	}
	return e
}

func (e *Executor) simulateStep(ctx context.Context, plan domain.Plan, step domain.SkillChainStep) error {
	timer := time.NewTimer(e.stepDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Start dispatches the plan's step loop on the executor's lifecycle
// context and returns immediately. The caller observes completion only
// by re-fetching the plan.
func (e *Executor) Start(plan domain.Plan) {
	runCtx, cancel := context.WithCancel(e.baseCtx)
	handle := &runHandle{cancel: cancel}

	e.mu.Lock()
	if prev, ok := e.running[plan.PlanID]; ok {
		prev.cancel()
	}
	e.running[plan.PlanID] = handle
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.forget(plan.PlanID, handle)
		e.run(runCtx, plan)
	}()
}

// Cancel stops the plan's background run if one is in flight. The
// status write belongs to the caller; the stopped run leaves the
// record alone.
func (e *Executor) Cancel(planID string) {
	e.mu.Lock()
	handle, ok := e.running[planID]
	e.mu.Unlock()
	if ok {
		handle.cancel()
	}
}

// Shutdown waits for in-flight runs to wind down.
func (e *Executor) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Executor) forget(planID string, handle *runHandle) {
	handle.cancel()
	e.mu.Lock()
	if current, ok := e.running[planID]; ok && current == handle {
		delete(e.running, planID)
	}
	e.mu.Unlock()
}

func (e *Executor) run(ctx context.Context, plan domain.Plan) {
	// Steps run strictly in stored order; depends_on is declarative
	// metadata only.
	for _, step := range plan.SkillChain {
		if err := e.invoke(ctx, plan, step); err != nil {
			if ctx.Err() != nil {
				// Cancelled or shutting down; the cancelled status
				// (if any) was already persisted by the canceller.
				e.logger.Info("plan run stopped",
					"plan_id", plan.PlanID,
					"step", step.Step,
					"reason", ctx.Err().Error(),
				)
				return
			}
			e.finish(plan, domain.PlanFailed, fmt.Errorf("step %d (%s): %w", step.Step, step.SkillID, err))
			return
		}
	}

	e.finish(plan, domain.PlanCompleted, nil)
}

// finish writes the terminal status only if the plan is still running,
// so a concurrent cancel is never clobbered.
func (e *Executor) finish(plan domain.Plan, status domain.PlanStatus, runErr error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(e.baseCtx), 10*time.Second)
	defer cancel()

	rec, err := e.gw.Get(ctx, gateway.CollectionPlans, plan.PlanID)
	if err != nil {
		e.logger.Error("plan finish read failed", "plan_id", plan.PlanID, "error", err.Error())
		return
	}
	current, _ := rec["status"].(string)
	if current != string(domain.PlanRunning) {
		e.logger.Info("plan finish skipped",
			"plan_id", plan.PlanID,
			"status", current,
			"wanted", string(status),
		)
		return
	}

	fields := gateway.Record{"status": string(status)}
	if runErr != nil {
		fields["error"] = runErr.Error()
	}
	if err := e.gw.Update(ctx, gateway.CollectionPlans, plan.PlanID, fields); err != nil {
		e.logger.Error("plan finish write failed", "plan_id", plan.PlanID, "error", err.Error())
		return
	}

	e.logger.Info("plan finished", "plan_id", plan.PlanID, "status", string(status))
	e.uploadReport(ctx, plan, status, runErr)
}

type executionReport struct {
	PlanID     string    `json:"plan_id"`
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"`
	Steps      int       `json:"steps"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

func (e *Executor) uploadReport(ctx context.Context, plan domain.Plan, status domain.PlanStatus, runErr error) {
	if e.reports == nil {
		return
	}
	report := executionReport{
		PlanID:     plan.PlanID,
		UserID:     plan.UserID,
		Status:     string(status),
		Steps:      len(plan.SkillChain),
		FinishedAt: time.Now().UTC(),
	}
	if runErr != nil {
		report.Error = runErr.Error()
	}
	raw, err := json.Marshal(report)
	if err != nil {
		e.logger.Warn("report encode failed", "plan_id", plan.PlanID, "error", err.Error())
		return
	}
	key := fmt.Sprintf("%s.json", plan.PlanID)
	if err := e.reports.Put(ctx, e.reportsBucket, key, bytes.NewReader(raw), int64(len(raw)), "application/json"); err != nil {
		e.logger.Warn("report upload failed", "plan_id", plan.PlanID, "error", err.Error())
	}
}
