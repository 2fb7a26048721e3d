package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/seantiz/runbox/internal/backend"
	"github.com/seantiz/runbox/internal/language"
	"github.com/seantiz/runbox/internal/model"
	"github.com/seantiz/runbox/internal/store"
)

// Engine dispatches submissions to backends and records their lifecycle.
type Engine struct {
	store     store.Store
	registry  *backend.Registry
	languages *language.Registry
	policy    Policy
	logger    *slog.Logger
	wg        sync.WaitGroup
	broker    *LogBroker
}

// NewEngine creates a new execution engine.
func NewEngine(s store.Store, reg *backend.Registry, languages *language.Registry, policy Policy, logger *slog.Logger) *Engine {
	return &Engine{
		store:     s,
		registry:  reg,
		languages: languages,
		policy:    policy,
		logger:    logger,
		broker:    NewLogBroker(),
	}
}

// Broker returns the engine's log broker for SSE subscription.
func (e *Engine) Broker() *LogBroker {
	return e.broker
}

// Policy returns the dispatch policy the engine was built with.
func (e *Engine) Policy() Policy {
	return e.policy
}

func newExecution(req model.ExecutionRequest) *model.Execution {
	return &model.Execution{
		ID:        model.NewID(),
		Status:    model.StatusPending,
		Language:  req.Language,
		Code:      req.Code,
		Input:     req.Input,
		CreatedAt: time.Now().UTC(),
	}
}

// Submit creates a pending execution record and runs it in a goroutine. The
// returned record reflects the stored pending state.
func (e *Engine) Submit(ctx context.Context, req model.ExecutionRequest) (*model.Execution, error) {
	x := newExecution(req)
	if err := e.store.CreateExecution(ctx, x); err != nil {
		return nil, fmt.Errorf("create execution: %w", err)
	}

	xCopy := *x
	e.wg.Go(func() {
		e.process(context.Background(), &xCopy)
	})

	return x, nil
}

// Run creates an execution record, executes it synchronously and returns the
// finished record. It only fails when the record cannot be created.
func (e *Engine) Run(ctx context.Context, req model.ExecutionRequest) (*model.Execution, error) {
	x := newExecution(req)
	if err := e.store.CreateExecution(ctx, x); err != nil {
		return nil, fmt.Errorf("create execution: %w", err)
	}

	return e.process(ctx, x), nil
}

// Wait blocks until all in-flight submissions complete.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// process drives one execution record: pending→running→completed/failed.
// It returns the record as it should now be stored.
func (e *Engine) process(ctx context.Context, x *model.Execution) *model.Execution {
	defer e.broker.Close(x.ID)

	// Store writes must land even when the caller goes away mid-run.
	storeCtx := context.WithoutCancel(ctx)

	if err := e.store.UpdateExecutionStatus(storeCtx, x.ID, model.StatusRunning); err != nil {
		e.logger.Error("failed to transition to running", "execution_id", x.ID, "error", err)
		return e.finishFailed(storeCtx, x, fmt.Sprintf("failed to start: %v", err))
	}
	start := time.Now().UTC()

	// Each output line is persisted for history, then published for SSE.
	var seq atomic.Int32
	logWriter := func(line string) {
		currentSeq := int(seq.Add(1) - 1)
		if err := e.store.InsertLogLine(storeCtx, x.ID, currentSeq, line); err != nil {
			e.logger.Error("failed to persist log line", "execution_id", x.ID, "seq", currentSeq, "error", err)
		}
		e.broker.Publish(x.ID, line)
	}

	res := e.dispatch(ctx, x.ID, x.Request(), logWriter)

	status := model.StatusCompleted
	if !res.Success {
		status = model.StatusFailed
	}
	now := time.Now().UTC()
	elapsed := res.ExecutionTimeMS

	done := *x
	done.Status = status
	done.Provider = res.Provider
	done.Success = res.Success
	done.Output = res.Output
	done.Error = res.Error
	done.ExecutionTimeMS = &elapsed
	done.StartedAt = &start
	done.FinishedAt = &now
	if err := e.store.UpdateExecution(storeCtx, &done); err != nil {
		e.logger.Error("failed to record execution result", "execution_id", x.ID, "error", err)
	}
	return &done
}

// finishFailed marks an execution that never started as failed.
func (e *Engine) finishFailed(ctx context.Context, x *model.Execution, errMsg string) *model.Execution {
	now := time.Now().UTC()
	var elapsed int64

	failed := *x
	failed.Status = model.StatusFailed
	failed.Provider = model.ProviderNone
	failed.Error = errMsg
	failed.ExecutionTimeMS = &elapsed
	failed.FinishedAt = &now

	if err := e.store.UpdateExecution(ctx, &failed); err != nil {
		e.logger.Error("failed to update failed execution", "execution_id", x.ID, "error", err)
	}
	return &failed
}
