// Package service is the inbound facade over the executor, the reversal
// engine and the history store. The REST and MCP handlers depend only on
// Service.
package service

import (
	"context"
	"log/slog"
	"strings"

	"storepilot/internal/executor"
	"storepilot/internal/model"
	"storepilot/internal/reversal"
)

// Service is the bulk-edit API of one deployment.
type Service interface {
	// Preview resolves a plan and reports what it would touch.
	Preview(ctx context.Context, storeID string, plan *model.Plan) (*model.Preview, error)

	// Apply validates a plan and runs it in the background.
	Apply(ctx context.Context, storeID string, plan *model.Plan) error

	// Execute runs a plan and waits for its result.
	Execute(ctx context.Context, storeID string, plan *model.Plan) (*model.ExecutionResult, error)

	// Revert undoes a SUCCESS history entry.
	Revert(ctx context.Context, storeID, historyID string) (*model.ReversalResult, error)

	// History lists a store's runs, newest first.
	History(ctx context.Context, storeID string, limit int) ([]model.HistoryLog, error)

	// Ping checks the mirror database.
	Ping(ctx context.Context) error
}

// Repository is the history side of the mirror.
type Repository interface {
	ListHistory(ctx context.Context, storeID string, limit int) ([]model.HistoryLog, error)
	Ping(ctx context.Context) error
}

// BulkEdit implements Service.
type BulkEdit struct {
	exec     *executor.Executor
	reversal *reversal.Engine
	repo     Repository
	logger   *slog.Logger
}

// New creates the facade.
func New(exec *executor.Executor, rev *reversal.Engine, repo Repository, logger *slog.Logger) *BulkEdit {
	if logger == nil {
		logger = slog.Default()
	}
	return &BulkEdit{exec: exec, reversal: rev, repo: repo, logger: logger}
}

func requireStore(storeID string) error {
	if strings.TrimSpace(storeID) == "" {
		return model.NewValidationError("store_id", "required")
	}
	return nil
}

func requirePlan(plan *model.Plan) error {
	if plan == nil {
		return model.NewValidationError("plan", "required")
	}
	return nil
}

func (s *BulkEdit) Preview(ctx context.Context, storeID string, plan *model.Plan) (*model.Preview, error) {
	if err := requireStore(storeID); err != nil {
		return nil, err
	}
	if err := requirePlan(plan); err != nil {
		return nil, err
	}
	return s.exec.Preview(ctx, storeID, plan)
}

func (s *BulkEdit) Apply(ctx context.Context, storeID string, plan *model.Plan) error {
	if err := requireStore(storeID); err != nil {
		return err
	}
	if err := requirePlan(plan); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "plan submitted", "store_id", storeID, "summary", plan.Summary())
	return s.exec.Submit(ctx, storeID, plan)
}

func (s *BulkEdit) Execute(ctx context.Context, storeID string, plan *model.Plan) (*model.ExecutionResult, error) {
	if err := requireStore(storeID); err != nil {
		return nil, err
	}
	if err := requirePlan(plan); err != nil {
		return nil, err
	}
	res, err := s.exec.Execute(ctx, storeID, plan)
	if err != nil {
		// Validation and busy-store failures are the caller's to fix; run
		// failures are reported through the result.
		if res.HistoryID == "" {
			return nil, err
		}
		s.logger.WarnContext(ctx, "plan run failed", "store_id", storeID, "history_id", res.HistoryID, "error", err)
	}
	return &res, nil
}

func (s *BulkEdit) Revert(ctx context.Context, storeID, historyID string) (*model.ReversalResult, error) {
	if err := requireStore(storeID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(historyID) == "" {
		return nil, model.NewValidationError("history_id", "required")
	}
	return s.reversal.Reverse(ctx, storeID, historyID)
}

func (s *BulkEdit) History(ctx context.Context, storeID string, limit int) ([]model.HistoryLog, error) {
	if err := requireStore(storeID); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, storeID, limit)
}

func (s *BulkEdit) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

var _ Service = (*BulkEdit)(nil)
