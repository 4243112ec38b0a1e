package service

import (
	"context"

	"storepilot/internal/model"
)

// Mock implements Service for testing.
// Each method can be configured via function fields.
type Mock struct {
	PreviewFunc func(ctx context.Context, storeID string, plan *model.Plan) (*model.Preview, error)
	ApplyFunc   func(ctx context.Context, storeID string, plan *model.Plan) error
	ExecuteFunc func(ctx context.Context, storeID string, plan *model.Plan) (*model.ExecutionResult, error)
	RevertFunc  func(ctx context.Context, storeID, historyID string) (*model.ReversalResult, error)
	HistoryFunc func(ctx context.Context, storeID string, limit int) ([]model.HistoryLog, error)
	PingFunc    func(ctx context.Context) error
}

// Preview calls the configured PreviewFunc or returns an empty preview.
func (m *Mock) Preview(ctx context.Context, storeID string, plan *model.Plan) (*model.Preview, error) {
	if m.PreviewFunc != nil {
		return m.PreviewFunc(ctx, storeID, plan)
	}
	return &model.Preview{Samples: []string{}}, nil
}

// Apply calls the configured ApplyFunc or returns nil.
func (m *Mock) Apply(ctx context.Context, storeID string, plan *model.Plan) error {
	if m.ApplyFunc != nil {
		return m.ApplyFunc(ctx, storeID, plan)
	}
	return nil
}

// Execute calls the configured ExecuteFunc or returns a skipped result.
func (m *Mock) Execute(ctx context.Context, storeID string, plan *model.Plan) (*model.ExecutionResult, error) {
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, storeID, plan)
	}
	return &model.ExecutionResult{Status: model.StatusSkipped}, nil
}

// Revert calls the configured RevertFunc or returns not found.
func (m *Mock) Revert(ctx context.Context, storeID, historyID string) (*model.ReversalResult, error) {
	if m.RevertFunc != nil {
		return m.RevertFunc(ctx, storeID, historyID)
	}
	return nil, model.NewNotFoundError("history entry")
}

// History calls the configured HistoryFunc or returns an empty list.
func (m *Mock) History(ctx context.Context, storeID string, limit int) ([]model.HistoryLog, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, storeID, limit)
	}
	return []model.HistoryLog{}, nil
}

// Ping calls the configured PingFunc or returns nil.
func (m *Mock) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

var _ Service = (*Mock)(nil)
