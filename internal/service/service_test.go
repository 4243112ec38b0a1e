package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"storepilot/internal/adapter"
	"storepilot/internal/executor"
	"storepilot/internal/mirror"
	"storepilot/internal/model"
	"storepilot/internal/reversal"
)

// titles is a remote catalog that only tracks product names.
type titles struct {
	mu    sync.Mutex
	names map[int64]string
}

func (c *titles) mock() *adapter.Mock {
	return &adapter.Mock{
		GetProductFunc: func(_ context.Context, id int64) (*model.CatalogProduct, error) {
			c.mu.Lock()
			defer c.mu.Unlock()
			return &model.CatalogProduct{ID: id, Name: c.names[id], Variants: []model.Variant{{ID: id, Price: decimal.NewFromInt(10)}}}, nil
		},
		UpdateProductFunc: func(_ context.Context, id int64, patch model.ProductPatch) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			if patch.Name != nil {
				c.names[id] = *patch.Name
			}
			return nil
		},
	}
}

func newTestService(t *testing.T) (*BulkEdit, *titles, *mirror.Repository) {
	t.Helper()
	db, err := mirror.Open("sqlite://" + filepath.Join(t.TempDir(), "svc.db") + "?_busy_timeout=5000")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := mirror.Migrate(db); err != nil {
		t.Fatal(err)
	}
	repo, err := mirror.NewRepository(db)
	if err != nil {
		t.Fatal(err)
	}

	remote := &titles{names: map[int64]string{1: "Vestido Floral", 2: "Vestido Liso"}}
	rows := []model.Product{
		{ExternalID: 1, StoreID: "7", Name: "Vestido Floral"},
		{ExternalID: 2, StoreID: "7", Name: "Vestido Liso"},
	}
	if err := repo.PutProducts(context.Background(), rows); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	exec := executor.New(repo, adapter.Static(remote.mock()), executor.WithLogger(logger))
	return New(exec, reversal.New(repo, exec, logger), repo, logger), remote, repo
}

func TestBulkEdit_ApplyThenRevert(t *testing.T) {
	svc, remote, _ := newTestService(t)
	ctx := context.Background()

	plan := &model.Plan{
		FindProduct: model.FindProduct{TitleContains: "Vestido"},
		Changes:     []model.Change{{Field: model.FieldTitle, Action: model.ActionAppend, Value: model.P("Promoção")}},
	}
	res, err := svc.Execute(ctx, "7", plan)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.AffectedCount != 2 || res.Status != model.StatusSuccess {
		t.Fatalf("result = %+v", res)
	}
	if remote.names[1] != "Vestido Floral Promoção" {
		t.Fatalf("name = %q", remote.names[1])
	}

	rev, err := svc.Revert(ctx, "7", res.HistoryID)
	if err != nil {
		t.Fatalf("Revert() error = %v", err)
	}
	if rev.Approximate || rev.AffectedCount != 2 {
		t.Errorf("reversal = %+v", rev)
	}
	if remote.names[1] != "Vestido Floral" || remote.names[2] != "Vestido Liso" {
		t.Errorf("names after revert = %v", remote.names)
	}

	logs, err := svc.History(ctx, "7", 10)
	if err != nil {
		t.Fatal(err)
	}
	statuses := map[string]model.HistoryStatus{}
	for _, l := range logs {
		statuses[l.ID] = l.Status
	}
	if len(logs) != 2 || statuses[res.HistoryID] != model.StatusReverted || statuses[rev.ReversalHistoryID] != model.StatusSuccess {
		t.Errorf("history = %+v", logs)
	}

	if _, err := svc.Revert(ctx, "7", res.HistoryID); err == nil {
		t.Error("second revert should fail")
	}
}

func TestBulkEdit_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	plan := &model.Plan{Changes: []model.Change{{Field: model.FieldTitle, Action: model.ActionSet, Value: model.P("x")}}}

	if _, err := svc.Preview(ctx, "", plan); !errors.Is(err, model.ErrInvalidRequest) {
		t.Errorf("Preview blank store error = %v", err)
	}
	if err := svc.Apply(ctx, "7", nil); !errors.Is(err, model.ErrInvalidRequest) {
		t.Errorf("Apply nil plan error = %v", err)
	}
	if _, err := svc.Execute(ctx, "7", &model.Plan{}); !errors.Is(err, model.ErrInvalidRequest) {
		t.Errorf("Execute empty plan error = %v", err)
	}
	if _, err := svc.Revert(ctx, "7", " "); !errors.Is(err, model.ErrInvalidRequest) {
		t.Errorf("Revert blank id error = %v", err)
	}
	if _, err := svc.Revert(ctx, "7", "nope"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Revert unknown id error = %v", err)
	}
	if err := svc.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
