// Package executor runs bulk-edit plans.
//
// A plan either edits the category tree once (structural path) or is applied
// product by product (standard path). Per-product failures are logged and
// excluded from the affected count; they never abort the run. Every run that
// reaches the platform ends in exactly one history row, committed together
// with the touched mirror rows.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/text/language"

	"storepilot/internal/adapter"
	"storepilot/internal/category"
	"storepilot/internal/filter"
	"storepilot/internal/lock"
	"storepilot/internal/mirror"
	"storepilot/internal/model"
	"storepilot/internal/mutate"
	"storepilot/internal/variant"
)

// PreviewSamples is how many product names a preview lists.
const PreviewSamples = 5

// Store is the mirror surface the executor needs.
type Store interface {
	FindProducts(ctx context.Context, q mirror.ProductQuery) ([]model.Product, error)
	GetStore(ctx context.Context, storeID string) (*model.Store, error)
	Commit(ctx context.Context, products []model.Product, log *model.HistoryLog) error
}

// Executor applies plans to stores.
type Executor struct {
	store     Store
	resolver  *filter.Resolver
	connector adapter.Connector
	locker    lock.Locker
	lang      language.Tag
	logger    *slog.Logger

	wg sync.WaitGroup
}

// Option configures an Executor.
type Option func(*Executor)

// WithLocker serialises runs per store through l.
func WithLocker(l lock.Locker) Option {
	return func(e *Executor) { e.locker = l }
}

// WithLanguage sets the case-mapping language used when a store has none.
func WithLanguage(tag language.Tag) Option {
	return func(e *Executor) { e.lang = tag }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) { e.logger = l }
}

// New creates an Executor. Without WithLocker runs are serialised by an
// in-process lock that fails immediately on a busy store.
func New(store Store, connector adapter.Connector, opts ...Option) *Executor {
	e := &Executor{
		store:     store,
		connector: connector,
		locker:    lock.NewLocal(0),
		lang:      mutate.DefaultLanguage,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.resolver = filter.NewResolver(store, e.logger)
	return e
}

// Preview resolves a plan without writing anything.
func (e *Executor) Preview(ctx context.Context, storeID string, plan *model.Plan) (*model.Preview, error) {
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	mode, _ := plan.Mode()

	if cm, ok := mode.(model.CategoryMode); ok && cm.Rules.Structural() {
		return &model.Preview{
			Summary:       plan.Summary(),
			AffectedCount: 1,
			Samples:       []string{cm.Rules.CategoryName},
		}, nil
	}

	products, err := e.resolver.Resolve(ctx, storeID, plan.FindProduct, filter.ModeFor(plan))
	if err != nil {
		return nil, err
	}
	samples := make([]string, 0, min(len(products), PreviewSamples))
	for _, p := range products[:min(len(products), PreviewSamples)] {
		samples = append(samples, p.Name)
	}
	return &model.Preview{
		Summary:       plan.Summary(),
		AffectedCount: len(products),
		Samples:       samples,
	}, nil
}

// Submit validates plan and runs it in the background. The run is detached
// from ctx; use Wait to drain pending runs on shutdown.
func (e *Executor) Submit(ctx context.Context, storeID string, plan *model.Plan) error {
	if err := plan.Validate(); err != nil {
		return err
	}

	bg := context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("plan run panicked", "store_id", storeID, "panic", r)
			}
		}()

		res, err := e.Execute(bg, storeID, plan)
		if err != nil {
			e.logger.Error("plan run failed", "store_id", storeID, "summary", res.Summary, "error", err)
			return
		}
		e.logger.Info("plan run finished",
			"store_id", storeID,
			"history_id", res.HistoryID,
			"status", res.Status,
			"affected", res.AffectedCount,
		)
	}()
	return nil
}

// Wait blocks until every submitted run has finished.
func (e *Executor) Wait() {
	e.wg.Wait()
}

// Execute runs plan to completion. The result is always populated; on
// failure its status is ERROR and the summary embeds the error message.
func (e *Executor) Execute(ctx context.Context, storeID string, plan *model.Plan) (model.ExecutionResult, error) {
	summary := plan.Summary()
	fail := func(err error) (model.ExecutionResult, error) {
		return model.ExecutionResult{Summary: summary + ": " + err.Error(), Status: model.StatusError}, err
	}

	if err := plan.Validate(); err != nil {
		return fail(err)
	}
	mode, _ := plan.Mode()

	release, err := e.locker.Acquire(ctx, storeID)
	if err != nil {
		return fail(err)
	}
	defer release(context.WithoutCancel(ctx))

	platform, err := e.connector.ForStore(ctx, storeID)
	if err != nil {
		return fail(err)
	}
	env := &Env{
		StoreID:    storeID,
		Plan:       plan,
		Platform:   platform,
		Categories: category.NewManager(platform, category.NewCache(), e.logger),
		Variants:   variant.NewManager(platform, e.logger),
		Lang:       e.language(ctx, storeID),
		Logger:     e.logger,
	}

	if cm, ok := mode.(model.CategoryMode); ok && cm.Rules.Structural() {
		return e.structural(ctx, env, cm.Rules)
	}
	return e.standard(ctx, env, mode)
}

func (e *Executor) language(ctx context.Context, storeID string) language.Tag {
	s, err := e.store.GetStore(ctx, storeID)
	if err != nil || s.Language == "" {
		return e.lang
	}
	tag, err := language.Parse(s.Language)
	if err != nil {
		return e.lang
	}
	return tag
}

// === Structural path ===

func (e *Executor) structural(ctx context.Context, env *Env, rules model.CategoryRules) (model.ExecutionResult, error) {
	var err error
	switch rules.Action {
	case model.ActionRename:
		_, err = env.Categories.Rename(ctx, rules.CategoryName, rules.NewName)
	case model.ActionMoveTree:
		_, err = env.Categories.Move(ctx, rules.CategoryName, rules.NewParentName)
	case model.ActionDelete:
		_, err = env.Categories.Delete(ctx, rules.CategoryName)
	}

	if err != nil {
		e.logger.Warn("category operation failed",
			"store_id", env.StoreID, "action", rules.Action, "category", rules.CategoryName, "error", err)
		return e.commit(ctx, env, nil, 0, err)
	}
	return e.commit(ctx, env, nil, 1, nil)
}

// === Standard path ===

func (e *Executor) standard(ctx context.Context, env *Env, mode model.Mode) (model.ExecutionResult, error) {
	products, err := e.resolver.Resolve(ctx, env.StoreID, env.Plan.FindProduct, filter.ModeFor(env.Plan))
	if err != nil {
		return e.commit(ctx, env, nil, 0, err)
	}

	if len(products) == 0 && mode.Kind() == model.ModeField {
		e.logger.Info("plan matched no products", "store_id", env.StoreID, "summary", env.Plan.Summary())
		return model.ExecutionResult{Summary: env.Plan.Summary(), Status: model.StatusSkipped}, nil
	}

	applier, err := applierFor(mode)
	if err != nil {
		return e.commit(ctx, env, nil, 0, err)
	}

	env.Parents = make(map[int64]bool, len(products))
	for _, p := range products {
		env.Parents[p.ExternalID] = true
	}
	env.Names = e.names(env.StoreID)

	field := fieldOf(mode)
	skipper, _ := applier.(Skipper)

	var (
		affected int
		touched  []model.Product
	)
	for _, row := range products {
		if skipper != nil && skipper.Skip(env, row) {
			continue
		}

		applied, err := e.applyOne(ctx, env, applier, row)
		if err != nil {
			e.logger.Warn("product skipped",
				"store_id", env.StoreID,
				"product_id", row.ExternalID,
				"field", field,
				"error", err,
			)
			continue
		}
		if !applied.Changed {
			continue
		}
		affected++
		if applied.Mirror != nil {
			touched = append(touched, *applied.Mirror)
		}
	}

	return e.commit(ctx, env, touched, affected, nil)
}

// applyOne fetches the product's remote state and applies the plan to it. A
// panic inside an applier only loses this product.
func (e *Executor) applyOne(ctx context.Context, env *Env, applier Applier, row model.Product) (applied Applied, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("applier panic: %v", r)
		}
	}()

	remote, err := env.Platform.GetProduct(ctx, row.ExternalID)
	if err != nil {
		return Applied{}, err
	}
	return applier.Apply(ctx, env, &Target{Mirror: row, Remote: remote})
}

// names resolves a free-text phrase against the store's mirror.
func (e *Executor) names(storeID string) func(ctx context.Context, phrase string) ([]int64, error) {
	return func(ctx context.Context, phrase string) ([]int64, error) {
		words := strings.Fields(phrase)
		if len(words) == 0 {
			return nil, nil
		}
		rows, err := e.store.FindProducts(ctx, mirror.ProductQuery{StoreID: storeID, NameTerms: words})
		if err != nil {
			return nil, err
		}
		candidates := make([]mutate.NamedProduct, 0, len(rows))
		for _, r := range rows {
			candidates = append(candidates, mutate.NamedProduct{ID: r.ExternalID, Name: r.Name})
		}
		return mutate.MatchNames(phrase, candidates), nil
	}
}

// commit writes the history row of a run along with the touched mirror rows.
// runErr marks the run as failed.
func (e *Executor) commit(ctx context.Context, env *Env, touched []model.Product, affected int, runErr error) (model.ExecutionResult, error) {
	planJSON, err := json.Marshal(env.Plan)
	if err != nil {
		return model.ExecutionResult{Summary: env.Plan.Summary(), Status: model.StatusError}, fmt.Errorf("encoding plan: %w", err)
	}

	log := &model.HistoryLog{
		StoreID:       env.StoreID,
		Summary:       env.Plan.Summary(),
		PlanJSON:      string(planJSON),
		AffectedCount: affected,
		Status:        model.StatusSkipped,
	}
	switch {
	case runErr != nil:
		log.Status = model.StatusError
		log.Summary += ": " + runErr.Error()
	case affected > 0:
		log.Status = model.StatusSuccess
	}

	if err := e.store.Commit(ctx, touched, log); err != nil {
		e.logger.Error("committing plan run", "store_id", env.StoreID, "affected", affected, "error", err)
		return model.ExecutionResult{Summary: log.Summary, AffectedCount: affected, Status: model.StatusError}, errors.Join(runErr, err)
	}

	return model.ExecutionResult{
		HistoryID:     log.ID,
		Summary:       log.Summary,
		AffectedCount: affected,
		Status:        log.Status,
	}, runErr
}

func fieldOf(mode model.Mode) string {
	switch m := mode.(type) {
	case model.FieldMode:
		return string(m.Change.Field)
	case model.CategoryMode:
		return string(model.FieldCategory)
	case model.SEOMode:
		return string(model.FieldSEO)
	}
	return "variants"
}
