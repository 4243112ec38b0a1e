// Package reversal undoes a completed plan run by deriving an inverse plan
// from its history entry and running it forward again.
package reversal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"storepilot/internal/model"
	"storepilot/internal/mutate"
)

// Inverse derives the inverse of one change. approximate is set when
// running the inverse does not restore the original values exactly.
type Inverse func(c model.Change) (inv model.Change, approximate bool)

// inverses lists, per field and action, how a change is undone. A missing
// entry means the change cannot be reversed.
var inverses = map[model.Field]map[model.Action]Inverse{
	model.FieldTitle:       textInverses,
	model.FieldDescription: textInverses,

	model.FieldPrice:            priceInverses,
	model.FieldPromotionalPrice: priceInverses,
	model.FieldCost:             priceInverses,

	model.FieldStatus: {
		model.ActionPublish:   swap(model.ActionUnpublish, true),
		model.ActionUnpublish: swap(model.ActionPublish, true),
	},
	model.FieldTags: {
		model.ActionAddTag:    swap(model.ActionRemoveTag, true),
		model.ActionRemoveTag: swap(model.ActionAddTag, true),
	},
}

var textInverses = map[model.Action]Inverse{
	model.ActionAppend: func(c model.Change) (model.Change, bool) {
		sep, exact := separator(c)
		return model.Change{
			Field:       c.Field,
			Action:      model.ActionReplace,
			ReplaceThis: sep + c.Value.String(),
			Value:       model.P(""),
		}, !exact
	},
	model.ActionPrepend: func(c model.Change) (model.Change, bool) {
		sep, exact := separator(c)
		return model.Change{
			Field:       c.Field,
			Action:      model.ActionReplace,
			ReplaceThis: c.Value.String() + sep,
			Value:       model.P(""),
		}, !exact
	},
	model.ActionReplace: func(c model.Change) (model.Change, bool) {
		// A removed fragment has no position left to restore it at; it
		// comes back appended.
		if c.Value.String() == "" {
			return model.Change{
				Field:  c.Field,
				Action: model.ActionAppend,
				Value:  model.P(c.ReplaceThis),
			}, true
		}
		// Text that already held the replacement before the run is
		// rewritten too.
		return model.Change{
			Field:       c.Field,
			Action:      model.ActionReplace,
			ReplaceThis: c.Value.String(),
			Value:       model.P(c.ReplaceThis),
		}, true
	},
}

var priceInverses = map[model.Action]Inverse{
	model.ActionIncreasePercent: swap(model.ActionDecreasePercent, true),
	model.ActionDecreasePercent: swap(model.ActionIncreasePercent, true),
	model.ActionIncreaseFixed:   swap(model.ActionDecreaseFixed, false),
	model.ActionDecreaseFixed:   swap(model.ActionIncreaseFixed, false),
}

// swap inverts a change by replaying it with the opposite action and the
// same parameters. Rounding and the safety lock are not replayed.
func swap(to model.Action, approximate bool) Inverse {
	return func(c model.Change) (model.Change, bool) {
		inv := c
		inv.Action = to
		inv.Rounding = ""
		inv.SafetyLock = false
		return inv, approximate || c.Rounding != "" || c.SafetyLock
	}
}

// separator returns the joiner the text mutator used. A description's
// default joiner depended on its content, so it is only a guess.
func separator(c model.Change) (sep string, exact bool) {
	if c.Separator == "" && c.Field == model.FieldDescription {
		return "\n\n", false
	}
	return mutate.Separator(c, ""), true
}

// Invert derives the inverse of plan. Only field plans can be inverted.
func Invert(plan *model.Plan) (*model.Plan, bool, error) {
	mode, err := plan.Mode()
	if err != nil {
		return nil, false, err
	}
	fm, ok := mode.(model.FieldMode)
	if !ok {
		return nil, false, model.NewUnsupportedReversalError(model.Field(mode.Kind()), "")
	}

	c := fm.Change
	inv, ok := inverses[c.Field][c.Action]
	if !ok {
		return nil, false, model.NewUnsupportedReversalError(c.Field, c.Action)
	}
	change, approximate := inv(c)

	out := &model.Plan{
		SchemaVersion: plan.SchemaVersion,
		Scope:         plan.Scope,
		FindProduct:   plan.FindProduct,
		FindVariant:   plan.FindVariant,
		Changes:       []model.Change{change},
	}
	// A title filter naming the replaced text would no longer match the
	// edited products.
	if c.Field == model.FieldTitle && c.Action == model.ActionReplace && c.ReplaceThis != "" {
		out.FindProduct.TitleContains = retarget(plan.FindProduct.TitleContains, c.ReplaceThis, c.Value.String())
		if out.FindProduct.TitleContains == "" && strings.TrimSpace(plan.FindProduct.TitleContains) != "" {
			// The filter named only the removed text; the inverse would
			// match the whole catalog.
			return nil, false, model.NewUnsupportedReversalError(c.Field, c.Action)
		}
	}
	return out, approximate, nil
}

func retarget(filter, old, replacement string) string {
	i := strings.Index(strings.ToLower(filter), strings.ToLower(old))
	if i < 0 || len(strings.ToLower(filter)) != len(filter) {
		return filter
	}
	return strings.Join(strings.Fields(filter[:i]+replacement+filter[i+len(old):]), " ")
}

// === Engine ===

// History is the history surface of the mirror.
type History interface {
	GetHistory(ctx context.Context, storeID, id string) (*model.HistoryLog, error)
	MarkReverted(ctx context.Context, storeID, id string) error
}

// Runner executes a plan synchronously.
type Runner interface {
	Execute(ctx context.Context, storeID string, plan *model.Plan) (model.ExecutionResult, error)
}

// Engine reverses history entries.
type Engine struct {
	history History
	runner  Runner
	logger  *slog.Logger
}

// New creates an Engine.
func New(history History, runner Runner, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{history: history, runner: runner, logger: logger}
}

// Reverse runs the inverse of a SUCCESS entry and marks it REVERTED once
// the inverse run itself ends SUCCESS.
func (e *Engine) Reverse(ctx context.Context, storeID, historyID string) (*model.ReversalResult, error) {
	h, err := e.history.GetHistory(ctx, storeID, historyID)
	if err != nil {
		return nil, err
	}
	if h.Status != model.StatusSuccess {
		return nil, model.NewConflictError(fmt.Sprintf("history entry is %s, only SUCCESS entries can be reverted", h.Status), nil)
	}

	plan, err := h.Plan()
	if err != nil {
		return nil, err
	}
	inv, approximate, err := Invert(plan)
	if err != nil {
		return nil, err
	}
	if approximate {
		e.logger.Warn("reversal is approximate",
			"store_id", storeID,
			"history_id", historyID,
			"summary", h.Summary,
		)
	}

	res, err := e.runner.Execute(ctx, storeID, inv)
	if err != nil {
		return nil, err
	}
	// A run that changed nothing leaves the entry open for another attempt.
	if res.Status != model.StatusSuccess {
		e.logger.Warn("inverse run did not complete",
			"store_id", storeID,
			"history_id", historyID,
			"reversal_history_id", res.HistoryID,
			"status", res.Status,
			"summary", res.Summary,
		)
		return nil, model.NewReversalIncompleteError(res.HistoryID, res.Status, res.Summary)
	}
	if err := e.history.MarkReverted(ctx, storeID, historyID); err != nil {
		return nil, err
	}

	e.logger.Info("history entry reverted",
		"store_id", storeID,
		"history_id", historyID,
		"reversal_history_id", res.HistoryID,
		"affected", res.AffectedCount,
	)
	return &model.ReversalResult{
		HistoryID:         historyID,
		ReversalHistoryID: res.HistoryID,
		Approximate:       approximate,
		Summary:           res.Summary,
		AffectedCount:     res.AffectedCount,
	}, nil
}
