package variant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"storepilot/internal/adapter"
	"storepilot/internal/model"
	"storepilot/internal/reconcile"
)

// Result counts the variants written for one product.
type Result struct {
	Created int
	Deleted int
	Skipped int
}

// Changed reports whether anything was written.
func (r Result) Changed() bool {
	return r.Created > 0 || r.Deleted > 0
}

// Manager applies matrix edits through the platform.
type Manager struct {
	platform adapter.Platform
	logger   *slog.Logger
}

// NewManager creates a manager.
func NewManager(platform adapter.Platform, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{platform: platform, logger: logger}
}

// AddValue creates the combinations needed for attribute=value to exist.
//
// A product without variants gets one variant carrying only value. A
// product that does not define attribute is refused with
// ErrAttributeMissing; creating attributes is not supported. Combinations
// the platform rejects as duplicates (422) are counted as skipped.
func (m *Manager) AddValue(ctx context.Context, p *model.CatalogProduct, attribute, value string) (Result, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Result{}, model.NewValidationError("variant_rules.value", "is required")
	}

	var added []model.Variant
	if len(p.Variants) == 0 {
		added = []model.Variant{{Values: []string{value}}}
	} else {
		idx := p.AttributeIndex(attribute)
		if idx < 0 {
			return Result{}, fmt.Errorf("product %d, attribute %q: %w", p.ID, attribute, model.ErrAttributeMissing)
		}
		added = Combinations(p.Variants, idx, value)
	}

	desired := append(slices.Clone(p.Variants), added...)
	return m.write(ctx, p.ID, reconcile.DiffVariants(p.Variants, desired, false))
}

// RemoveValue deletes every variant carrying value. When attribute is
// defined on the product only that position is compared.
func (m *Manager) RemoveValue(ctx context.Context, p *model.CatalogProduct, attribute, value string) (Result, error) {
	if strings.TrimSpace(value) == "" {
		return Result{}, model.NewValidationError("variant_rules.value", "is required")
	}

	idx := -1
	if strings.TrimSpace(attribute) != "" {
		idx = p.AttributeIndex(attribute)
	}

	removed := make(map[int64]bool)
	for _, v := range Carrying(p.Variants, idx, value) {
		removed[v.ID] = true
	}
	desired := slices.DeleteFunc(slices.Clone(p.Variants), func(v model.Variant) bool { return removed[v.ID] })
	return m.write(ctx, p.ID, reconcile.DiffVariants(p.Variants, desired, false))
}

// write deletes before it creates, so a removed combination never collides
// with a new one. Variants already gone (404) and combinations that already
// exist (422) are counted as skipped.
func (m *Manager) write(ctx context.Context, productID int64, diff *reconcile.VariantDiff) (Result, error) {
	var res Result
	if diff.IsEmpty() {
		return res, nil
	}

	for _, id := range diff.ToDelete {
		if err := m.platform.DeleteVariant(ctx, productID, id); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				res.Skipped++
				continue
			}
			return res, fmt.Errorf("deleting variant %d: %w", id, err)
		}
		res.Deleted++
	}

	for _, v := range diff.ToCreate {
		if _, err := m.platform.CreateVariant(ctx, productID, v); err != nil {
			if errors.Is(err, model.ErrUnprocessable) {
				res.Skipped++
				m.logger.Debug("variant combination exists", "product_id", productID, "values", v.Values)
				continue
			}
			return res, fmt.Errorf("creating variant %v: %w", v.Values, err)
		}
		res.Created++
	}
	return res, nil
}
