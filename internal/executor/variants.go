package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"storepilot/internal/model"
	"storepilot/internal/mutate"
	"storepilot/internal/reconcile"
	"storepilot/internal/variant"
)

// variantFunc computes the new state of one variant.
type variantFunc func(env *Env, t *Target, v model.Variant) (model.Variant, error)

// variantApplier runs a variantFunc over the product's targeted variants
// and pushes the changed rows in one bulk write.
type variantApplier struct {
	change model.Change
	fn     variantFunc
}

func (a variantApplier) Apply(ctx context.Context, env *Env, t *Target) (Applied, error) {
	targets := t.Remote.Variants
	if env.Plan.Scope == model.ScopeVariant {
		targets = variant.Select(t.Remote, env.Plan.FindVariant)
	}
	if len(targets) == 0 {
		// Price, stock and codes live on variants; the platform has no
		// product-level copy to fall back to.
		if len(t.Remote.Variants) == 0 {
			env.Logger.Debug("product has no variants",
				"store_id", env.StoreID, "product_id", t.Remote.ID, "field", a.change.Field)
		}
		return Applied{}, nil
	}

	desired := make([]model.Variant, 0, len(targets))
	var failures []error
	for _, v := range targets {
		next, err := a.fn(env, t, v)
		if err != nil {
			failures = append(failures, fmt.Errorf("variant %d: %w", v.ID, err))
			continue
		}
		desired = append(desired, next)
	}

	diff := reconcile.DiffVariants(targets, desired, mutate.ForcesWrite(a.change.Action))
	if len(diff.ToUpdate) == 0 {
		return Applied{}, errors.Join(failures...)
	}
	if len(failures) > 0 {
		env.Logger.Warn("some variants skipped",
			"store_id", env.StoreID, "product_id", t.Remote.ID, "field", a.change.Field,
			"error", errors.Join(failures...))
	}

	if err := env.Platform.UpdateVariants(ctx, t.Remote.ID, diff.ToUpdate); err != nil {
		return Applied{}, err
	}

	row := t.Mirror
	mergeVariants(&row, diff.ToUpdate)
	return Applied{Changed: true, Mirror: &row}, nil
}

// mergeVariants replaces the mirrored variants by id and refreshes the
// product-level columns derived from them.
func mergeVariants(row *model.Product, updated []model.Variant) {
	byID := make(map[int64]model.Variant, len(updated))
	for _, v := range updated {
		byID[v.ID] = v
	}

	variants := make(model.VariantList, 0, len(row.Variants))
	for _, v := range row.Variants {
		if u, ok := byID[v.ID]; ok {
			v = u
			delete(byID, v.ID)
		}
		variants = append(variants, v)
	}
	for _, u := range updated {
		if _, ok := byID[u.ID]; ok {
			variants = append(variants, u)
		}
	}
	row.Variants = variants

	if len(variants) == 0 {
		return
	}
	first := variants[0]
	row.Price = first.Price
	row.Cost = first.Cost
	row.SKU = first.SKU
	stock := 0
	for _, v := range variants {
		if v.Stock != nil {
			stock += *v.Stock
		}
	}
	row.Stock = stock
}

// === Per-domain variant functions ===

func priceVariant(c model.Change) variantFunc {
	return func(_ *Env, _ *Target, v model.Variant) (model.Variant, error) {
		var cur decimal.NullDecimal
		switch c.Field {
		case model.FieldPrice:
			cur = decimal.NewNullDecimal(v.Price)
		case model.FieldPromotionalPrice:
			cur = v.PromotionalPrice
		case model.FieldCost:
			cur = v.Cost
		}

		cost := v.Cost
		if c.Field == model.FieldCost {
			// A cost never locks against itself.
			cost = decimal.NullDecimal{}
		}
		next, err := mutate.Price(cur, cost, c)
		if err != nil {
			return v, err
		}

		switch c.Field {
		case model.FieldPrice:
			if next.Valid {
				v.Price = next.Decimal
			}
		case model.FieldPromotionalPrice:
			v.PromotionalPrice = next
		case model.FieldCost:
			v.Cost = next
		}
		return v, nil
	}
}

func stockVariant(c model.Change) variantFunc {
	return func(_ *Env, _ *Target, v model.Variant) (model.Variant, error) {
		next, err := mutate.Stock(v.Stock, c)
		if err != nil {
			return v, err
		}
		v.Stock = next
		return v, nil
	}
}

func codeVariant(c model.Change) variantFunc {
	return func(_ *Env, t *Target, v model.Variant) (model.Variant, error) {
		cur := v.SKU
		if c.Field == model.FieldBarcode {
			cur = v.Barcode
		}
		next, err := mutate.Code(cur, t.Remote.ID, v, t.Remote.Variants, c)
		if err != nil {
			return v, err
		}
		if c.Field == model.FieldBarcode {
			v.Barcode = next
		} else {
			v.SKU = next
		}
		return v, nil
	}
}

func dimensionsVariant(c model.Change) variantFunc {
	return func(_ *Env, _ *Target, v model.Variant) (model.Variant, error) {
		return mutate.Dimensions(v, c)
	}
}

func demographicsVariant(c model.Change) variantFunc {
	return func(_ *Env, _ *Target, v model.Variant) (model.Variant, error) {
		return mutate.Demographics(v, c)
	}
}
