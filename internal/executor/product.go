package executor

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"storepilot/internal/model"
	"storepilot/internal/mutate"
	"storepilot/internal/reconcile"
	"storepilot/internal/variant"
)

// productFunc computes the patch of one product. An empty patch means the
// product is already in the desired state. sync copies the written values
// onto the mirror row; it is nil when no mirrored column is affected.
type productFunc func(ctx context.Context, env *Env, t *Target) (patch model.ProductPatch, sync func(*model.Product), err error)

// productApplier writes one product-level patch per product.
type productApplier struct {
	change model.Change
	fn     productFunc
}

func (a productApplier) Apply(ctx context.Context, env *Env, t *Target) (Applied, error) {
	patch, sync, err := a.fn(ctx, env, t)
	if err != nil {
		return Applied{}, err
	}
	if patch.IsEmpty() {
		return Applied{}, nil
	}
	if err := env.Platform.UpdateProduct(ctx, t.Remote.ID, patch); err != nil {
		return Applied{}, err
	}

	out := Applied{Changed: true}
	if sync != nil {
		row := t.Mirror
		sync(&row)
		out.Mirror = &row
	}
	return out, nil
}

// writes reports whether a computed value must be sent.
func writes(c model.Change, changed bool) bool {
	return changed || mutate.ForcesWrite(c.Action)
}

// === Text ===

func titleFunc(c model.Change) productFunc {
	return func(_ context.Context, env *Env, t *Target) (model.ProductPatch, func(*model.Product), error) {
		next, err := mutate.Text(t.Remote.Name, c, env.Lang)
		if err != nil {
			return model.ProductPatch{}, nil, err
		}
		next = strings.TrimSpace(next)
		if next == "" {
			return model.ProductPatch{}, nil, model.NewValidationError("title", "would become empty")
		}
		if !writes(c, next != t.Remote.Name) {
			return model.ProductPatch{}, nil, nil
		}
		return model.ProductPatch{Name: &next}, func(p *model.Product) { p.Name = next }, nil
	}
}

func descriptionFunc(c model.Change) productFunc {
	return func(_ context.Context, env *Env, t *Target) (model.ProductPatch, func(*model.Product), error) {
		next, err := mutate.Text(t.Remote.Description, c, env.Lang)
		if err != nil {
			return model.ProductPatch{}, nil, err
		}
		if !writes(c, next != t.Remote.Description) {
			return model.ProductPatch{}, nil, nil
		}
		return model.ProductPatch{Description: &next}, nil, nil
	}
}

// === Catalog ===

func brandFunc(c model.Change) productFunc {
	return func(_ context.Context, env *Env, t *Target) (model.ProductPatch, func(*model.Product), error) {
		next, err := mutate.Brand(t.Remote.Brand, t.Remote.Name, c, env.Lang)
		if err != nil {
			return model.ProductPatch{}, nil, err
		}
		if !writes(c, next != t.Remote.Brand) {
			return model.ProductPatch{}, nil, nil
		}
		return model.ProductPatch{Brand: &next}, func(p *model.Product) { p.Brand = next }, nil
	}
}

func tagsFunc(c model.Change) productFunc {
	return func(_ context.Context, env *Env, t *Target) (model.ProductPatch, func(*model.Product), error) {
		next, err := mutate.Tags(t.Remote.Tags, t.Remote.Name, c, env.Lang)
		if err != nil {
			return model.ProductPatch{}, nil, err
		}
		if !writes(c, next != t.Remote.Tags) {
			return model.ProductPatch{}, nil, nil
		}
		return model.ProductPatch{Tags: &next}, func(p *model.Product) { p.Tags = next }, nil
	}
}

// statusApplier publishes or hides products. It skips rows whose mirror
// already shows the target state, unless the action always writes.
type statusApplier struct {
	productApplier
}

func newStatusApplier(c model.Change) statusApplier {
	return statusApplier{productApplier{change: c, fn: func(_ context.Context, _ *Env, t *Target) (model.ProductPatch, func(*model.Product), error) {
		next, err := mutate.Published(c)
		if err != nil {
			return model.ProductPatch{}, nil, err
		}
		if !writes(c, next != t.Remote.Published) {
			return model.ProductPatch{}, nil, nil
		}
		return model.ProductPatch{Published: &next}, func(p *model.Product) { p.Published = next }, nil
	}}}
}

func (a statusApplier) Skip(_ *Env, row model.Product) bool {
	if mutate.ForcesWrite(a.change.Action) {
		return false
	}
	next, err := mutate.Published(a.change)
	return err == nil && next == row.Published
}

func freeShippingFunc(c model.Change) productFunc {
	return func(_ context.Context, _ *Env, t *Target) (model.ProductPatch, func(*model.Product), error) {
		next, err := mutate.FreeShipping(c)
		if err != nil {
			return model.ProductPatch{}, nil, err
		}
		if !writes(c, next != t.Remote.FreeShipping) {
			return model.ProductPatch{}, nil, nil
		}
		return model.ProductPatch{FreeShipping: &next}, nil, nil
	}
}

// === Related ===

func relatedFunc(c model.Change) productFunc {
	return func(ctx context.Context, env *Env, t *Target) (model.ProductPatch, func(*model.Product), error) {
		var resolved []int64
		if c.Action != model.ActionClearRelated && c.Action != model.ActionClear {
			ids, err := resolveLinks(ctx, env, c)
			if err != nil {
				return model.ProductPatch{}, nil, err
			}
			resolved = ids
		}

		next, err := mutate.Related(t.Remote.Related, resolved, c, env.Parents)
		if err != nil {
			return model.ProductPatch{}, nil, err
		}
		if !writes(c, !slices.Equal(next, t.Remote.Related)) {
			return model.ProductPatch{}, nil, nil
		}
		return model.ProductPatch{Related: &next}, nil, nil
	}
}

// resolveLinks turns the change's link targets into product ids. Numeric
// entries are taken as ids; anything else is looked up by name.
func resolveLinks(ctx context.Context, env *Env, c model.Change) ([]int64, error) {
	phrases := append([]string{}, c.LinkNames...)
	if v := c.Value.String(); v != "" {
		phrases = append(phrases, v)
	}
	phrases = append(phrases, c.Values...)

	var ids []int64
	for _, ph := range phrases {
		ph = strings.TrimSpace(ph)
		if ph == "" {
			continue
		}
		if id, err := strconv.ParseInt(ph, 10, 64); err == nil {
			ids = append(ids, id)
			continue
		}
		if env.Names == nil {
			continue
		}
		found, err := env.Names(ctx, ph)
		if err != nil {
			return nil, err
		}
		ids = append(ids, found...)
	}
	return ids, nil
}

// === Categories ===

// categoryFunc assigns one category per product. REMOVE never creates the
// category; the other actions resolve it, creating missing nodes.
func categoryFunc(action model.Action, name, parent string) productFunc {
	c := model.Change{Field: model.FieldCategory, Action: action}
	return func(ctx context.Context, env *Env, t *Target) (model.ProductPatch, func(*model.Product), error) {
		var id int64
		if action == model.ActionRemove {
			cat, err := env.Categories.ExactMatch(ctx, name)
			if err != nil {
				return model.ProductPatch{}, nil, err
			}
			if cat == nil {
				return model.ProductPatch{}, nil, nil
			}
			id = cat.ID
		} else {
			resolved, err := env.Categories.ResolveOrCreate(ctx, name, parent)
			if err != nil {
				return model.ProductPatch{}, nil, err
			}
			id = resolved
		}

		next, err := mutate.CategoryIDs(t.Remote.Categories, action, id)
		if err != nil {
			return model.ProductPatch{}, nil, err
		}
		// Membership is what counts; the platform does not keep category order.
		diff := reconcile.DiffIDs(t.Remote.Categories, next)
		if !writes(c, !diff.IsEmpty()) {
			return model.ProductPatch{}, nil, nil
		}
		env.Logger.Debug("category membership change",
			"store_id", env.StoreID, "product_id", t.Remote.ID,
			"add", diff.ToAdd, "remove", diff.ToRemove)

		refs, err := categoryRefs(ctx, env, next)
		if err != nil {
			return model.ProductPatch{}, nil, err
		}
		return model.ProductPatch{Categories: &next}, func(p *model.Product) { p.Categories = refs }, nil
	}
}

func categoryRefs(ctx context.Context, env *Env, ids []int64) (model.CategoryList, error) {
	nodes, err := env.Categories.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(nodes))
	for _, n := range nodes {
		names[n.ID] = n.Name
	}
	refs := make(model.CategoryList, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, model.CategoryRef{ID: id, Name: names[id]})
	}
	return refs, nil
}

// === SEO ===

func seoFunc(m model.SEOModifications) productFunc {
	return func(_ context.Context, env *Env, t *Target) (model.ProductPatch, func(*model.Product), error) {
		title, desc := mutate.SEO(t.Remote.SEOTitle, t.Remote.SEODescription, t.Remote.Name, m, env.Lang)

		var patch model.ProductPatch
		if title != t.Remote.SEOTitle {
			patch.SEOTitle = &title
		}
		if desc != t.Remote.SEODescription {
			patch.SEODescription = &desc
		}
		return patch, nil, nil
	}
}

// === Variant matrix ===

type matrixApplier struct {
	rules model.VariantRules
}

func (a matrixApplier) Apply(ctx context.Context, env *Env, t *Target) (Applied, error) {
	var (
		res variant.Result
		err error
	)
	if a.rules.Action == model.ActionAddValue {
		res, err = env.Variants.AddValue(ctx, t.Remote, a.rules.AttributeName, a.rules.Value)
	} else {
		res, err = env.Variants.RemoveValue(ctx, t.Remote, a.rules.AttributeName, a.rules.Value)
	}
	if err != nil {
		return Applied{}, err
	}
	return Applied{Changed: res.Changed()}, nil
}
