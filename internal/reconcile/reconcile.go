// Package reconcile computes the delta between a product's current remote
// state and the state a mutation wants, so callers issue only the writes
// that actually change something.
package reconcile

import (
	"slices"

	"github.com/shopspring/decimal"

	"storepilot/internal/model"
)

// VariantDiff describes the variant writes needed to reach the desired state.
// Apply in order: Delete → Update → Create, so a removed combination never
// collides with a new one.
type VariantDiff struct {
	ToCreate []model.Variant // desired rows without an id
	ToUpdate []model.Variant // rows present in both with different content
	ToDelete []int64         // ids present in current but not desired
}

// IsEmpty returns true if no variant writes are needed.
func (d *VariantDiff) IsEmpty() bool {
	return len(d.ToCreate) == 0 && len(d.ToUpdate) == 0 && len(d.ToDelete) == 0
}

// DiffVariants matches rows by id. Desired rows with id 0 are new; desired
// rows whose id is unknown to current are ignored, since the platform assigns
// ids and a stale id cannot be created. Current rows with id 0 were never
// saved and are never deleted.
//
// force marks every matched row for update even when unchanged, for actions
// that must reach the platform regardless of the mirrored state.
func DiffVariants(current, desired []model.Variant, force bool) *VariantDiff {
	diff := &VariantDiff{}

	currentByID := make(map[int64]model.Variant, len(current))
	for _, v := range current {
		currentByID[v.ID] = v
	}

	desiredIDs := make(map[int64]bool, len(desired))
	for _, v := range desired {
		if v.ID == 0 {
			diff.ToCreate = append(diff.ToCreate, v)
			continue
		}
		desiredIDs[v.ID] = true
		cur, ok := currentByID[v.ID]
		if !ok {
			continue
		}
		if force || !SameVariant(cur, v) {
			diff.ToUpdate = append(diff.ToUpdate, v)
		}
	}

	for _, v := range current {
		if v.ID != 0 && !desiredIDs[v.ID] {
			diff.ToDelete = append(diff.ToDelete, v.ID)
		}
	}

	return diff
}

// SameVariant compares two variant rows field by field, treating decimals
// numerically so "10" and "10.00" are equal.
func SameVariant(a, b model.Variant) bool {
	return a.ID == b.ID &&
		a.Price.Equal(b.Price) &&
		sameNull(a.PromotionalPrice, b.PromotionalPrice) &&
		sameNull(a.Cost, b.Cost) &&
		sameStock(a.Stock, b.Stock) &&
		a.SKU == b.SKU && a.Barcode == b.Barcode &&
		a.Weight.Equal(b.Weight) && a.Height.Equal(b.Height) &&
		a.Width.Equal(b.Width) && a.Depth.Equal(b.Depth) &&
		slices.Equal(a.Values, b.Values) &&
		a.MPN == b.MPN && a.NCM == b.NCM &&
		a.Gender == b.Gender && a.AgeGroup == b.AgeGroup
}

func sameNull(a, b decimal.NullDecimal) bool {
	if a.Valid != b.Valid {
		return false
	}
	return !a.Valid || a.Decimal.Equal(b.Decimal)
}

func sameStock(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// IDDiff describes membership changes to an id list such as a product's
// categories.
type IDDiff struct {
	ToAdd    []int64
	ToRemove []int64
}

// IsEmpty returns true if both lists hold the same ids.
func (d *IDDiff) IsEmpty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// DiffIDs is a set difference; order and repeats are ignored. Results keep
// the order of their source list.
func DiffIDs(current, desired []int64) *IDDiff {
	diff := &IDDiff{}

	currentSet := make(map[int64]bool, len(current))
	for _, id := range current {
		currentSet[id] = true
	}
	desiredSet := make(map[int64]bool, len(desired))
	for _, id := range desired {
		desiredSet[id] = true
	}

	for _, id := range desired {
		if !currentSet[id] {
			diff.ToAdd = append(diff.ToAdd, id)
			currentSet[id] = true
		}
	}
	for _, id := range current {
		if !desiredSet[id] {
			diff.ToRemove = append(diff.ToRemove, id)
			desiredSet[id] = true
		}
	}

	return diff
}
