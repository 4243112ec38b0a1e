package mutate

import (
	"github.com/shopspring/decimal"

	"storepilot/internal/model"
)

// Dimensions applies SET_DIMENSIONS, ADD_TO_DIMENSIONS or a single-dimension
// SET/ADD (field weight, height, width or depth) to a variant. Every result
// is floored at zero.
func Dimensions(v model.Variant, c model.Change) (model.Variant, error) {
	dims := c.Dimensions
	add := c.Action == model.ActionAddToDimensions

	switch c.Field {
	case model.FieldWeight, model.FieldHeight, model.FieldWidth, model.FieldDepth:
		val, err := c.Value.Decimal()
		if err != nil {
			return v, model.NewValidationError("value", err.Error())
		}
		dims = single(c.Field, val)
		switch c.Action {
		case model.ActionSet:
		case model.ActionAdd:
			add = true
		default:
			return v, unsupported(c)
		}
	default:
		if c.Action != model.ActionSetDimensions && c.Action != model.ActionAddToDimensions {
			return v, unsupported(c)
		}
	}

	if dims == nil {
		return v, model.NewValidationError("dimensions", "at least one dimension is required")
	}

	apply := func(cur decimal.Decimal, in *decimal.Decimal) decimal.Decimal {
		if in == nil {
			return cur
		}
		next := *in
		if add {
			next = cur.Add(*in)
		}
		if next.IsNegative() {
			return decimal.Zero
		}
		return next
	}

	v.Weight = apply(v.Weight, dims.Weight)
	v.Height = apply(v.Height, dims.Height)
	v.Width = apply(v.Width, dims.Width)
	v.Depth = apply(v.Depth, dims.Depth)
	return v, nil
}

func single(f model.Field, val decimal.Decimal) *model.Dimensions {
	d := &model.Dimensions{}
	switch f {
	case model.FieldWeight:
		d.Weight = &val
	case model.FieldHeight:
		d.Height = &val
	case model.FieldWidth:
		d.Width = &val
	case model.FieldDepth:
		d.Depth = &val
	}
	return d
}

// FreeShipping returns the flag SET_FREE_SHIPPING asks for; a missing value
// means enable.
func FreeShipping(c model.Change) (bool, error) {
	if c.Action != model.ActionSetFreeShipping {
		return false, unsupported(c)
	}
	if !c.Value.IsSet() {
		return true, nil
	}
	b, err := c.Value.Bool()
	if err != nil {
		return false, model.NewValidationError("value", err.Error())
	}
	return b, nil
}

// Demographics writes only the classification fields present in the change.
// CLEAR empties the named fields and leaves the rest alone.
func Demographics(v model.Variant, c model.Change) (model.Variant, error) {
	d := c.Demographics
	if d == nil {
		return v, model.NewValidationError("demographics", "at least one field is required")
	}

	set := func(dst *string, src *string) {
		if src == nil {
			return
		}
		if c.Action == model.ActionClear {
			*dst = ""
			return
		}
		*dst = *src
	}

	switch c.Action {
	case model.ActionSet, model.ActionClear:
		set(&v.MPN, d.MPN)
		set(&v.NCM, d.NCM)
		set(&v.Gender, d.Gender)
		set(&v.AgeGroup, d.AgeGroup)
		return v, nil
	}
	return v, unsupported(c)
}
