package executor

import (
	"fmt"

	"storepilot/internal/model"
)

// applierFor builds the applier for a plan's mode. Structural category
// edits never reach here; they run once per plan, not per product.
func applierFor(mode model.Mode) (Applier, error) {
	switch m := mode.(type) {
	case model.FieldMode:
		return fieldApplier(m.Change)
	case model.CategoryMode:
		return productApplier{
			change: model.Change{Field: model.FieldCategory, Action: m.Rules.Action},
			fn:     categoryFunc(m.Rules.Action, m.Rules.CategoryName, m.Rules.ParentName),
		}, nil
	case model.SEOMode:
		return productApplier{change: model.Change{Field: model.FieldSEO}, fn: seoFunc(m.Mods)}, nil
	case model.VariantMatrixMode:
		return matrixApplier{rules: m.Rules}, nil
	}
	return nil, model.NewValidationError("plan", fmt.Sprintf("unsupported mode %T", mode))
}

func fieldApplier(c model.Change) (Applier, error) {
	switch c.Field {
	case model.FieldTitle:
		return productApplier{change: c, fn: titleFunc(c)}, nil
	case model.FieldDescription:
		return productApplier{change: c, fn: descriptionFunc(c)}, nil
	case model.FieldBrand:
		return productApplier{change: c, fn: brandFunc(c)}, nil
	case model.FieldTags:
		return productApplier{change: c, fn: tagsFunc(c)}, nil
	case model.FieldStatus:
		return newStatusApplier(c), nil
	case model.FieldRelated:
		return productApplier{change: c, fn: relatedFunc(c)}, nil
	case model.FieldCategory:
		name := c.CategoryName
		if name == "" {
			name = c.Value.String()
		}
		if name == "" {
			return nil, model.NewValidationError("category_name", "required")
		}
		return productApplier{change: c, fn: categoryFunc(c.Action, name, c.ParentName)}, nil

	case model.FieldPrice, model.FieldPromotionalPrice, model.FieldCost:
		return variantApplier{change: c, fn: priceVariant(c)}, nil
	case model.FieldStock:
		return variantApplier{change: c, fn: stockVariant(c)}, nil
	case model.FieldSKU, model.FieldBarcode:
		return variantApplier{change: c, fn: codeVariant(c)}, nil
	case model.FieldDemographics:
		return variantApplier{change: c, fn: demographicsVariant(c)}, nil
	case model.FieldWeight, model.FieldHeight, model.FieldWidth, model.FieldDepth:
		return variantApplier{change: c, fn: dimensionsVariant(c)}, nil
	case model.FieldLogistics:
		if c.Action == model.ActionSetFreeShipping {
			return productApplier{change: c, fn: freeShippingFunc(c)}, nil
		}
		return variantApplier{change: c, fn: dimensionsVariant(c)}, nil
	}
	return nil, model.NewValidationError("field", fmt.Sprintf("unknown field %q", c.Field))
}
