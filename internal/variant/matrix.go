// Package variant manipulates a product's variant matrix: adding an
// attribute value synthesizes the missing combinations from existing
// variants, removing one deletes every variant carrying it.
package variant

import (
	"strings"

	"storepilot/internal/model"
)

// Combinations returns the variants to create so that value exists at
// position idx for every combination of the other attributes already
// present. Each new variant is cloned from the first variant with the same
// other values; codes and ids are not copied and managed stock starts at 0.
// Combinations that already carry value produce nothing.
func Combinations(variants []model.Variant, idx int, value string) []model.Variant {
	existing := make(map[string]bool)
	for _, v := range variants {
		if idx < len(v.Values) && strings.EqualFold(strings.TrimSpace(v.Values[idx]), strings.TrimSpace(value)) {
			existing[otherKey(v.Values, idx)] = true
		}
	}

	var out []model.Variant
	for _, v := range variants {
		key := otherKey(v.Values, idx)
		if existing[key] {
			continue
		}
		existing[key] = true
		out = append(out, clone(v, idx, value))
	}
	return out
}

// clone copies the commercial data of template and substitutes value at idx.
func clone(template model.Variant, idx int, value string) model.Variant {
	v := template
	v.ID = 0
	v.SKU = ""
	v.Barcode = ""

	values := append([]string(nil), template.Values...)
	for len(values) <= idx {
		values = append(values, "")
	}
	values[idx] = strings.TrimSpace(value)
	v.Values = values

	if template.Stock != nil {
		zero := 0
		v.Stock = &zero
	}
	return v
}

// otherKey identifies a combination by every value except the one at idx.
func otherKey(values []string, idx int) string {
	var b strings.Builder
	for i, s := range values {
		if i == idx {
			continue
		}
		b.WriteString(strings.ToLower(strings.TrimSpace(s)))
		b.WriteByte(0)
	}
	return b.String()
}

// Carrying returns the variants holding value. When idx is a valid attribute
// position only that position is compared; otherwise any position matches.
func Carrying(variants []model.Variant, idx int, value string) []model.Variant {
	var out []model.Variant
	for _, v := range variants {
		if idx >= 0 {
			if idx < len(v.Values) && strings.EqualFold(strings.TrimSpace(v.Values[idx]), strings.TrimSpace(value)) {
				out = append(out, v)
			}
			continue
		}
		if v.HasValue(value) {
			out = append(out, v)
		}
	}
	return out
}

// Select returns the variants of p satisfying every constraint. A constraint
// naming an attribute compares the value at that attribute's position; an
// unknown attribute matches nothing; an unnamed constraint matches any
// position.
func Select(p *model.CatalogProduct, constraints []model.VariantConstraint) []model.Variant {
	if len(constraints) == 0 {
		return p.Variants
	}
	var out []model.Variant
	for _, v := range p.Variants {
		if matchesAll(p, v, constraints) {
			out = append(out, v)
		}
	}
	return out
}

func matchesAll(p *model.CatalogProduct, v model.Variant, constraints []model.VariantConstraint) bool {
	for _, c := range constraints {
		if strings.TrimSpace(c.Value) == "" {
			continue
		}
		if strings.TrimSpace(c.Name) == "" {
			if !v.HasValue(c.Value) {
				return false
			}
			continue
		}
		idx := p.AttributeIndex(c.Name)
		if idx < 0 || idx >= len(v.Values) || !strings.EqualFold(strings.TrimSpace(v.Values[idx]), strings.TrimSpace(c.Value)) {
			return false
		}
	}
	return true
}
