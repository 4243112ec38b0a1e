package nuvemshop

import (
	"strings"

	"github.com/shopspring/decimal"

	"storepilot/internal/model"
)

// productFromWire converts the API product to the catalog view, reading
// localized text in lang.
func productFromWire(p *Product, lang string) *model.CatalogProduct {
	out := &model.CatalogProduct{
		ID:             p.ID,
		Name:           p.Name.Get(lang),
		Description:    p.Description.Get(lang),
		Tags:           p.Tags,
		Published:      p.Published,
		FreeShipping:   p.FreeShipping,
		SEOTitle:       p.SEOTitle.Get(lang),
		SEODescription: p.SEODescription.Get(lang),
		Related:        p.Related,
	}
	if p.Brand != nil {
		out.Brand = *p.Brand
	}
	for _, a := range p.Attributes {
		out.Attributes = append(out.Attributes, a.Get(lang))
	}
	for _, c := range p.Categories {
		out.Categories = append(out.Categories, c.ID)
	}
	for _, v := range p.Variants {
		out.Variants = append(out.Variants, variantFromWire(v, lang))
	}
	return out
}

func variantFromWire(v Variant, lang string) model.Variant {
	out := model.Variant{
		ID:               v.ID,
		ProductID:        v.ProductID,
		Price:            model.ParseMoney(deref(v.Price)),
		PromotionalPrice: model.ParseNullMoney(v.PromotionalPrice),
		Cost:             model.ParseNullMoney(v.Cost),
		SKU:              deref(v.SKU),
		Barcode:          deref(v.Barcode),
		Weight:           model.ParseMoney(deref(v.Weight)),
		Width:            model.ParseMoney(deref(v.Width)),
		Height:           model.ParseMoney(deref(v.Height)),
		Depth:            model.ParseMoney(deref(v.Depth)),
		MPN:              deref(v.MPN),
		NCM:              deref(v.NCM),
		Gender:           deref(v.Gender),
		AgeGroup:         deref(v.AgeGroup),
	}
	// Without stock management the platform reports unlimited inventory.
	if v.StockManagement && v.Stock != nil {
		n := *v.Stock
		out.Stock = &n
	}
	for _, val := range v.Values {
		out.Values = append(out.Values, val.Get(lang))
	}
	return out
}

// variantToWire renders the full writable state of a variant.
func variantToWire(v model.Variant, lang string) Variant {
	out := Variant{
		ID:               v.ID,
		Price:            ptr(model.FormatMoney(v.Price)),
		PromotionalPrice: nullMoney(v.PromotionalPrice),
		Cost:             nullMoney(v.Cost),
		Stock:            v.Stock,
		StockManagement:  v.Stock != nil,
		SKU:              ptr(v.SKU),
		Barcode:          ptr(v.Barcode),
		Weight:           ptr(formatDimension(v.Weight)),
		Width:            ptr(formatDimension(v.Width)),
		Height:           ptr(formatDimension(v.Height)),
		Depth:            ptr(formatDimension(v.Depth)),
		MPN:              optional(v.MPN),
		NCM:              optional(v.NCM),
		Gender:           optional(v.Gender),
		AgeGroup:         optional(v.AgeGroup),
	}
	for _, val := range v.Values {
		out.Values = append(out.Values, Localized{lang: val})
	}
	return out
}

// patchToWire builds the PUT /products/{id} body from the non-nil fields.
func patchToWire(p model.ProductPatch, lang string) map[string]any {
	body := make(map[string]any)
	if p.Name != nil {
		body["name"] = Localized{lang: *p.Name}
	}
	if p.Description != nil {
		body["description"] = Localized{lang: *p.Description}
	}
	if p.Brand != nil {
		body["brand"] = *p.Brand
	}
	if p.Tags != nil {
		body["tags"] = *p.Tags
	}
	if p.Published != nil {
		body["published"] = *p.Published
	}
	if p.FreeShipping != nil {
		body["free_shipping"] = *p.FreeShipping
	}
	if p.SEOTitle != nil {
		body["seo_title"] = Localized{lang: *p.SEOTitle}
	}
	if p.SEODescription != nil {
		body["seo_description"] = Localized{lang: *p.SEODescription}
	}
	if p.Categories != nil {
		ids := *p.Categories
		if ids == nil {
			ids = []int64{}
		}
		body["categories"] = ids
	}
	if p.Related != nil {
		ids := *p.Related
		if ids == nil {
			ids = []int64{}
		}
		body["related_products"] = ids
	}
	return body
}

func categoryFromWire(c Category, lang string) model.Category {
	out := model.Category{
		ID:     c.ID,
		Name:   c.Name.Get(lang),
		Handle: c.Handle.Get(lang),
	}
	if c.Parent != nil {
		out.Parent = *c.Parent
	}
	return out
}

func categoryToWire(c model.Category, lang string) Category {
	out := Category{
		ID:   c.ID,
		Name: Localized{lang: c.Name},
	}
	if c.Handle != "" {
		out.Handle = Localized{lang: c.Handle}
	}
	if c.Parent != 0 {
		parent := c.Parent
		out.Parent = &parent
	}
	return out
}

// formatDimension trims trailing zeros: "0.500" → "0.5".
func formatDimension(d decimal.Decimal) string {
	return d.String()
}

func nullMoney(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	return ptr(model.FormatMoney(d.Decimal))
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func ptr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
