package nuvemshop

// Wire types for the Nuvemshop/Tiendanube REST API (v1). Text fields are
// localized maps keyed by language code; money and dimensions travel as
// decimal strings.

// Localized is a per-language string such as {"pt": "Camiseta", "es": "Remera"}.
type Localized map[string]string

// Get returns the value for lang, falling back to pt, es, en and then any
// non-empty entry.
func (l Localized) Get(lang string) string {
	if v := l[lang]; v != "" {
		return v
	}
	for _, fallback := range []string{"pt", "es", "en"} {
		if v := l[fallback]; v != "" {
			return v
		}
	}
	for _, v := range l {
		if v != "" {
			return v
		}
	}
	return ""
}

// Product is the product resource.
type Product struct {
	ID             int64       `json:"id"`
	Name           Localized   `json:"name"`
	Description    Localized   `json:"description"`
	Handle         Localized   `json:"handle"`
	Attributes     []Localized `json:"attributes"`
	Published      bool        `json:"published"`
	FreeShipping   bool        `json:"free_shipping"`
	SEOTitle       Localized   `json:"seo_title"`
	SEODescription Localized   `json:"seo_description"`
	Brand          *string     `json:"brand"`
	Tags           string      `json:"tags"`
	Categories     []Category  `json:"categories"`
	Related        []int64     `json:"related_products,omitempty"`
	Variants       []Variant   `json:"variants"`
}

// Variant is the product variant resource. Nullable fields are pointers so
// writes can send an explicit null (no promotional price, unlimited stock).
type Variant struct {
	ID               int64       `json:"id,omitempty"`
	ProductID        int64       `json:"product_id,omitempty"`
	Price            *string     `json:"price"`
	PromotionalPrice *string     `json:"promotional_price"`
	Cost             *string     `json:"cost"`
	Stock            *int        `json:"stock"`
	StockManagement  bool        `json:"stock_management"`
	SKU              *string     `json:"sku"`
	Barcode          *string     `json:"barcode"`
	Weight           *string     `json:"weight"`
	Width            *string     `json:"width"`
	Height           *string     `json:"height"`
	Depth            *string     `json:"depth"`
	Values           []Localized `json:"values,omitempty"`
	MPN              *string     `json:"mpn"`
	NCM              *string     `json:"ncm"`
	Gender           *string     `json:"gender"`
	AgeGroup         *string     `json:"age_group"`
}

// Category is the category resource. Parent is null for root nodes.
type Category struct {
	ID     int64     `json:"id,omitempty"`
	Name   Localized `json:"name"`
	Handle Localized `json:"handle,omitempty"`
	Parent *int64    `json:"parent"`
}

// ErrorResponse is the body returned with 4xx/5xx statuses.
type ErrorResponse struct {
	Code        int                 `json:"code"`
	Message     string              `json:"message"`
	Description any                 `json:"description"`
	Errors      map[string][]string `json:"errors,omitempty"`
}
