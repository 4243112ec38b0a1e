package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Product is a row of the local catalog mirror. The sync subsystem owns it;
// bulk edits only read it for filtering and write back select scalar columns
// after a confirmed remote write.
type Product struct {
	ID         int64               `db:"id" json:"id"`
	ExternalID int64               `db:"external_id" json:"external_id"`
	StoreID    string              `db:"store_id" json:"store_id"`
	Name       string              `db:"name" json:"name"`
	Price      decimal.Decimal     `db:"price" json:"price"`
	Stock      int                 `db:"stock" json:"stock"`
	SKU        string              `db:"sku" json:"sku"`
	Cost       decimal.NullDecimal `db:"cost" json:"cost"`
	Brand      string              `db:"brand" json:"brand"`
	Tags       string              `db:"tags" json:"tags"`
	Published  bool                `db:"published" json:"published"`
	Categories CategoryList        `db:"categories" json:"categories"`
	Variants   VariantList         `db:"variants" json:"variants"`
}

// Variant is one attribute-value combination of a product with its own
// price, stock and codes. Stock nil means unlimited inventory.
type Variant struct {
	ID               int64               `json:"id"`
	ProductID        int64               `json:"product_id,omitempty"`
	Price            decimal.Decimal     `json:"price"`
	PromotionalPrice decimal.NullDecimal `json:"promotional_price"`
	Cost             decimal.NullDecimal `json:"cost"`
	Stock            *int                `json:"stock"`
	SKU              string              `json:"sku,omitempty"`
	Barcode          string              `json:"barcode,omitempty"`
	Weight           decimal.Decimal     `json:"weight"`
	Height           decimal.Decimal     `json:"height"`
	Width            decimal.Decimal     `json:"width"`
	Depth            decimal.Decimal     `json:"depth"`
	Values           []string            `json:"values,omitempty"`
	MPN              string              `json:"mpn,omitempty"`
	NCM              string              `json:"ncm,omitempty"`
	Gender           string              `json:"gender,omitempty"`
	AgeGroup         string              `json:"age_group,omitempty"`
}

// HasValue reports whether any attribute value equals v, ignoring case.
func (v Variant) HasValue(value string) bool {
	for _, s := range v.Values {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(value)) {
			return true
		}
	}
	return false
}

// CategoryRef is a category as serialized in the mirror: id plus the name
// the filter matches against.
type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CategoryList is the serialized categories blob of a mirror row.
type CategoryList []CategoryRef

func (l CategoryList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]CategoryRef(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *CategoryList) Scan(src any) error {
	return scanJSON(src, (*[]CategoryRef)(l))
}

// IDs returns the category ids in order.
func (l CategoryList) IDs() []int64 {
	ids := make([]int64, 0, len(l))
	for _, c := range l {
		ids = append(ids, c.ID)
	}
	return ids
}

// VariantList is the serialized variants blob of a mirror row.
type VariantList []Variant

func (l VariantList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]Variant(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *VariantList) Scan(src any) error {
	return scanJSON(src, (*[]Variant)(l))
}

func scanJSON(src any, dst any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported column type %T", src)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}

// CatalogProduct is the remote, platform-side view of a product as returned
// by a GET. Mutators compute from this state rather than from the mirror,
// since the remote is the source of truth.
type CatalogProduct struct {
	ID             int64
	Name           string
	Description    string
	Brand          string
	Tags           string
	Published      bool
	FreeShipping   bool
	SEOTitle       string
	SEODescription string
	Categories     []int64
	Related        []int64
	Attributes     []string
	Variants       []Variant
}

// AttributeIndex returns the position of the named attribute, or -1.
func (p *CatalogProduct) AttributeIndex(name string) int {
	for i, a := range p.Attributes {
		if strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(name)) {
			return i
		}
	}
	return -1
}

// ProductPatch is a partial product update. Nil fields are not sent.
type ProductPatch struct {
	Name           *string
	Description    *string
	Brand          *string
	Tags           *string
	Published      *bool
	FreeShipping   *bool
	SEOTitle       *string
	SEODescription *string
	Categories     *[]int64
	Related        *[]int64
}

// IsEmpty reports whether the patch carries no field.
func (p ProductPatch) IsEmpty() bool {
	return p == ProductPatch{}
}

// Category is a node of a store's category tree. Parent 0 means root.
type Category struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Parent int64  `json:"parent"`
	Handle string `json:"handle,omitempty"`
}

// Store holds the per-store credentials used to reach the platform API.
type Store struct {
	StoreID     string `db:"store_id"`
	AccessToken string `db:"access_token"`
	Language    string `db:"language"`
}

// FormatID renders a platform id the way it appears in URLs and SKUs.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
