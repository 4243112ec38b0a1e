// Package adapter defines the interface for e-commerce platform integrations.
// The executor and the category/variant managers talk to a store only
// through Platform, so tests swap in Mock and production uses the
// Nuvemshop client.
package adapter

import (
	"context"

	"storepilot/internal/model"
)

// Platform abstracts the product, variant and category endpoints of one
// store's e-commerce API. Implementations are bound to a single store.
//
// Errors are *model.APIError values: NotFound for missing resources,
// Unprocessable (422) for rejected writes such as duplicate variant
// combinations, RateLimited and Upstream for transport-level failures.
type Platform interface {
	// GetProduct fetches the current remote state of a product including
	// its variants and attribute names.
	GetProduct(ctx context.Context, productID int64) (*model.CatalogProduct, error)

	// UpdateProduct writes the non-nil fields of patch.
	UpdateProduct(ctx context.Context, productID int64, patch model.ProductPatch) error

	// UpdateVariants writes several variants of one product in a single call.
	UpdateVariants(ctx context.Context, productID int64, variants []model.Variant) error

	// CreateVariant adds one attribute-value combination. A duplicate
	// combination fails with ErrUnprocessable.
	CreateVariant(ctx context.Context, productID int64, v model.Variant) (*model.Variant, error)

	// DeleteVariant removes one variant.
	DeleteVariant(ctx context.Context, productID, variantID int64) error

	// ListCategories returns one page of the category tree (1-based page).
	ListCategories(ctx context.Context, page, perPage int) ([]model.Category, error)

	// CreateCategory creates a node under parent (0 for root).
	CreateCategory(ctx context.Context, name, handle string, parent int64) (*model.Category, error)

	// UpdateCategory writes name and parent of an existing node.
	UpdateCategory(ctx context.Context, c model.Category) error

	// DeleteCategory removes a node.
	DeleteCategory(ctx context.Context, categoryID int64) error
}

// Connector builds a Platform bound to a store's credentials.
type Connector interface {
	ForStore(ctx context.Context, storeID string) (Platform, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context, storeID string) (Platform, error)

// ForStore calls f.
func (f ConnectorFunc) ForStore(ctx context.Context, storeID string) (Platform, error) {
	return f(ctx, storeID)
}

// Static returns a Connector that hands out p for every store.
func Static(p Platform) Connector {
	return ConnectorFunc(func(context.Context, string) (Platform, error) { return p, nil })
}
