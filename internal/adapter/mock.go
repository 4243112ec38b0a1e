package adapter

import (
	"context"

	"storepilot/internal/model"
)

// Mock implements Platform for testing.
// Each method can be configured via function fields.
type Mock struct {
	GetProductFunc     func(ctx context.Context, productID int64) (*model.CatalogProduct, error)
	UpdateProductFunc  func(ctx context.Context, productID int64, patch model.ProductPatch) error
	UpdateVariantsFunc func(ctx context.Context, productID int64, variants []model.Variant) error
	CreateVariantFunc  func(ctx context.Context, productID int64, v model.Variant) (*model.Variant, error)
	DeleteVariantFunc  func(ctx context.Context, productID, variantID int64) error
	ListCategoriesFunc func(ctx context.Context, page, perPage int) ([]model.Category, error)
	CreateCategoryFunc func(ctx context.Context, name, handle string, parent int64) (*model.Category, error)
	UpdateCategoryFunc func(ctx context.Context, c model.Category) error
	DeleteCategoryFunc func(ctx context.Context, categoryID int64) error
}

// GetProduct calls the configured GetProductFunc or returns not found.
func (m *Mock) GetProduct(ctx context.Context, productID int64) (*model.CatalogProduct, error) {
	if m.GetProductFunc != nil {
		return m.GetProductFunc(ctx, productID)
	}
	return nil, model.NewNotFoundError("product")
}

// UpdateProduct calls the configured UpdateProductFunc or succeeds.
func (m *Mock) UpdateProduct(ctx context.Context, productID int64, patch model.ProductPatch) error {
	if m.UpdateProductFunc != nil {
		return m.UpdateProductFunc(ctx, productID, patch)
	}
	return nil
}

// UpdateVariants calls the configured UpdateVariantsFunc or succeeds.
func (m *Mock) UpdateVariants(ctx context.Context, productID int64, variants []model.Variant) error {
	if m.UpdateVariantsFunc != nil {
		return m.UpdateVariantsFunc(ctx, productID, variants)
	}
	return nil
}

// CreateVariant calls the configured CreateVariantFunc or echoes v back.
func (m *Mock) CreateVariant(ctx context.Context, productID int64, v model.Variant) (*model.Variant, error) {
	if m.CreateVariantFunc != nil {
		return m.CreateVariantFunc(ctx, productID, v)
	}
	v.ProductID = productID
	return &v, nil
}

// DeleteVariant calls the configured DeleteVariantFunc or succeeds.
func (m *Mock) DeleteVariant(ctx context.Context, productID, variantID int64) error {
	if m.DeleteVariantFunc != nil {
		return m.DeleteVariantFunc(ctx, productID, variantID)
	}
	return nil
}

// ListCategories calls the configured ListCategoriesFunc or returns an empty page.
func (m *Mock) ListCategories(ctx context.Context, page, perPage int) ([]model.Category, error) {
	if m.ListCategoriesFunc != nil {
		return m.ListCategoriesFunc(ctx, page, perPage)
	}
	return nil, nil
}

// CreateCategory calls the configured CreateCategoryFunc or returns an error.
func (m *Mock) CreateCategory(ctx context.Context, name, handle string, parent int64) (*model.Category, error) {
	if m.CreateCategoryFunc != nil {
		return m.CreateCategoryFunc(ctx, name, handle, parent)
	}
	return nil, model.NewInternalError(nil)
}

// UpdateCategory calls the configured UpdateCategoryFunc or succeeds.
func (m *Mock) UpdateCategory(ctx context.Context, c model.Category) error {
	if m.UpdateCategoryFunc != nil {
		return m.UpdateCategoryFunc(ctx, c)
	}
	return nil
}

// DeleteCategory calls the configured DeleteCategoryFunc or succeeds.
func (m *Mock) DeleteCategory(ctx context.Context, categoryID int64) error {
	if m.DeleteCategoryFunc != nil {
		return m.DeleteCategoryFunc(ctx, categoryID)
	}
	return nil
}

// Verify Mock implements Platform interface at compile time.
var _ Platform = (*Mock)(nil)
