package nuvemshop

import (
	"storepilot/internal/model"
)

// =============================================================================
// VARIANT BATCH BUILDER
// =============================================================================
//
// PUT /products/{id}/variants accepts an array of variants and updates them
// in one request, which turns a price or stock push over a product with many
// variants from N calls into one. The endpoint caps the array size, so the
// builder splits operations into chunks.
//
// Example body:
//
//	[
//	  {"id": 101, "price": "99.90", "stock": 3, ...},
//	  {"id": 102, "price": "99.90", "stock": 0, ...}
//	]
//
// =============================================================================

// maxVariantBatch is the largest array the bulk variant endpoint accepts.
const maxVariantBatch = 50

// VariantBatch collects variant updates for one product.
// Uses fluent API pattern for readability.
type VariantBatch struct {
	productID  int64
	lang       string
	operations []Variant
}

// NewVariantBatch creates a batch for productID, writing localized values in lang.
func NewVariantBatch(productID int64, lang string) *VariantBatch {
	return &VariantBatch{
		productID:  productID,
		lang:       lang,
		operations: make([]Variant, 0),
	}
}

// Update queues the full writable state of v. Variants without an id are
// skipped; they must be created individually.
func (b *VariantBatch) Update(v model.Variant) *VariantBatch {
	if v.ID == 0 {
		return b
	}
	b.operations = append(b.operations, variantToWire(v, b.lang))
	return b
}

// UpdateAll queues every variant in vs.
func (b *VariantBatch) UpdateAll(vs []model.Variant) *VariantBatch {
	for _, v := range vs {
		b.Update(v)
	}
	return b
}

// HasOperations returns true if the batch has any operations.
func (b *VariantBatch) HasOperations() bool {
	return len(b.operations) > 0
}

// OperationCount returns the number of queued variants.
func (b *VariantBatch) OperationCount() int {
	return len(b.operations)
}

// Chunks splits the queued variants into request bodies of at most size
// entries (maxVariantBatch when size is not positive).
func (b *VariantBatch) Chunks(size int) [][]Variant {
	if size <= 0 || size > maxVariantBatch {
		size = maxVariantBatch
	}
	var chunks [][]Variant
	for start := 0; start < len(b.operations); start += size {
		end := min(start+size, len(b.operations))
		chunks = append(chunks, b.operations[start:end])
	}
	return chunks
}
