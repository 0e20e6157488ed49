package catalog

import "context"

type UseCase interface {
	// GetProduct returns the product facts for a SKU, nil when unknown.
	GetProduct(ctx context.Context, sku string) (*ProductFacts, error)
	// UpdateStockLevel applies a delta to the OMS stock level for a SKU. In
	// debug mode the write is suppressed with a warning.
	UpdateStockLevel(ctx context.Context, sku string, delta int) error
}
