package catalog

import "context"

// ProductFacts is the stable product projection the pipeline consumes.
// Weight is grams, purchase price is pence.
type ProductFacts struct {
	ProductID     string `db:"product_id" json:"product_id"`
	SKU           string `db:"sku" json:"sku"`
	Name          string `db:"name" json:"name"`
	Weight        int    `db:"weight" json:"weight"`
	PurchasePrice int64  `db:"purchase_price" json:"purchase_price"`
	Supplier      string `db:"supplier" json:"supplier"`
	HSCode        string `db:"hs_code" json:"hs_code"`
}

// Repository reads product records. Mutations belong to other subsystems.
type Repository interface {
	GetProduct(ctx context.Context, sku string) (*ProductFacts, error)
}
