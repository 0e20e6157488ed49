package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/opsdesk/fulfillment-service/internal/catalog"
	"github.com/pkg/errors"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetProduct(ctx context.Context, sku string) (*catalog.ProductFacts, error) {
	var facts catalog.ProductFacts
	err := r.DB.GetContext(ctx, &facts, `
		SELECT product_id, sku, name, weight, purchase_price, supplier, hs_code
		FROM products
		WHERE sku = $1
		LIMIT 1`, sku)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select product")
	}
	return &facts, nil
}
