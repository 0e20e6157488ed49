package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/opsdesk/fulfillment-service/internal/model"
	"github.com/pkg/errors"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) ByServiceAndCountry(ctx context.Context, serviceID int64, iso string) (*model.ShippingPrice, error) {
	return r.get(ctx,
		`SELECT * FROM shipping_prices WHERE service_id = $1 AND country_iso = $2 LIMIT 1`,
		serviceID, iso)
}

func (r *PGRepository) ByServiceAndRegion(ctx context.Context, serviceID, regionID int64) (*model.ShippingPrice, error) {
	return r.get(ctx,
		`SELECT * FROM shipping_prices WHERE service_id = $1 AND region_id = $2 LIMIT 1`,
		serviceID, regionID)
}

func (r *PGRepository) get(ctx context.Context, query string, args ...interface{}) (*model.ShippingPrice, error) {
	var price model.ShippingPrice
	err := r.DB.GetContext(ctx, &price, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select shipping price")
	}

	err = r.DB.SelectContext(ctx, &price.Bands, `
		SELECT * FROM weight_bands
		WHERE shipping_price_id = $1
		ORDER BY min_weight`, price.ID)
	if err != nil {
		return nil, errors.Wrap(err, "select weight bands")
	}
	return &price, nil
}
