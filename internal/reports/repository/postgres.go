package repository

import (
	"context"
	"time"

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

func (r *PGRepository) OrdersForExport(ctx context.Context, receivedAfter, receivedBefore time.Time) ([]model.Order, error) {
	var orders []model.Order
	if err := r.DB.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		WHERE received_at BETWEEN $1 AND $2
		ORDER BY received_at ASC`,
		receivedAfter, receivedBefore); err != nil {
		return nil, errors.Wrap(err, "select orders for export")
	}

	for i := range orders {
		order := &orders[i]
		if err := r.DB.SelectContext(ctx, &order.Sales, `
			SELECT * FROM product_sales WHERE order_ref = $1 ORDER BY sku`,
			order.ID); err != nil {
			return nil, errors.Wrap(err, "select sales for export")
		}

		var country model.Country
		if err := r.DB.GetContext(ctx, &country, `
			SELECT * FROM countries WHERE iso_code = $1`, order.CountryISO); err == nil {
			order.Country = &country
			var region model.Region
			if err := r.DB.GetContext(ctx, &region, `
				SELECT * FROM regions WHERE id = $1`, country.RegionID); err == nil {
				order.Country.Region = &region
			}
		}

		if order.ChannelID != nil {
			var channel model.Channel
			if err := r.DB.GetContext(ctx, &channel, `
				SELECT * FROM channels WHERE id = $1`, *order.ChannelID); err == nil {
				order.Channel = &channel
			}
		}
		if order.ShippingServiceID != nil {
			var service model.ShippingService
			if err := r.DB.GetContext(ctx, &service, `
				SELECT * FROM shipping_services WHERE id = $1`, *order.ShippingServiceID); err == nil {
				order.ShippingService = &service
			}
		}
	}
	return orders, nil
}

func (r *PGRepository) CreateExportWithPurchases(ctx context.Context, export *model.PurchaseExport) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin purchase export tx")
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, `
		INSERT INTO purchase_exports (id, export_date, created_at)
		VALUES (:id, :export_date, :created_at)`, export); err != nil {
		return errors.Wrap(err, "insert purchase export")
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE staff_purchases SET export_id = $1 WHERE export_id IS NULL`,
		export.ID); err != nil {
		return errors.Wrap(err, "attach purchases to export")
	}
	return errors.Wrap(tx.Commit(), "commit purchase export tx")
}

func (r *PGRepository) PurchasesForExport(ctx context.Context, exportID string) ([]model.StaffPurchase, error) {
	var purchases []model.StaffPurchase
	if err := r.DB.SelectContext(ctx, &purchases, `
		SELECT * FROM staff_purchases
		WHERE export_id = $1
		ORDER BY staff_id, created_at`, exportID); err != nil {
		return nil, errors.Wrap(err, "select purchases for export")
	}

	for i := range purchases {
		var staff model.Staff
		if err := r.DB.GetContext(ctx, &staff, `
			SELECT * FROM staff WHERE id = $1`, purchases[i].StaffID); err != nil {
			return nil, errors.Wrap(err, "select purchase staff")
		}
		purchases[i].Staff = &staff
	}
	return purchases, nil
}
