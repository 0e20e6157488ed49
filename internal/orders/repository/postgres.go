package repository

import (
	"context"
	"database/sql"
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

const insertOrder = `
	INSERT INTO orders (
		id, order_id, guid, received_at, dispatched_at, cancelled, ignored,
		channel_id, country_iso, shipping_service_id, tracking_number,
		displayed_shipping_price, calculated_shipping_price,
		postage_price_success, tax, currency_code, total_paid, total_paid_gbp,
		packed_by_id, created_at, updated_at
	) VALUES (
		:id, :order_id, :guid, :received_at, :dispatched_at, :cancelled,
		:ignored, :channel_id, :country_iso, :shipping_service_id,
		:tracking_number, :displayed_shipping_price,
		:calculated_shipping_price, :postage_price_success, :tax,
		:currency_code, :total_paid, :total_paid_gbp, :packed_by_id,
		:created_at, :updated_at
	)`

const insertSale = `
	INSERT INTO product_sales (
		id, order_ref, sku, channel_sku, name, weight, quantity, unit_price,
		item_price, item_total_before_tax, tax, purchase_price, supplier,
		hs_code, vat_rate, details_success, created_at, updated_at
	) VALUES (
		:id, :order_ref, :sku, :channel_sku, :name, :weight, :quantity,
		:unit_price, :item_price, :item_total_before_tax, :tax,
		:purchase_price, :supplier, :hs_code, :vat_rate, :details_success,
		:created_at, :updated_at
	)`

func (r *PGRepository) GetByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.DB.GetContext(ctx, &order,
		`SELECT * FROM orders WHERE order_id = $1 LIMIT 1`, orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select order")
	}
	if err := r.loadSales(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *PGRepository) loadSales(ctx context.Context, order *model.Order) error {
	err := r.DB.SelectContext(ctx, &order.Sales,
		`SELECT * FROM product_sales WHERE order_ref = $1 ORDER BY sku`, order.ID)
	return errors.Wrap(err, "select sales for order")
}

func (r *PGRepository) CreateWithSales(ctx context.Context, order *model.Order, sales []model.ProductSale) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin create order")
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, insertOrder, order); err != nil {
		return errors.Wrapf(err, "insert order %s", order.OrderID)
	}
	for _, sale := range sales {
		if _, err := tx.NamedExecContext(ctx, insertSale, sale); err != nil {
			return errors.Wrapf(err, "insert sale %s/%s", order.OrderID, sale.SKU)
		}
	}
	return tx.Commit()
}

func (r *PGRepository) SetGUID(ctx context.Context, id, guid string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE orders SET guid = $1, updated_at = NOW() WHERE id = $2`, guid, id)
	return errors.Wrap(err, "set order guid")
}

func (r *PGRepository) SetCalculatedShippingPrice(ctx context.Context, id string, price *int64, success bool) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE orders
		SET calculated_shipping_price = $1, postage_price_success = $2,
		    updated_at = NOW()
		WHERE id = $3`, price, success, id)
	return errors.Wrap(err, "set calculated shipping price")
}

func (r *PGRepository) SetPackedBy(ctx context.Context, id string, staffID int64) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE orders SET packed_by_id = $1, updated_at = NOW() WHERE id = $2`, staffID, id)
	return errors.Wrap(err, "set packed by")
}

func (r *PGRepository) OrdersNeedingPostagePrice(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	err := r.DB.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		WHERE postage_price_success IS NULL OR postage_price_success = FALSE
		ORDER BY received_at`)
	if err != nil {
		return nil, errors.Wrap(err, "select orders needing postage price")
	}
	for i := range orders {
		if err := r.loadSales(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *PGRepository) SalesNeedingDetails(ctx context.Context) ([]model.ProductSale, error) {
	var sales []model.ProductSale
	err := r.DB.SelectContext(ctx, &sales, `
		SELECT * FROM product_sales
		WHERE details_success IS NULL
		ORDER BY created_at`)
	return sales, errors.Wrap(err, "select sales needing details")
}

func (r *PGRepository) UpdateSaleDetails(ctx context.Context, sale *model.ProductSale) error {
	_, err := r.DB.NamedExecContext(ctx, `
		UPDATE product_sales
		SET name = :name, weight = :weight, purchase_price = :purchase_price,
		    supplier = :supplier, hs_code = :hs_code,
		    details_success = :details_success, updated_at = NOW()
		WHERE id = :id`, sale)
	return errors.Wrap(err, "update sale details")
}

func (r *PGRepository) SetSaleDetailsFailed(ctx context.Context, saleID string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE product_sales
		SET details_success = FALSE, updated_at = NOW()
		WHERE id = $1`, saleID)
	return errors.Wrap(err, "set sale details failed")
}

func (r *PGRepository) DispatchedWithoutPacker(ctx context.Context, since time.Time) ([]model.Order, error) {
	var orders []model.Order
	err := r.DB.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		WHERE dispatched_at >= $1 AND packed_by_id IS NULL AND guid IS NOT NULL
		ORDER BY dispatched_at`, since)
	return orders, errors.Wrap(err, "select orders without packer")
}

func (r *PGRepository) DispatchedWithoutGUID(ctx context.Context, since time.Time) ([]model.Order, error) {
	var orders []model.Order
	err := r.DB.SelectContext(ctx, &orders, `
		SELECT * FROM orders
		WHERE dispatched_at >= $1 AND guid IS NULL
		ORDER BY dispatched_at`, since)
	return orders, errors.Wrap(err, "select orders without guid")
}
