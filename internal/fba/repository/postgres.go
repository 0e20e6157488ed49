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

func (r *PGRepository) Get(ctx context.Context, id string) (*model.FBAOrder, error) {
	var order model.FBAOrder
	err := r.DB.GetContext(ctx, &order, `SELECT * FROM fba_orders WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select fba order")
	}
	return &order, nil
}

func (r *PGRepository) Create(ctx context.Context, order *model.FBAOrder) error {
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO fba_orders (
			id, created_at, updated_at, region_id, product_sku, product_id,
			product_name, product_weight, product_hs_code, product_purchase_price,
			approx_quantity, quantity_sent, box_weight, tracking_number,
			priority, printed, on_hold, closed_at
		) VALUES (
			:id, :created_at, :updated_at, :region_id, :product_sku, :product_id,
			:product_name, :product_weight, :product_hs_code, :product_purchase_price,
			:approx_quantity, :quantity_sent, :box_weight, :tracking_number,
			:priority, :printed, :on_hold, :closed_at
		)`, order)
	return errors.Wrap(err, "insert fba order")
}

func (r *PGRepository) Open(ctx context.Context) ([]model.FBAOrder, error) {
	var orders []model.FBAOrder
	err := r.DB.SelectContext(ctx, &orders, `
		SELECT * FROM fba_orders
		WHERE closed_at IS NULL AND on_hold = FALSE
		ORDER BY created_at ASC`)
	return orders, errors.Wrap(err, "select open fba orders")
}

func (r *PGRepository) SetPrinted(ctx context.Context, id string, printed bool) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE fba_orders SET printed = $1, updated_at = NOW() WHERE id = $2`,
		printed, id)
	return errors.Wrap(err, "set fba order printed")
}

func (r *PGRepository) SetOnHold(ctx context.Context, id string, onHold bool) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE fba_orders SET on_hold = $1, updated_at = NOW() WHERE id = $2`,
		onHold, id)
	return errors.Wrap(err, "set fba order on hold")
}

func (r *PGRepository) SetPackingDetails(ctx context.Context, id string, boxWeight, quantitySent int, trackingNumber *string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE fba_orders
		SET box_weight = $1, quantity_sent = $2, tracking_number = $3, updated_at = NOW()
		WHERE id = $4`,
		boxWeight, quantitySent, trackingNumber, id)
	return errors.Wrap(err, "set fba order packing details")
}

func (r *PGRepository) Prioritise(ctx context.Context, id string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin prioritise tx")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE fba_orders SET priority = priority + 1 WHERE priority < $1`,
		model.MaxFBAPriority); err != nil {
		return errors.Wrap(err, "shift fba priorities")
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE fba_orders SET priority = 1, updated_at = NOW() WHERE id = $1`,
		id); err != nil {
		return errors.Wrap(err, "set fba order priority")
	}
	return errors.Wrap(tx.Commit(), "commit prioritise tx")
}

func (r *PGRepository) Close(ctx context.Context, id string, closedAt time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE fba_orders SET closed_at = $1, updated_at = NOW() WHERE id = $2`,
		closedAt, id)
	return errors.Wrap(err, "close fba order")
}

func (r *PGRepository) ShipmentExport(ctx context.Context, id string) (*model.FBAShipmentExport, error) {
	var export model.FBAShipmentExport
	err := r.DB.GetContext(ctx, &export, `
		SELECT * FROM fba_shipment_exports WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select shipment export")
	}

	var orders []model.FBAShipmentOrder
	if err := r.DB.SelectContext(ctx, &orders, `
		SELECT * FROM fba_shipment_orders WHERE export_id = $1 ORDER BY order_number`,
		id); err != nil {
		return nil, errors.Wrap(err, "select shipment orders")
	}

	for i := range orders {
		order := &orders[i]

		var dest model.FBAShipmentDestination
		if err := r.DB.GetContext(ctx, &dest, `
			SELECT * FROM fba_shipment_destinations WHERE id = $1`,
			order.DestinationID); err != nil {
			return nil, errors.Wrap(err, "select shipment destination")
		}
		order.Destination = &dest

		var method model.FBAShipmentMethod
		if err := r.DB.GetContext(ctx, &method, `
			SELECT * FROM fba_shipment_methods WHERE id = $1`,
			order.MethodID); err != nil {
			return nil, errors.Wrap(err, "select shipment method")
		}
		order.Method = &method

		if err := r.DB.SelectContext(ctx, &order.Packages, `
			SELECT * FROM fba_shipment_packages
			WHERE shipment_order_id = $1
			ORDER BY sku`, order.ID); err != nil {
			return nil, errors.Wrap(err, "select shipment packages")
		}
	}
	export.Orders = orders
	return &export, nil
}

func (r *PGRepository) DestinationForRegion(ctx context.Context, regionID int64) (*model.FBAShipmentDestination, error) {
	var dest model.FBAShipmentDestination
	err := r.DB.GetContext(ctx, &dest, `
		SELECT d.* FROM fba_shipment_destinations d
		JOIN fba_region_destinations rd ON rd.destination_id = d.id
		WHERE rd.region_id = $1
		LIMIT 1`, regionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select region destination")
	}
	return &dest, nil
}
