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

func (r *PGRepository) Carriers(ctx context.Context) ([]model.TrackingCarrier, error) {
	var carriers []model.TrackingCarrier
	err := r.DB.SelectContext(ctx, &carriers, `
		SELECT * FROM tracking_carriers ORDER BY id`)
	return carriers, errors.Wrap(err, "select tracking carriers")
}

func (r *PGRepository) PackageByScurriID(ctx context.Context, scurriID string) (*model.TrackedPackage, error) {
	var pkg model.TrackedPackage
	err := r.DB.GetContext(ctx, &pkg, `
		SELECT * FROM tracked_packages WHERE scurri_id = $1`, scurriID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select package by scurri id")
	}
	return &pkg, nil
}

func (r *PGRepository) PackageByTrackingNumber(ctx context.Context, trackingNumber string) (*model.TrackedPackage, error) {
	var pkg model.TrackedPackage
	err := r.DB.GetContext(ctx, &pkg, `
		SELECT * FROM tracked_packages WHERE tracking_number = $1`, trackingNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select package by tracking number")
	}
	if err := r.DB.SelectContext(ctx, &pkg.Events, `
		SELECT * FROM tracking_events
		WHERE package_id = $1
		ORDER BY timestamp ASC`, pkg.ID); err != nil {
		return nil, errors.Wrap(err, "select tracking events")
	}
	return &pkg, nil
}

func (r *PGRepository) CreatePackage(ctx context.Context, pkg *model.TrackedPackage) error {
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO tracked_packages (id, scurri_id, carrier_id, tracking_number, created_at, order_ref)
		VALUES (:id, :scurri_id, :carrier_id, :tracking_number, :created_at, :order_ref)`, pkg)
	return errors.Wrap(err, "insert tracked package")
}

func (r *PGRepository) UpsertEvent(ctx context.Context, event *model.TrackingEvent) error {
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO tracking_events (id, package_id, event_id, status, carrier_code, description, timestamp, location)
		VALUES (:id, :package_id, :event_id, :status, :carrier_code, :description, :timestamp, :location)
		ON CONFLICT (package_id, event_id) DO NOTHING`, event)
	return errors.Wrap(err, "upsert tracking event")
}

func (r *PGRepository) OrdersToBackfill(ctx context.Context, dispatchedAfter, dispatchedBefore time.Time) ([]model.Order, error) {
	var orders []model.Order
	err := r.DB.SelectContext(ctx, &orders, `
		SELECT o.* FROM orders o
		LEFT JOIN tracked_packages p ON p.tracking_number = o.tracking_number
		WHERE o.dispatched_at BETWEEN $1 AND $2
		  AND o.tracking_number IS NOT NULL
		  AND p.id IS NULL`,
		dispatchedAfter, dispatchedBefore)
	return orders, errors.Wrap(err, "select orders to backfill")
}

func (r *PGRepository) UndeliveredDispatchedBefore(ctx context.Context, regionID int64, cutoff time.Time) ([]model.Order, error) {
	var orders []model.Order
	err := r.DB.SelectContext(ctx, &orders, `
		SELECT o.* FROM orders o
		JOIN countries c ON c.iso_code = o.country_iso
		WHERE c.region_id = $1
		  AND o.dispatched_at < $2
		  AND o.tracking_number IS NOT NULL
		  AND o.cancelled = FALSE AND o.ignored = FALSE
		ORDER BY o.dispatched_at ASC`,
		regionID, cutoff)
	return orders, errors.Wrap(err, "select undelivered orders")
}
