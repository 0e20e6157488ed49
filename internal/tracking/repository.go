package tracking

import (
	"context"
	"time"

	"github.com/opsdesk/fulfillment-service/internal/model"
)

type Repository interface {
	Carriers(ctx context.Context) ([]model.TrackingCarrier, error)
	// PackageByScurriID returns the package without events, nil when unknown.
	PackageByScurriID(ctx context.Context, scurriID string) (*model.TrackedPackage, error)
	// PackageByTrackingNumber returns the package with its events loaded, nil
	// when unknown.
	PackageByTrackingNumber(ctx context.Context, trackingNumber string) (*model.TrackedPackage, error)
	CreatePackage(ctx context.Context, pkg *model.TrackedPackage) error
	// UpsertEvent inserts the event unless one with the same event_id already
	// exists for the package.
	UpsertEvent(ctx context.Context, event *model.TrackingEvent) error
	// OrdersToBackfill returns orders dispatched inside the window that carry
	// a tracking number with no tracked package.
	OrdersToBackfill(ctx context.Context, dispatchedAfter, dispatchedBefore time.Time) ([]model.Order, error)
	// UndeliveredDispatchedBefore returns dispatched, non-cancelled orders in
	// a region with a tracking number, dispatched before the cutoff, oldest
	// first.
	UndeliveredDispatchedBefore(ctx context.Context, regionID int64, cutoff time.Time) ([]model.Order, error)
}
