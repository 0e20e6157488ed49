package fba

import (
	"context"
	"time"

	"github.com/opsdesk/fulfillment-service/internal/model"
)

type Repository interface {
	// Get returns the FBA order by id, nil when unknown.
	Get(ctx context.Context, id string) (*model.FBAOrder, error)
	Create(ctx context.Context, order *model.FBAOrder) error
	// Open returns every order that is not FULFILLED and not ON_HOLD.
	Open(ctx context.Context) ([]model.FBAOrder, error)
	SetPrinted(ctx context.Context, id string, printed bool) error
	SetOnHold(ctx context.Context, id string, onHold bool) error
	// SetPackingDetails records the measured box weight, the sent quantity and
	// the carrier tracking number.
	SetPackingDetails(ctx context.Context, id string, boxWeight, quantitySent int, trackingNumber *string) error
	// Prioritise bumps every queued order down one place and puts the given
	// order at position 1, in one transaction.
	Prioritise(ctx context.Context, id string) error
	Close(ctx context.Context, id string, closedAt time.Time) error

	// ShipmentExport loads the export with its orders, destinations, methods
	// and packages.
	ShipmentExport(ctx context.Context, id string) (*model.FBAShipmentExport, error)
	// DestinationForRegion returns the FBA inbound address for a region, nil
	// when none is configured.
	DestinationForRegion(ctx context.Context, regionID int64) (*model.FBAShipmentDestination, error)
}
