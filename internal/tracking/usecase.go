package tracking

import (
	"context"

	"github.com/opsdesk/fulfillment-service/internal/model"
	"github.com/pkg/errors"
)

// ErrNoCarrierMatch means no carrier regex matched the tracking number.
var ErrNoCarrierMatch = errors.New("no carrier matches tracking number")

// MatchCarrier resolves a tracking number to its carrier; the first matching
// regex wins.
func MatchCarrier(carriers []model.TrackingCarrier, trackingNumber string) (*model.TrackingCarrier, error) {
	for i := range carriers {
		if carriers[i].Matches(trackingNumber) {
			return &carriers[i], nil
		}
	}
	return nil, errors.Wrap(ErrNoCarrierMatch, trackingNumber)
}

// OverdueOrder pairs an overdue order with its package and the package's
// latest event.
type OverdueOrder struct {
	Order       model.Order
	Package     *model.TrackedPackage
	LatestEvent *model.TrackingEvent
}

type UseCase interface {
	// UpdatePackages ingests the carrier feed, creating packages and
	// upserting events.
	UpdatePackages(ctx context.Context) error
	// BackfillPackages creates packages for recently dispatched orders the
	// feed missed.
	BackfillPackages(ctx context.Context) error
	// Overdue returns undelivered orders older than their region's delivery
	// threshold, oldest first.
	Overdue(ctx context.Context) ([]OverdueOrder, error)
}
