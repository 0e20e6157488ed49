package shipping

import (
	"context"

	"github.com/opsdesk/fulfillment-service/internal/model"
)

// Repository looks up shipping price rules; weight bands come loaded.
// Lookups return nil when no rule exists for the scope.
type Repository interface {
	ByServiceAndCountry(ctx context.Context, serviceID int64, iso string) (*model.ShippingPrice, error)
	ByServiceAndRegion(ctx context.Context, serviceID, regionID int64) (*model.ShippingPrice, error)
}
