package shipping

import (
	"context"
	"errors"

	"github.com/opsdesk/fulfillment-service/internal/model"
)

var (
	// ErrNoShippingPrice means no rule exists for the service and destination.
	ErrNoShippingPrice = errors.New("no shipping price for service and destination")
	// ErrNoWeightBand means a WEIGHT_BAND rule has no band covering the weight.
	ErrNoWeightBand = errors.New("no weight band covers the weight")
)

// Pricer resolves the shipping price in pence for a service, destination
// country and weight in grams.
type Pricer interface {
	Price(ctx context.Context, serviceID int64, country *model.Country, weightG int) (int64, error)
}
