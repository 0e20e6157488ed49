package usecase

import (
	"context"

	"github.com/opsdesk/fulfillment-service/internal/model"
	"github.com/opsdesk/fulfillment-service/internal/shipping"
	"github.com/opsdesk/fulfillment-service/pkg/logger"
)

type pricer struct {
	repo   shipping.Repository
	logger logger.Logger
}

func NewPricer(repo shipping.Repository, log logger.Logger) shipping.Pricer {
	return &pricer{repo: repo, logger: log}
}

// Price looks up the rule by (service, country), falling back to
// (service, region), then dispatches on the rule's price type.
func (p *pricer) Price(ctx context.Context, serviceID int64, country *model.Country, weightG int) (int64, error) {
	price, err := p.repo.ByServiceAndCountry(ctx, serviceID, country.ISOCode)
	if err != nil {
		return 0, err
	}
	if price == nil {
		price, err = p.repo.ByServiceAndRegion(ctx, serviceID, country.RegionID)
		if err != nil {
			return 0, err
		}
	}
	if price == nil {
		return 0, shipping.ErrNoShippingPrice
	}
	return PriceFor(price, weightG)
}

// PriceFor applies a price rule to a weight in grams.
func PriceFor(price *model.ShippingPrice, weightG int) (int64, error) {
	switch price.PriceType {
	case model.PriceTypeFixed:
		return price.ItemPrice, nil
	case model.PriceTypeWeight:
		// Per-kg component rounds down to the penny.
		return price.ItemPrice + int64(weightG)*price.PricePerKG/1000, nil
	case model.PriceTypeWeightBand:
		for _, band := range price.Bands {
			if band.Covers(weightG) {
				return band.Price, nil
			}
		}
		return 0, shipping.ErrNoWeightBand
	default:
		return 0, shipping.ErrNoShippingPrice
	}
}
