package reference

import (
	"context"
	"time"

	"github.com/opsdesk/fulfillment-service/internal/model"
)

// Repository is the read-mostly reference store: countries, regions,
// currencies, exchange rates, shipping services, channels, staff.
type Repository interface {
	CountryByISO(ctx context.Context, iso string) (*model.Country, error)
	Regions(ctx context.Context) ([]model.Region, error)
	Currencies(ctx context.Context) ([]model.Currency, error)

	// RateOn returns the most recent exchange rate on-or-before date for the
	// currency, nil when none is recorded.
	RateOn(ctx context.Context, currencyCode string, date time.Time) (*model.ExchangeRate, error)
	// SaveRates upserts the given rates in one transaction.
	SaveRates(ctx context.Context, rates []model.ExchangeRate) error

	ServiceByName(ctx context.Context, name string) (*model.ShippingService, error)
	ChannelByName(ctx context.Context, name string) (*model.Channel, error)
	StaffByEmail(ctx context.Context, email string) (*model.Staff, error)
}
