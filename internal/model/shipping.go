package model

import "errors"

type PriceType string

const (
	PriceTypeFixed      PriceType = "FIXED"
	PriceTypeWeight     PriceType = "WEIGHT"
	PriceTypeWeightBand PriceType = "WEIGHT_BAND"
)

// ShippingPrice is a pricing rule for a service scoped to exactly one of a
// country or a region.
type ShippingPrice struct {
	ID         int64     `db:"id"`
	ServiceID  int64     `db:"service_id"`
	CountryISO *string   `db:"country_iso"`
	RegionID   *int64    `db:"region_id"`
	PriceType  PriceType `db:"price_type"`
	ItemPrice  int64     `db:"item_price"`
	PricePerKG int64     `db:"price_per_kg"`

	Bands []WeightBand `db:"-"`
}

var ErrPriceScope = errors.New("shipping price must set exactly one of country or region")

func (p *ShippingPrice) Validate() error {
	if (p.CountryISO == nil) == (p.RegionID == nil) {
		return ErrPriceScope
	}
	return nil
}

// WeightBand prices a weight range inclusive on both ends.
type WeightBand struct {
	ID              int64 `db:"id"`
	ShippingPriceID int64 `db:"shipping_price_id"`
	MinWeight       int   `db:"min_weight"`
	MaxWeight       int   `db:"max_weight"`
	Price           int64 `db:"price"`
}

func (b *WeightBand) Covers(weightG int) bool {
	return weightG >= b.MinWeight && weightG <= b.MaxWeight
}
