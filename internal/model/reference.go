package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// VATPolicy tags a region or country with how VAT applies to its orders.
type VATPolicy string

const (
	VATAlways      VATPolicy = "ALWAYS"
	VATNever       VATPolicy = "NEVER"
	VATVariable    VATPolicy = "VARIABLE"
	VATFromCountry VATPolicy = "FROM_COUNTRY"
)

// Region groups countries under a shared VAT policy and delivery threshold.
type Region struct {
	ID                       int64           `db:"id"`
	Name                     string          `db:"name"`
	VATPolicy                VATPolicy       `db:"vat_policy"`
	DefaultVATRate           decimal.Decimal `db:"default_vat_rate"`
	FlagIfNotDeliveredByDays int             `db:"flag_if_not_delivered_by_days"`
}

type Country struct {
	ISOCode      string `db:"iso_code"`
	Name         string `db:"name"`
	RegionID     int64  `db:"region_id"`
	CurrencyCode string `db:"currency_code"`
	// VATRequired overrides the region policy; FROM_COUNTRY defers to it.
	VATRequired    VATPolicy        `db:"vat_required"`
	DefaultVATRate *decimal.Decimal `db:"default_vat_rate"`

	Region *Region `db:"-"`
}

// VATIsRequired resolves the effective VAT policy, falling through to the
// region when the country defers. Region must be loaded.
func (c *Country) VATIsRequired() VATPolicy {
	if c.VATRequired != "" && c.VATRequired != VATFromCountry {
		return c.VATRequired
	}
	return c.Region.VATPolicy
}

// VATRate resolves the effective default VAT percentage with the same
// country-then-region fallback.
func (c *Country) VATRate() decimal.Decimal {
	if c.DefaultVATRate != nil {
		return *c.DefaultVATRate
	}
	return c.Region.DefaultVATRate
}

type Currency struct {
	Code   string `db:"code"`
	Symbol string `db:"symbol"`
}

// ExchangeRate is the rate to GBP on a given date; (currency, date) is
// unique and the most recent rate on-or-before a query date is authoritative.
type ExchangeRate struct {
	ID           string          `db:"id"`
	CurrencyCode string          `db:"currency_code"`
	Date         time.Time       `db:"date"`
	Rate         decimal.Decimal `db:"rate"`
}

type ShippingService struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	Active   bool   `db:"active"`
	Priority bool   `db:"priority"`
}

type Channel struct {
	ID         int64           `db:"id"`
	Name       string          `db:"name"`
	ChannelFee decimal.Decimal `db:"channel_fee"`
	IncludeVAT bool            `db:"include_vat"`
	Active     bool            `db:"active"`
}

type Staff struct {
	ID          int64   `db:"id"`
	Name        string  `db:"name"`
	Email       string  `db:"email"`
	SecondEmail *string `db:"second_email"`
}
