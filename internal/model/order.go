package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is the canonical order. Money fields are pence; nullable columns are
// pointers. Dispatched orders are immutable in their economic fields.
type Order struct {
	BaseModel
	OrderID                 string     `db:"order_id"`
	GUID                    *string    `db:"guid"`
	ReceivedAt              time.Time  `db:"received_at"`
	DispatchedAt            *time.Time `db:"dispatched_at"`
	Cancelled               bool       `db:"cancelled"`
	Ignored                 bool       `db:"ignored"`
	ChannelID               *int64     `db:"channel_id"`
	CountryISO              string     `db:"country_iso"`
	ShippingServiceID       *int64     `db:"shipping_service_id"`
	TrackingNumber          *string    `db:"tracking_number"`
	DisplayedShippingPrice  *int64     `db:"displayed_shipping_price"`
	CalculatedShippingPrice *int64     `db:"calculated_shipping_price"`
	PostagePriceSuccess     *bool      `db:"postage_price_success"`
	Tax                     *int64     `db:"tax"`
	CurrencyCode            *string    `db:"currency_code"`
	TotalPaid               *int64     `db:"total_paid"`
	TotalPaidGBP            *int64     `db:"total_paid_gbp"`
	PackedByID              *int64     `db:"packed_by_id"`

	Sales           []ProductSale    `db:"-"`
	Country         *Country         `db:"-"`
	Channel         *Channel         `db:"-"`
	ShippingService *ShippingService `db:"-"`
}

// ProductSale is one (order, sku) line. ItemPrice = UnitPrice * Quantity.
type ProductSale struct {
	BaseModel
	OrderRef           string           `db:"order_ref"`
	SKU                string           `db:"sku"`
	ChannelSKU         *string          `db:"channel_sku"`
	Name               string           `db:"name"`
	Weight             int              `db:"weight"`
	Quantity           int              `db:"quantity"`
	UnitPrice          int64            `db:"unit_price"`
	ItemPrice          int64            `db:"item_price"`
	ItemTotalBeforeTax int64            `db:"item_total_before_tax"`
	Tax                int64            `db:"tax"`
	PurchasePrice      *int64           `db:"purchase_price"`
	Supplier           *string          `db:"supplier"`
	HSCode             *string          `db:"hs_code"`
	VATRate            *decimal.Decimal `db:"vat_rate"`
	DetailsSuccess     *bool            `db:"details_success"`
}

func (o *Order) IsDispatched() bool {
	return o.DispatchedAt != nil
}

func (o *Order) IsUndispatched() bool {
	return !o.IsDispatched() && !o.Cancelled && !o.Ignored
}

// TotalWeight sums sale weight * quantity, in grams.
func (o *Order) TotalWeight() int {
	total := 0
	for _, s := range o.Sales {
		total += s.Weight * s.Quantity
	}
	return total
}

var oneHundred = decimal.NewFromInt(100)

// VATPaid derives the VAT portion of what was paid. Zero when the country
// never charges VAT; otherwise sums item_price * rate/(100+rate) over sales
// carrying a non-zero rate, rounded to the nearest penny.
func (o *Order) VATPaid() int64 {
	if o.Country != nil && o.Country.VATIsRequired() == VATNever {
		return 0
	}
	var total int64
	for _, s := range o.Sales {
		if s.VATRate == nil || s.VATRate.IsZero() {
			continue
		}
		rate := *s.VATRate
		vat := decimal.NewFromInt(s.ItemPrice).Mul(rate).Div(rate.Add(oneHundred))
		total += vat.Round(0).IntPart()
	}
	return total
}

// ChannelFeePaid sums the channel's percentage fee over each sale.
func (o *Order) ChannelFeePaid() int64 {
	if o.Channel == nil {
		return 0
	}
	var total int64
	for _, s := range o.Sales {
		fee := decimal.NewFromInt(s.ItemPrice).Mul(o.Channel.ChannelFee).Div(oneHundred)
		total += fee.Round(0).IntPart()
	}
	return total
}

// PurchasePrice sums purchase price * quantity over sales with a known price.
func (o *Order) PurchasePrice() int64 {
	var total int64
	for _, s := range o.Sales {
		if s.PurchasePrice != nil {
			total += *s.PurchasePrice * int64(s.Quantity)
		}
	}
	return total
}

// Profit is total paid (GBP) less tax, channel fee, purchase cost and
// calculated shipping.
func (o *Order) Profit() int64 {
	var total, tax, shipping int64
	if o.TotalPaidGBP != nil {
		total = *o.TotalPaidGBP
	}
	if o.Tax != nil {
		tax = *o.Tax
	}
	if o.CalculatedShippingPrice != nil {
		shipping = *o.CalculatedShippingPrice
	}
	return total - tax - o.ChannelFeePaid() - o.PurchasePrice() - shipping
}

// ProfitPercentage is profit as a rounded percentage of total paid, zero when
// nothing was paid.
func (o *Order) ProfitPercentage() int64 {
	if o.TotalPaidGBP == nil || *o.TotalPaidGBP == 0 {
		return 0
	}
	pct := decimal.NewFromInt(o.Profit()).Mul(oneHundred).
		Div(decimal.NewFromInt(*o.TotalPaidGBP))
	return pct.Round(0).IntPart()
}

// ProfitCalculable reports whether every input to Profit is trustworthy: the
// postage price resolved and every sale's details refresh succeeded.
func (o *Order) ProfitCalculable() bool {
	if o.PostagePriceSuccess == nil || !*o.PostagePriceSuccess {
		return false
	}
	for _, s := range o.Sales {
		if s.DetailsSuccess == nil || !*s.DetailsSuccess {
			return false
		}
	}
	return true
}
