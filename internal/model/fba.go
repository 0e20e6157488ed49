package model

import "time"

type FBAStatus string

const (
	FBANotProcessed    FBAStatus = "NOT_PROCESSED"
	FBAPrinted         FBAStatus = "PRINTED"
	FBAAwaitingBooking FBAStatus = "AWAITING_BOOKING"
	FBAFulfilled       FBAStatus = "FULFILLED"
	FBAOnHold          FBAStatus = "ON_HOLD"
)

// MaxFBAPriority is the default queue position; 1 is the top of the queue.
const MaxFBAPriority = 999

// FBAOrder is an outbound FBA shipment plan for one SKU, carrying a product
// snapshot taken at creation time.
type FBAOrder struct {
	BaseModel
	RegionID             int64      `db:"region_id"`
	ProductSKU           string     `db:"product_sku"`
	ProductID            string     `db:"product_id"`
	ProductName          string     `db:"product_name"`
	ProductWeight        int        `db:"product_weight"`
	ProductHSCode        string     `db:"product_hs_code"`
	ProductPurchasePrice int64      `db:"product_purchase_price"`
	ApproxQuantity       int        `db:"approx_quantity"`
	QuantitySent         *int       `db:"quantity_sent"`
	BoxWeight            *int       `db:"box_weight"`
	TrackingNumber       *string    `db:"tracking_number"`
	Priority             int        `db:"priority"`
	Printed              bool       `db:"printed"`
	OnHold               bool       `db:"on_hold"`
	ClosedAt             *time.Time `db:"closed_at"`

	Region *Region `db:"-"`
}

// DetailsComplete reports whether the packing details needed for booking are
// both recorded.
func (o *FBAOrder) DetailsComplete() bool {
	return o.BoxWeight != nil && o.QuantitySent != nil
}

// Status is a pure function of the flag set.
func (o *FBAOrder) Status() FBAStatus {
	switch {
	case o.OnHold:
		return FBAOnHold
	case o.ClosedAt != nil:
		return FBAFulfilled
	case o.DetailsComplete():
		return FBAAwaitingBooking
	case o.Printed:
		return FBAPrinted
	default:
		return FBANotProcessed
	}
}

// StatusBucket orders the work queue: bookable orders first, then printed,
// then untouched, then everything else.
func StatusBucket(s FBAStatus) int {
	switch s {
	case FBAAwaitingBooking:
		return 0
	case FBAPrinted:
		return 1
	case FBANotProcessed:
		return 2
	default:
		return 3
	}
}

// FBAShipmentExport aggregates shipment orders into one carrier CSV export.
type FBAShipmentExport struct {
	BaseModel
	Description string `db:"description"`

	Orders []FBAShipmentOrder `db:"-"`
}

type FBAShipmentDestination struct {
	ID                int64  `db:"id"`
	Name              string `db:"name"`
	RecipientLastName string `db:"recipient_last_name"`
	Address1          string `db:"address_1"`
	Address2          string `db:"address_2"`
	Address3          string `db:"address_3"`
	City              string `db:"city"`
	State             string `db:"state"`
	Country           string `db:"country"`
	Postcode          string `db:"postcode"`
}

type FBAShipmentMethod struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type FBAShipmentOrder struct {
	ID            string `db:"id"`
	ExportID      string `db:"export_id"`
	OrderNumber   string `db:"order_number"`
	DestinationID int64  `db:"destination_id"`
	MethodID      int64  `db:"method_id"`

	Destination *FBAShipmentDestination `db:"-"`
	Method      *FBAShipmentMethod      `db:"-"`
	Packages    []FBAShipmentPackage    `db:"-"`
}

// FBAShipmentPackage is one physical package row in the carrier CSV; value is
// pence, dimensions are centimetres, weight is grams.
type FBAShipmentPackage struct {
	ID              string `db:"id"`
	ShipmentOrderID string `db:"shipment_order_id"`
	LengthCM        int    `db:"length_cm"`
	WidthCM         int    `db:"width_cm"`
	HeightCM        int    `db:"height_cm"`
	Description     string `db:"description"`
	SKU             string `db:"sku"`
	WeightG         int    `db:"weight_g"`
	ValuePence      int64  `db:"value_pence"`
	Quantity        int    `db:"quantity"`
	CountryOfOrigin string `db:"country_of_origin"`
	HSCode          string `db:"hs_code"`
}
