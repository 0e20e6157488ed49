package fba

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// CreateOrderInput starts a shipment plan for one SKU. The product snapshot
// is taken from the catalog at creation time.
type CreateOrderInput struct {
	RegionID       int64  `json:"region_id" validate:"required"`
	SKU            string `json:"sku" validate:"required"`
	ApproxQuantity int    `json:"approx_quantity" validate:"required,gt=0"`
}

func (in CreateOrderInput) Validate() error {
	return validate.Struct(in)
}

// PackingDetailsInput completes an order for booking.
type PackingDetailsInput struct {
	BoxWeight      int     `json:"box_weight" validate:"required,gt=0"`
	QuantitySent   int     `json:"quantity_sent" validate:"required,gt=0"`
	TrackingNumber *string `json:"tracking_number" validate:"omitempty,min=4"`
}

func (in PackingDetailsInput) Validate() error {
	return validate.Struct(in)
}
