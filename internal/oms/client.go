// Package oms defines the client surfaces for the upstream order-management
// system, the marketplace integrator and the carrier tracking provider.
// Services take these interfaces as constructor arguments; tests supply
// doubles.
package oms

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DeliveryAddress is the raw address block attached to a dispatched order.
// FullAddress is the provider's comma-separated form; parsing rules live in
// the manifest engine.
type DeliveryAddress struct {
	FullName    string
	FullAddress string
	CountryCode string
}

// DispatchedProduct is one product line on a dispatch payload. Price is the
// provider's decimal amount; weight is grams.
type DispatchedProduct struct {
	SKU      string
	Name     string
	Weight   int
	Price    decimal.Decimal
	Quantity int
}

type DispatchedOrder struct {
	OrderID    string
	CustomerID string
	Address    DeliveryAddress
	Products   []DispatchedProduct
}

// DispatchCandidatesRequest selects recent dispatch candidates for one
// shipping rule. OrderType and NumberOfDays are opaque provider filter knobs.
type DispatchCandidatesRequest struct {
	ShippingRuleID string
	OrderType      int
	NumberOfDays   int
}

// Client is the upstream OMS.
type Client interface {
	GetOrderGUID(ctx context.Context, orderID string) (string, error)
	DispatchCandidates(ctx context.Context, req DispatchCandidatesRequest) ([]DispatchedOrder, error)
	GetDispatchedOrder(ctx context.Context, orderID string) (*DispatchedOrder, error)
	GetStockLevel(ctx context.Context, sku string) (int, error)
	SetStockLevel(ctx context.Context, sku string, level int) error
}

// AuditEventOrderProcessed marks the integrator audit event written when an
// order is packed.
const AuditEventOrderProcessed = "ORDER_PROCESSED"

type Shipment struct {
	OrderID   string
	ShippedAt time.Time
}

type AuditEvent struct {
	Type           string
	UpdatedByEmail string
	Timestamp      time.Time
}

// Integrator is the secondary marketplace provider.
type Integrator interface {
	RecentShipments(ctx context.Context, numberOfDays int) ([]Shipment, error)
	AuditTrail(ctx context.Context, guid string) ([]AuditEvent, error)
}

type PackageEvent struct {
	EventID     string
	Status      string
	CarrierCode string
	Description string
	Timestamp   time.Time
	Location    string
}

type PackageStatus struct {
	ScurriID       string
	TrackingNumber string
	Events         []PackageEvent
}

// CarrierAPI is the tracking provider.
type CarrierAPI interface {
	Packages(ctx context.Context) ([]PackageStatus, error)
	Package(ctx context.Context, carrierName, trackingNumber string) (*PackageStatus, error)
}
