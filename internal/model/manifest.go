package model

import "time"

type ManifestState string

const (
	ManifestOpen       ManifestState = "OPEN"
	ManifestGenerating ManifestState = "GENERATING"
	ManifestClosed     ManifestState = "CLOSED"
	ManifestError      ManifestState = "ERROR"
	ManifestNoOrders   ManifestState = "NO_ORDERS"
)

// ITDManifest is an immutable snapshot of customs-declared orders plus the
// CSV derived from it. At most one manifest is OPEN or GENERATING at a time.
type ITDManifest struct {
	BaseModel
	State           ManifestState `db:"state"`
	ManifestFile    []byte        `db:"manifest_file"`
	LastGeneratedAt *time.Time    `db:"last_generated_at"`
	ClosedAt        *time.Time    `db:"closed_at"`
}

type ITDOrder struct {
	ID         string `db:"id"`
	ManifestID string `db:"manifest_id"`
	OrderID    string `db:"order_id"`
	CustomerID string `db:"customer_id"`

	Products []ITDProduct `db:"-"`
}

// ITDProduct snapshots one product line; price in pence, weight in grams.
type ITDProduct struct {
	ID         string `db:"id"`
	ITDOrderID string `db:"itd_order_id"`
	SKU        string `db:"sku"`
	Name       string `db:"name"`
	Weight     int    `db:"weight"`
	Price      int64  `db:"price"`
	Quantity   int    `db:"quantity"`
}
