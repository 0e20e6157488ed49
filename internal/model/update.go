package model

import "time"

type UpdateStatus string

const (
	UpdateInProgress UpdateStatus = "IN_PROGRESS"
	UpdateComplete   UpdateStatus = "COMPLETE"
	UpdateError      UpdateStatus = "ERROR"
	UpdateCancelled  UpdateStatus = "CANCELLED"
)

// UpdateKind names an update-run series. At most one run per kind may be
// IN_PROGRESS.
type UpdateKind string

const (
	OrderUpdateKind        UpdateKind = "order"
	OrderDetailsUpdateKind UpdateKind = "order_details"
)

type UpdateRun struct {
	ID          string       `db:"id"`
	Kind        UpdateKind   `db:"kind"`
	Status      UpdateStatus `db:"status"`
	StartedAt   time.Time    `db:"started_at"`
	CompletedAt *time.Time   `db:"completed_at"`
}

// OrderDetailsUpdateError records a per-sale failure within a details run.
type OrderDetailsUpdateError struct {
	ID            string `db:"id"`
	UpdateID      string `db:"update_id"`
	ProductSaleID string `db:"product_sale_id"`
	Text          string `db:"text"`
}
