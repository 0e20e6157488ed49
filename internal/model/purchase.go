package model

import "time"

// PurchaseExport batches staff purchases into one monthly report; ExportDate
// is unique.
type PurchaseExport struct {
	ID         string    `db:"id"`
	ExportDate time.Time `db:"export_date"`
	CreatedAt  time.Time `db:"created_at"`

	Purchases []StaffPurchase `db:"-"`
}

type StaffPurchase struct {
	ID        string    `db:"id"`
	StaffID   int64     `db:"staff_id"`
	SKU       string    `db:"sku"`
	Name      string    `db:"name"`
	Quantity  int       `db:"quantity"`
	Price     int64     `db:"price"`
	CreatedAt time.Time `db:"created_at"`
	ExportID  *string   `db:"export_id"`

	Staff *Staff `db:"-"`
}
