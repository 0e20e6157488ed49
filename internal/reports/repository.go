package reports

import (
	"context"
	"time"

	"github.com/opsdesk/fulfillment-service/internal/model"
)

type Repository interface {
	// OrdersForExport returns orders received inside the window with sales,
	// country, channel and shipping service loaded.
	OrdersForExport(ctx context.Context, receivedAfter, receivedBefore time.Time) ([]model.Order, error)
	// CreateExportWithPurchases creates the export and attaches every purchase
	// currently lacking one, in a single transaction. Export dates are unique.
	CreateExportWithPurchases(ctx context.Context, export *model.PurchaseExport) error
	// PurchasesForExport returns the export's purchases with staff loaded,
	// grouped by staff.
	PurchasesForExport(ctx context.Context, exportID string) ([]model.StaffPurchase, error)
}
