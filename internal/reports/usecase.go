package reports

import (
	"context"
	"time"
)

type UseCase interface {
	// OrderExportCSV renders the order export for orders received inside the
	// window.
	OrderExportCSV(ctx context.Context, receivedAfter, receivedBefore time.Time) ([]byte, error)
	// SendMonthlyPurchaseReport batches unexported staff purchases into a new
	// export dated yesterday and emails the result.
	SendMonthlyPurchaseReport(ctx context.Context) error
}
