package fba

import (
	"context"

	"github.com/opsdesk/fulfillment-service/internal/model"
	"github.com/pkg/errors"
)

var (
	// ErrDetailsIncomplete means box weight or sent quantity is missing.
	ErrDetailsIncomplete = errors.New("fba order packing details are incomplete")
	// ErrStockUpdate means the order was closed but the stock write-back
	// failed. The order stays closed.
	ErrStockUpdate = errors.New("stock level update failed after close")
	// ErrNoDestination means the order's region has no inbound address.
	ErrNoDestination = errors.New("no shipment destination for region")
)

type UseCase interface {
	Get(ctx context.Context, id string) (*model.FBAOrder, error)
	Create(ctx context.Context, in CreateOrderInput) (*model.FBAOrder, error)
	// AwaitingFulfillment is the work queue: open orders sorted by status
	// bucket, then priority, then age.
	AwaitingFulfillment(ctx context.Context) ([]model.FBAOrder, error)
	MarkPrinted(ctx context.Context, id string) error
	SetOnHold(ctx context.Context, id string, onHold bool) error
	RecordPackingDetails(ctx context.Context, id string, in PackingDetailsInput) error
	Prioritise(ctx context.Context, id string) error
	// Close marks the order fulfilled and writes the sent quantity back to the
	// stock level. A stock failure returns ErrStockUpdate without reopening.
	Close(ctx context.Context, id string) error
	// CustomsInvoice fills the workbook template for one order.
	CustomsInvoice(ctx context.Context, id string) ([]byte, error)
	// ShipmentCSV renders the carrier CSV for one shipment export.
	ShipmentCSV(ctx context.Context, exportID string) ([]byte, error)
}
