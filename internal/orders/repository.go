package orders

import (
	"context"
	"time"

	"github.com/opsdesk/fulfillment-service/internal/model"
)

type Repository interface {
	// GetByOrderID fetches by the external order id, nil when absent.
	GetByOrderID(ctx context.Context, orderID string) (*model.Order, error)
	// CreateWithSales writes the order and its sales in one transaction.
	CreateWithSales(ctx context.Context, order *model.Order, sales []model.ProductSale) error

	SetGUID(ctx context.Context, id, guid string) error
	SetCalculatedShippingPrice(ctx context.Context, id string, price *int64, success bool) error
	SetPackedBy(ctx context.Context, id string, staffID int64) error

	// OrdersNeedingPostagePrice returns orders without a successful postage
	// price, with sales and country loaded.
	OrdersNeedingPostagePrice(ctx context.Context) ([]model.Order, error)
	// SalesNeedingDetails returns product sales without a recorded success.
	SalesNeedingDetails(ctx context.Context) ([]model.ProductSale, error)
	UpdateSaleDetails(ctx context.Context, sale *model.ProductSale) error
	SetSaleDetailsFailed(ctx context.Context, saleID string) error

	// DispatchedWithoutPacker returns orders dispatched since the cutoff
	// whose packer is unresolved and whose integrator GUID is known.
	DispatchedWithoutPacker(ctx context.Context, since time.Time) ([]model.Order, error)
	// DispatchedWithoutGUID returns orders dispatched since the cutoff with
	// no integrator GUID stored.
	DispatchedWithoutGUID(ctx context.Context, since time.Time) ([]model.Order, error)
}
