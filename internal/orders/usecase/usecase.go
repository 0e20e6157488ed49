package usecase

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/opsdesk/fulfillment-service/internal/catalog"
	"github.com/opsdesk/fulfillment-service/internal/model"
	"github.com/opsdesk/fulfillment-service/internal/oms"
	"github.com/opsdesk/fulfillment-service/internal/orders"
	"github.com/opsdesk/fulfillment-service/internal/reference"
	"github.com/opsdesk/fulfillment-service/internal/shipping"
	"github.com/opsdesk/fulfillment-service/internal/updates"
	"github.com/opsdesk/fulfillment-service/pkg/clock"
	"github.com/opsdesk/fulfillment-service/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// Provider rate discipline: cool down after every batch of OMS calls.
	omsCallBatch    = 149
	omsCallCooldown = 60 * time.Second

	// Opaque integrator filter knob for the recent-shipments pull.
	recentShipmentDays = 2
	// Window for resolving packers on recently dispatched orders.
	packerWindowDays = 7
)

type orderUseCase struct {
	repo        orders.Repository
	refRepo     reference.Repository
	catalog     catalog.UseCase
	pricer      shipping.Pricer
	oms         oms.Client
	integrator  oms.Integrator
	coordinator updates.Coordinator
	clock       clock.Clock
	logger      logger.Logger

	processedOrdersDir string
	location           *time.Location
	sleep              func(time.Duration)
}

func NewOrderUseCase(
	repo orders.Repository,
	refRepo reference.Repository,
	catalogUC catalog.UseCase,
	pricer shipping.Pricer,
	omsClient oms.Client,
	integrator oms.Integrator,
	coordinator updates.Coordinator,
	clk clock.Clock,
	log logger.Logger,
	processedOrdersDir string,
) orders.UseCase {
	return &orderUseCase{
		repo:               repo,
		refRepo:            refRepo,
		catalog:            catalogUC,
		pricer:             pricer,
		oms:                omsClient,
		integrator:         integrator,
		coordinator:        coordinator,
		clock:              clk,
		logger:             log,
		processedOrdersDir: processedOrdersDir,
		location:           time.Local,
		sleep:              time.Sleep,
	}
}

func (uc *orderUseCase) RunOrderUpdate(ctx context.Context) error {
	return uc.coordinator.Run(ctx, model.OrderUpdateKind, func(ctx context.Context, runID string) error {
		result, err := uc.IngestProcessedOrders(ctx)
		if err != nil {
			return err
		}
		if result != nil {
			uc.logger.Info("processed orders ingested",
				zap.String("file", result.File),
				zap.Int("created", result.Created),
				zap.Int("skipped", result.Skipped),
				zap.Int("merged_rows", result.MergedRows),
				zap.Int("skipped_rows", result.SkippedRows))
		}
		if err := uc.UpdateOrderGUIDs(ctx); err != nil {
			uc.logger.Error("order guid update failed", zap.Error(err))
		}
		if err := uc.UpdatePostagePrices(ctx); err != nil {
			uc.logger.Error("postage price update failed", zap.Error(err))
		}
		if err := uc.AssignPackers(ctx); err != nil {
			uc.logger.Error("packer assignment failed", zap.Error(err))
		}
		return nil
	})
}

func (uc *orderUseCase) RunDetailsUpdate(ctx context.Context) error {
	return uc.coordinator.Run(ctx, model.OrderDetailsUpdateKind, uc.updateDetails)
}

func (uc *orderUseCase) IngestProcessedOrders(ctx context.Context) (*orders.IngestResult, error) {
	path, fileDate, err := orders.NewestProcessedOrdersFile(uc.processedOrdersDir)
	if err != nil {
		return nil, err
	}
	if path == "" {
		uc.logger.Warn("no processed orders export found",
			zap.String("dir", uc.processedOrdersDir))
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := orders.ParseProcessedOrders(f, uc.location)
	if err != nil {
		return nil, err
	}

	result := &orders.IngestResult{File: path, FileDate: fileDate}

	// Group rows by external order id, preserving file order.
	groups := make(map[string][]orders.ProcessedOrderRow)
	var orderIDs []string
	for _, row := range rows {
		if row.ReferenceNumber == orders.MergedReference {
			continue
		}
		if _, seen := groups[row.OrderID]; !seen {
			orderIDs = append(orderIDs, row.OrderID)
		}
		groups[row.OrderID] = append(groups[row.OrderID], row)
	}

	for _, orderID := range orderIDs {
		created, outcomes, err := uc.ingestGroup(ctx, groups[orderID])
		if err != nil {
			uc.logger.Error("failed to ingest order",
				zap.String("order_id", orderID), zap.Error(err))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Skipped++
		}
		for _, outcome := range outcomes {
			switch outcome.Kind {
			case orders.OutcomeMerged:
				result.MergedRows++
			case orders.OutcomeSkipped:
				result.SkippedRows++
			}
		}
	}
	return result, nil
}

// ingestGroup creates the canonical order for one row group. Orders are
// created exactly once; an existing order id is skipped.
func (uc *orderUseCase) ingestGroup(ctx context.Context, rows []orders.ProcessedOrderRow) (bool, []orders.RowOutcome, error) {
	first := rows[0]

	existing, err := uc.repo.GetByOrderID(ctx, first.OrderID)
	if err != nil {
		return false, nil, err
	}
	if existing != nil {
		return false, nil, nil
	}

	now := uc.clock.Now()
	order := &model.Order{
		BaseModel:    model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		OrderID:      first.OrderID,
		ReceivedAt:   first.ReceivedAt,
		DispatchedAt: timePtr(first.ProcessedAt),
		CountryISO:   first.CountryCode,
		CurrencyCode: strPtr(first.Currency),
		Tax:          int64Ptr(first.OrderTax),
		TotalPaid:    int64Ptr(first.OrderTotal),
	}
	if first.TrackingNumber != "" {
		order.TrackingNumber = &first.TrackingNumber
	}
	if first.ShippingCost != 0 {
		order.DisplayedShippingPrice = int64Ptr(first.ShippingCost)
	}

	if channel, err := uc.lookupChannel(ctx, first); err != nil {
		return false, nil, err
	} else if channel != nil {
		order.ChannelID = &channel.ID
	}
	if first.ShippingServiceName != "" {
		service, err := uc.refRepo.ServiceByName(ctx, first.ShippingServiceName)
		if err != nil {
			return false, nil, err
		}
		if service != nil {
			order.ShippingServiceID = &service.ID
		}
	}

	gbp, err := uc.toGBP(ctx, first.Currency, first.OrderTotal)
	if err != nil {
		uc.logger.Warn("could not convert order total to GBP",
			zap.String("order_id", first.OrderID),
			zap.String("currency", first.Currency), zap.Error(err))
	} else {
		order.TotalPaidGBP = &gbp
	}

	collapsed, outcomes := orders.CollapseSales(rows)
	sales := make([]model.ProductSale, 0, len(collapsed))
	for _, row := range collapsed {
		taxRate := row.TaxRate
		sales = append(sales, model.ProductSale{
			BaseModel:          model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
			OrderRef:           order.ID,
			SKU:                row.SKU,
			ChannelSKU:         strPtr(row.ExternalReference),
			Name:               row.ItemTitle,
			Quantity:           row.Quantity,
			UnitPrice:          row.UnitCost,
			ItemPrice:          row.UnitCost * int64(row.Quantity),
			ItemTotalBeforeTax: row.LineTotalExTax,
			Tax:                row.LineTax,
			VATRate:            &taxRate,
		})
	}

	if err := uc.repo.CreateWithSales(ctx, order, sales); err != nil {
		return false, nil, err
	}
	order.Sales = sales

	// Best-effort price attempt; a missing shipping rule must not block
	// ingestion.
	if err := uc.attemptShippingPrice(ctx, order); err != nil {
		uc.logger.Warn("could not price new order",
			zap.String("order_id", order.OrderID), zap.Error(err))
	}
	return true, outcomes, nil
}

func (uc *orderUseCase) lookupChannel(ctx context.Context, row orders.ProcessedOrderRow) (*model.Channel, error) {
	if row.SubSource != "" {
		channel, err := uc.refRepo.ChannelByName(ctx, row.SubSource)
		if err != nil || channel != nil {
			return channel, err
		}
	}
	if row.Source == "" {
		return nil, nil
	}
	return uc.refRepo.ChannelByName(ctx, row.Source)
}

func (uc *orderUseCase) toGBP(ctx context.Context, currency string, pence int64) (int64, error) {
	if currency == "" || currency == "GBP" {
		return pence, nil
	}
	rate, err := uc.refRepo.RateOn(ctx, currency, uc.clock.Now())
	if err != nil {
		return 0, err
	}
	if rate == nil {
		return 0, fmt.Errorf("no exchange rate for %s", currency)
	}
	return decimal.NewFromInt(pence).Mul(rate.Rate).Round(0).IntPart(), nil
}

func (uc *orderUseCase) attemptShippingPrice(ctx context.Context, order *model.Order) error {
	if order.ShippingServiceID == nil {
		return fmt.Errorf("order %s has no shipping service", order.OrderID)
	}
	country, err := uc.refRepo.CountryByISO(ctx, order.CountryISO)
	if err != nil {
		return err
	}
	if country == nil {
		return fmt.Errorf("unknown country %s", order.CountryISO)
	}
	price, err := uc.pricer.Price(ctx, *order.ShippingServiceID, country, order.TotalWeight())
	if err != nil {
		return err
	}
	return uc.repo.SetCalculatedShippingPrice(ctx, order.ID, &price, true)
}

func (uc *orderUseCase) UpdateOrderGUIDs(ctx context.Context) error {
	// Candidate scan first: only recently dispatched orders with no stored
	// GUID are worth resolving against the integrator's shipment list.
	since := uc.clock.Now().AddDate(0, 0, -recentShipmentDays)
	missing, err := uc.repo.DispatchedWithoutGUID(ctx, since)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	byOrderID := make(map[string]*model.Order, len(missing))
	for i := range missing {
		byOrderID[missing[i].OrderID] = &missing[i]
	}

	shipments, err := uc.integrator.RecentShipments(ctx, recentShipmentDays)
	if err != nil {
		return err
	}

	calls := 0
	for _, shipment := range shipments {
		order, ok := byOrderID[shipment.OrderID]
		if !ok {
			continue
		}

		guid, err := uc.oms.GetOrderGUID(ctx, shipment.OrderID)
		calls++
		if calls%omsCallBatch == 0 {
			uc.sleep(omsCallCooldown)
		}
		if err != nil {
			uc.logger.Error("guid pull failed",
				zap.String("order_id", shipment.OrderID), zap.Error(err))
			continue
		}
		if err := uc.repo.SetGUID(ctx, order.ID, guid); err != nil {
			uc.logger.Error("guid store failed",
				zap.String("order_id", shipment.OrderID), zap.Error(err))
		}
	}
	return nil
}

func (uc *orderUseCase) UpdatePostagePrices(ctx context.Context) error {
	candidates, err := uc.repo.OrdersNeedingPostagePrice(ctx)
	if err != nil {
		return err
	}

	failures := 0
	for i := range candidates {
		order := &candidates[i]
		if err := uc.priceOrder(ctx, order); err != nil {
			failures++
			uc.logger.Warn("postage price unresolved",
				zap.String("order_id", order.OrderID), zap.Error(err))
			if err := uc.repo.SetCalculatedShippingPrice(ctx, order.ID, nil, false); err != nil {
				uc.logger.Error("could not record postage failure",
					zap.String("order_id", order.OrderID), zap.Error(err))
			}
		}
	}
	if failures > 0 {
		uc.logger.Warn("postage price update finished with failures",
			zap.Int("failed", failures), zap.Int("total", len(candidates)))
	}
	return nil
}

func (uc *orderUseCase) priceOrder(ctx context.Context, order *model.Order) error {
	if order.TotalPaid == nil || *order.TotalPaid == 0 {
		return fmt.Errorf("order %s has zero total paid", order.OrderID)
	}
	if order.TotalPaidGBP == nil || *order.TotalPaidGBP == 0 {
		return fmt.Errorf("order %s has zero total paid GBP", order.OrderID)
	}
	if err := uc.attemptShippingPrice(ctx, order); err != nil {
		return err
	}
	return nil
}

func (uc *orderUseCase) updateDetails(ctx context.Context, runID string) error {
	sales, err := uc.repo.SalesNeedingDetails(ctx)
	if err != nil {
		return err
	}

	for i := range sales {
		sale := &sales[i]
		if err := uc.refreshSale(ctx, sale); err != nil {
			uc.logger.Warn("product detail refresh failed",
				zap.String("sku", sale.SKU), zap.Error(err))
			if err := uc.repo.SetSaleDetailsFailed(ctx, sale.ID); err != nil {
				uc.logger.Error("could not record detail failure",
					zap.String("sale_id", sale.ID), zap.Error(err))
			}
			if err := uc.coordinator.RecordDetailsError(ctx, runID, sale.ID, err.Error()); err != nil {
				uc.logger.Error("could not record details update error",
					zap.String("sale_id", sale.ID), zap.Error(err))
			}
		}
	}
	return nil
}

func (uc *orderUseCase) refreshSale(ctx context.Context, sale *model.ProductSale) error {
	facts, err := uc.catalog.GetProduct(ctx, sale.SKU)
	if err != nil {
		return err
	}
	if facts == nil {
		return fmt.Errorf("no product for sku %s", sale.SKU)
	}

	success := true
	sale.Name = facts.Name
	sale.Weight = facts.Weight
	sale.PurchasePrice = &facts.PurchasePrice
	sale.Supplier = &facts.Supplier
	sale.HSCode = &facts.HSCode
	sale.DetailsSuccess = &success
	return uc.repo.UpdateSaleDetails(ctx, sale)
}

func (uc *orderUseCase) AssignPackers(ctx context.Context) error {
	since := uc.clock.Now().AddDate(0, 0, -packerWindowDays)
	candidates, err := uc.repo.DispatchedWithoutPacker(ctx, since)
	if err != nil {
		return err
	}

	for i := range candidates {
		order := &candidates[i]
		if err := uc.assignPacker(ctx, order); err != nil {
			uc.logger.Warn("packer assignment failed",
				zap.String("order_id", order.OrderID), zap.Error(err))
		}
	}
	return nil
}

func (uc *orderUseCase) assignPacker(ctx context.Context, order *model.Order) error {
	events, err := uc.integrator.AuditTrail(ctx, *order.GUID)
	if err != nil {
		return err
	}
	for _, event := range events {
		if event.Type != oms.AuditEventOrderProcessed {
			continue
		}
		staff, err := uc.refRepo.StaffByEmail(ctx, event.UpdatedByEmail)
		if err != nil {
			return err
		}
		if staff == nil {
			return fmt.Errorf("no staff for email %s", event.UpdatedByEmail)
		}
		return uc.repo.SetPackedBy(ctx, order.ID, staff.ID)
	}
	return fmt.Errorf("no %s event for order %s", oms.AuditEventOrderProcessed, order.OrderID)
}

func timePtr(t time.Time) *time.Time { return &t }
func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
func int64Ptr(v int64) *int64 { return &v }
