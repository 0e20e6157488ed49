package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/opsdesk/fulfillment-service/internal/catalog"
	"github.com/opsdesk/fulfillment-service/internal/fba"
	"github.com/opsdesk/fulfillment-service/internal/model"
	"github.com/opsdesk/fulfillment-service/pkg/clock"
	"github.com/opsdesk/fulfillment-service/pkg/logger"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// shipmentCSVHeader is the partner carrier's fixed column ordering.
var shipmentCSVHeader = []string{
	"Recipient Last Name",
	"Ship to Address 1",
	"Ship to Address 2",
	"Ship to Address 3",
	"Ship to City",
	"Ship to State",
	"Ship to Country",
	"Ship to Zip/Postcode",
	"Order Number",
	"Package Length",
	"Package Width",
	"Package Height",
	"Package Item Description",
	"Package Item SKU",
	"Package Item Weight",
	"Package Item Value",
	"Package Item Quantity",
	"Package Item Country of Origin",
	"Package Item Harmonisation Code",
	"Order Shipment Method",
}

type fbaUseCase struct {
	repo                fba.Repository
	catalog             catalog.UseCase
	clock               clock.Clock
	logger              logger.Logger
	invoiceTemplatePath string
}

func NewFBAUseCase(r fba.Repository, cat catalog.UseCase, clk clock.Clock, log logger.Logger, invoiceTemplatePath string) fba.UseCase {
	return &fbaUseCase{
		repo:                r,
		catalog:             cat,
		clock:               clk,
		logger:              log,
		invoiceTemplatePath: invoiceTemplatePath,
	}
}

func (uc *fbaUseCase) Get(ctx context.Context, id string) (*model.FBAOrder, error) {
	return uc.repo.Get(ctx, id)
}

func (uc *fbaUseCase) Create(ctx context.Context, in fba.CreateOrderInput) (*model.FBAOrder, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	product, err := uc.catalog.GetProduct(ctx, in.SKU)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, errors.Errorf("unknown product sku %q", in.SKU)
	}

	now := uc.clock.Now()
	order := &model.FBAOrder{
		BaseModel:            model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		RegionID:             in.RegionID,
		ProductSKU:           product.SKU,
		ProductID:            product.ProductID,
		ProductName:          product.Name,
		ProductWeight:        product.Weight,
		ProductHSCode:        product.HSCode,
		ProductPurchasePrice: product.PurchasePrice,
		ApproxQuantity:       in.ApproxQuantity,
		Priority:             model.MaxFBAPriority,
	}
	if err := uc.repo.Create(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

func (uc *fbaUseCase) AwaitingFulfillment(ctx context.Context) ([]model.FBAOrder, error) {
	orders, err := uc.repo.Open(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(orders, func(i, j int) bool {
		bi, bj := model.StatusBucket(orders[i].Status()), model.StatusBucket(orders[j].Status())
		if bi != bj {
			return bi < bj
		}
		if orders[i].Priority != orders[j].Priority {
			return orders[i].Priority < orders[j].Priority
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

func (uc *fbaUseCase) MarkPrinted(ctx context.Context, id string) error {
	return uc.repo.SetPrinted(ctx, id, true)
}

func (uc *fbaUseCase) SetOnHold(ctx context.Context, id string, onHold bool) error {
	return uc.repo.SetOnHold(ctx, id, onHold)
}

func (uc *fbaUseCase) RecordPackingDetails(ctx context.Context, id string, in fba.PackingDetailsInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	return uc.repo.SetPackingDetails(ctx, id, in.BoxWeight, in.QuantitySent, in.TrackingNumber)
}

func (uc *fbaUseCase) Prioritise(ctx context.Context, id string) error {
	return uc.repo.Prioritise(ctx, id)
}

func (uc *fbaUseCase) Close(ctx context.Context, id string) error {
	order, err := uc.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if order == nil {
		return errors.Errorf("unknown fba order %q", id)
	}
	if !order.DetailsComplete() {
		return fba.ErrDetailsIncomplete
	}

	if err := uc.repo.Close(ctx, id, uc.clock.Now()); err != nil {
		return err
	}

	// The order stays closed even when the write-back fails.
	if err := uc.catalog.UpdateStockLevel(ctx, order.ProductSKU, -*order.QuantitySent); err != nil {
		uc.logger.Error("stock write-back failed after fba close",
			zap.String("fba_order_id", id), zap.String("sku", order.ProductSKU), zap.Error(err))
		return errors.Wrap(fba.ErrStockUpdate, err.Error())
	}
	return nil
}

func (uc *fbaUseCase) CustomsInvoice(ctx context.Context, id string) ([]byte, error) {
	order, err := uc.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.Errorf("unknown fba order %q", id)
	}
	if order.QuantitySent == nil {
		return nil, fba.ErrDetailsIncomplete
	}
	dest, err := uc.repo.DestinationForRegion(ctx, order.RegionID)
	if err != nil {
		return nil, err
	}
	if dest == nil {
		return nil, fba.ErrNoDestination
	}

	f, err := excelize.OpenFile(uc.invoiceTemplatePath)
	if err != nil {
		return nil, errors.Wrap(err, "open invoice template")
	}
	defer f.Close()
	sheet := f.GetSheetName(0)

	quantity := *order.QuantitySent
	unitValue := decimal.NewFromInt(order.ProductPurchasePrice).Div(decimal.NewFromInt(100))
	totalValue := unitValue.Mul(decimal.NewFromInt(int64(quantity)))
	totalWeightKG := decimal.NewFromInt(int64(order.ProductWeight)).Div(decimal.NewFromInt(1000))

	tracking := ""
	if order.TrackingNumber != nil {
		tracking = *order.TrackingNumber
	}

	cells := map[string]interface{}{
		"F9":  tracking,
		"D26": dest.Address1,
		"D27": joinNonEmpty(dest.Address2, dest.City),
		"D28": joinNonEmpty(dest.Country, dest.Postcode),
		"A31": quantity,
		"C31": order.ProductName,
		"E31": order.ProductHSCode,
		"H31": unitValue.StringFixed(2),
		"I31": totalValue.StringFixed(2),
		"H42": totalValue.StringFixed(2),
		"H44": totalValue.StringFixed(2),
		"H48": totalValue.StringFixed(2),
		"F50": totalWeightKG.StringFixed(2),
	}
	for cell, value := range cells {
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return nil, errors.Wrapf(err, "set invoice cell %s", cell)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "write invoice workbook")
	}
	return buf.Bytes(), nil
}

func (uc *fbaUseCase) ShipmentCSV(ctx context.Context, exportID string) ([]byte, error) {
	export, err := uc.repo.ShipmentExport(ctx, exportID)
	if err != nil {
		return nil, err
	}
	if export == nil {
		return nil, errors.Errorf("unknown shipment export %q", exportID)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(shipmentCSVHeader); err != nil {
		return nil, err
	}
	for _, order := range export.Orders {
		dest := order.Destination
		for _, pkg := range order.Packages {
			value := decimal.NewFromInt(pkg.ValuePence).Div(decimal.NewFromInt(100))
			row := []string{
				dest.RecipientLastName,
				dest.Address1,
				dest.Address2,
				dest.Address3,
				dest.City,
				dest.State,
				dest.Country,
				dest.Postcode,
				order.OrderNumber,
				strconv.Itoa(pkg.LengthCM),
				strconv.Itoa(pkg.WidthCM),
				strconv.Itoa(pkg.HeightCM),
				pkg.Description,
				pkg.SKU,
				strconv.Itoa(pkg.WeightG),
				value.StringFixed(2),
				strconv.Itoa(pkg.Quantity),
				pkg.CountryOfOrigin,
				pkg.HSCode,
				order.Method.Name,
			}
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func joinNonEmpty(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimSpace(p))
		}
	}
	return strings.Join(kept, ", ")
}
