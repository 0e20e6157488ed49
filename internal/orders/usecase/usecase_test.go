package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opsdesk/fulfillment-service/internal/catalog"
	"github.com/opsdesk/fulfillment-service/internal/model"
	"github.com/opsdesk/fulfillment-service/internal/oms"
	"github.com/opsdesk/fulfillment-service/pkg/clock"
	"github.com/opsdesk/fulfillment-service/pkg/logger"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

const exportHeader = "Order Id,Reference number,External reference,Shipping country code," +
	"Received date,Processed date,Shipping cost,Order tax,Order total,Currency," +
	"Source,SubSource,Shipping service name,Tracking number,SKU,Item title," +
	"Quantity,Unit cost,Line discount,Tax rate,Line tax,Line total excluding tax," +
	"Line total,Composite parent SKU"

type priceCall struct {
	id      string
	price   *int64
	success bool
}

type fakeOrderRepo struct {
	orders        map[string]*model.Order
	createdSales  map[string][]model.ProductSale
	priceCalls    []priceCall
	guids         map[string]string
	packedBy      map[string]int64
	needingPrice  []model.Order
	needDetails   []model.ProductSale
	updatedSales  []*model.ProductSale
	failedSales   []string
	withoutPacker []model.Order
	withoutGUID   []model.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		orders:       make(map[string]*model.Order),
		createdSales: make(map[string][]model.ProductSale),
		guids:        make(map[string]string),
		packedBy:     make(map[string]int64),
	}
}

func (f *fakeOrderRepo) GetByOrderID(_ context.Context, orderID string) (*model.Order, error) {
	return f.orders[orderID], nil
}

func (f *fakeOrderRepo) CreateWithSales(_ context.Context, order *model.Order, sales []model.ProductSale) error {
	f.orders[order.OrderID] = order
	f.createdSales[order.OrderID] = sales
	return nil
}

func (f *fakeOrderRepo) SetGUID(_ context.Context, id, guid string) error {
	f.guids[id] = guid
	return nil
}

func (f *fakeOrderRepo) SetCalculatedShippingPrice(_ context.Context, id string, price *int64, success bool) error {
	f.priceCalls = append(f.priceCalls, priceCall{id: id, price: price, success: success})
	return nil
}

func (f *fakeOrderRepo) SetPackedBy(_ context.Context, id string, staffID int64) error {
	f.packedBy[id] = staffID
	return nil
}

func (f *fakeOrderRepo) OrdersNeedingPostagePrice(context.Context) ([]model.Order, error) {
	return f.needingPrice, nil
}

func (f *fakeOrderRepo) SalesNeedingDetails(context.Context) ([]model.ProductSale, error) {
	return f.needDetails, nil
}

func (f *fakeOrderRepo) UpdateSaleDetails(_ context.Context, sale *model.ProductSale) error {
	f.updatedSales = append(f.updatedSales, sale)
	return nil
}

func (f *fakeOrderRepo) SetSaleDetailsFailed(_ context.Context, saleID string) error {
	f.failedSales = append(f.failedSales, saleID)
	return nil
}

func (f *fakeOrderRepo) DispatchedWithoutPacker(context.Context, time.Time) ([]model.Order, error) {
	return f.withoutPacker, nil
}

func (f *fakeOrderRepo) DispatchedWithoutGUID(context.Context, time.Time) ([]model.Order, error) {
	return f.withoutGUID, nil
}

type fakeRefRepo struct{}

func (fakeRefRepo) CountryByISO(_ context.Context, iso string) (*model.Country, error) {
	if iso == "ZZ" {
		return nil, nil
	}
	return &model.Country{ISOCode: iso, RegionID: 1,
		Region: &model.Region{ID: 1, VATPolicy: model.VATAlways}}, nil
}

func (fakeRefRepo) Regions(context.Context) ([]model.Region, error) { return nil, nil }

func (fakeRefRepo) Currencies(context.Context) ([]model.Currency, error) { return nil, nil }

func (fakeRefRepo) RateOn(_ context.Context, currencyCode string, _ time.Time) (*model.ExchangeRate, error) {
	if currencyCode != "USD" {
		return nil, nil
	}
	return &model.ExchangeRate{CurrencyCode: "USD",
		Rate: decimal.RequireFromString("0.787")}, nil
}

func (fakeRefRepo) SaveRates(context.Context, []model.ExchangeRate) error { return nil }

func (fakeRefRepo) ServiceByName(_ context.Context, name string) (*model.ShippingService, error) {
	if name == "Tracked 48" {
		return &model.ShippingService{ID: 7, Name: name}, nil
	}
	return nil, nil
}

func (fakeRefRepo) ChannelByName(_ context.Context, name string) (*model.Channel, error) {
	switch name {
	case "AMAZON US":
		return &model.Channel{ID: 5, Name: name}, nil
	case "EBAY":
		return &model.Channel{ID: 6, Name: name}, nil
	}
	return nil, nil
}

func (fakeRefRepo) StaffByEmail(_ context.Context, email string) (*model.Staff, error) {
	if email == "packer@example.com" {
		return &model.Staff{ID: 42, Email: email}, nil
	}
	return nil, nil
}

type fakeCatalog struct {
	products map[string]*catalog.ProductFacts
}

func (f *fakeCatalog) GetProduct(_ context.Context, sku string) (*catalog.ProductFacts, error) {
	return f.products[sku], nil
}

func (f *fakeCatalog) UpdateStockLevel(context.Context, string, int) error { return nil }

type fakePricer struct {
	price int64
	err   error
}

func (f *fakePricer) Price(context.Context, int64, *model.Country, int) (int64, error) {
	return f.price, f.err
}

type fakeOMSClient struct {
	guids     map[string]string
	guidCalls int
}

func (f *fakeOMSClient) GetOrderGUID(_ context.Context, orderID string) (string, error) {
	f.guidCalls++
	if g, ok := f.guids[orderID]; ok {
		return g, nil
	}
	return "", errors.Errorf("no guid for %s", orderID)
}

func (f *fakeOMSClient) DispatchCandidates(context.Context, oms.DispatchCandidatesRequest) ([]oms.DispatchedOrder, error) {
	return nil, nil
}
func (f *fakeOMSClient) GetDispatchedOrder(context.Context, string) (*oms.DispatchedOrder, error) {
	return nil, nil
}
func (f *fakeOMSClient) GetStockLevel(context.Context, string) (int, error) { return 0, nil }
func (f *fakeOMSClient) SetStockLevel(context.Context, string, int) error   { return nil }

type fakeIntegrator struct {
	shipments []oms.Shipment
	audits    map[string][]oms.AuditEvent
}

func (f *fakeIntegrator) RecentShipments(context.Context, int) ([]oms.Shipment, error) {
	return f.shipments, nil
}

func (f *fakeIntegrator) AuditTrail(_ context.Context, guid string) ([]oms.AuditEvent, error) {
	return f.audits[guid], nil
}

type fakeCoordinator struct {
	detailsErrors []string
}

func (f *fakeCoordinator) Run(ctx context.Context, _ model.UpdateKind, body func(context.Context, string) error) error {
	return body(ctx, "run-1")
}

func (f *fakeCoordinator) IsInProgress(context.Context, model.UpdateKind) (bool, error) {
	return false, nil
}

func (f *fakeCoordinator) LatestRun(context.Context, model.UpdateKind) (*model.UpdateRun, error) {
	return nil, nil
}

func (f *fakeCoordinator) RecordDetailsError(_ context.Context, _, productSaleID, _ string) error {
	f.detailsErrors = append(f.detailsErrors, productSaleID)
	return nil
}

func newTestUseCase(t *testing.T, repo *fakeOrderRepo, cat *fakeCatalog, pricer *fakePricer,
	client *fakeOMSClient, integrator *fakeIntegrator, coord *fakeCoordinator, dir string) *orderUseCase {
	t.Helper()
	if cat == nil {
		cat = &fakeCatalog{}
	}
	uc := NewOrderUseCase(repo, fakeRefRepo{}, cat, pricer, client, integrator, coord,
		clock.Fixed{T: fixedNow}, logger.NewNop(), dir).(*orderUseCase)
	uc.location = time.UTC
	uc.sleep = func(time.Duration) {}
	return uc
}

func writeExport(t *testing.T, dir, body string) {
	t.Helper()
	path := filepath.Join(dir, "processed_orders_20250531120000.csv")
	require.NoError(t, os.WriteFile(path, []byte(exportHeader+"\n"+body), 0o644))
}

func TestIngestProcessedOrders(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir,
		"2001,REF-1,EXT-1,US,2025-05-01 09:00:00,2025-05-02 10:00:00,"+
			"3.99,0,50.00,USD,AMAZON,AMAZON US,Tracked 48,TRK1,SKU-A,Widget,"+
			"2,9.99,0,0,0,19.98,19.98,\n"+
			"2001,REF-3,EXT-1,US,2025-05-01 09:00:00,2025-05-02 10:00:00,"+
			"3.99,0,50.00,USD,AMAZON,AMAZON US,Tracked 48,TRK1,SKU-A,Widget,"+
			"1,9.99,0,0,0,9.99,9.99,\n"+
			"2001,REF-4,EXT-1,US,2025-05-01 09:00:00,2025-05-02 10:00:00,"+
			"3.99,0,50.00,USD,AMAZON,AMAZON US,Tracked 48,TRK1,SKU-A-PART,Widget Part,"+
			"1,0,0,0,0,0,0,SKU-A\n"+
			"1001,REF-2,,GB,2025-05-01 09:00:00,2025-05-02 10:00:00,"+
			",,,GBP,EBAY,,Standard,,SKU-B,Gadget,1,,,,,,,\n")

	repo := newFakeOrderRepo()
	repo.orders["1001"] = &model.Order{BaseModel: model.BaseModel{ID: "existing"}, OrderID: "1001"}

	uc := newTestUseCase(t, repo, nil, &fakePricer{price: 350}, &fakeOMSClient{},
		&fakeIntegrator{}, &fakeCoordinator{}, dir)

	result, err := uc.IngestProcessedOrders(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.Skipped)
	// The repeated SKU-A row folds into the first line; the composite child
	// row is dropped.
	assert.Equal(t, 1, result.MergedRows)
	assert.Equal(t, 1, result.SkippedRows)

	order := repo.orders["2001"]
	require.NotNil(t, order)
	assert.Equal(t, "US", order.CountryISO)
	require.NotNil(t, order.ChannelID)
	assert.Equal(t, int64(5), *order.ChannelID)
	require.NotNil(t, order.ShippingServiceID)
	assert.Equal(t, int64(7), *order.ShippingServiceID)
	require.NotNil(t, order.TotalPaid)
	assert.Equal(t, int64(5000), *order.TotalPaid)
	// 5000 * 0.787 = 3935.
	require.NotNil(t, order.TotalPaidGBP)
	assert.Equal(t, int64(3935), *order.TotalPaidGBP)

	sales := repo.createdSales["2001"]
	require.Len(t, sales, 1)
	assert.Equal(t, "SKU-A", sales[0].SKU)
	assert.Equal(t, 3, sales[0].Quantity)
	assert.Equal(t, int64(2997), sales[0].ItemPrice)

	require.Len(t, repo.priceCalls, 1)
	assert.True(t, repo.priceCalls[0].success)
	require.NotNil(t, repo.priceCalls[0].price)
	assert.Equal(t, int64(350), *repo.priceCalls[0].price)
}

func TestIngestSurvivesPricingFailure(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir,
		"2002,REF-1,,GB,2025-05-01 09:00:00,2025-05-02 10:00:00,"+
			",,24.99,GBP,EBAY,,Tracked 48,,SKU-A,Widget,1,9.99,0,0,0,9.99,9.99,\n")

	repo := newFakeOrderRepo()
	uc := newTestUseCase(t, repo, nil, &fakePricer{err: errors.New("no rule")},
		&fakeOMSClient{}, &fakeIntegrator{}, &fakeCoordinator{}, dir)

	result, err := uc.IngestProcessedOrders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.NotNil(t, repo.orders["2002"])
	assert.Empty(t, repo.priceCalls)
}

func TestIngestNoExportFile(t *testing.T) {
	uc := newTestUseCase(t, newFakeOrderRepo(), nil, &fakePricer{}, &fakeOMSClient{},
		&fakeIntegrator{}, &fakeCoordinator{}, t.TempDir())

	result, err := uc.IngestProcessedOrders(context.Background())
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestUpdatePostagePrices(t *testing.T) {
	repo := newFakeOrderRepo()
	serviceID := int64(7)
	repo.needingPrice = []model.Order{
		{
			BaseModel:         model.BaseModel{ID: "good"},
			OrderID:           "3001",
			CountryISO:        "GB",
			ShippingServiceID: &serviceID,
			TotalPaid:         i64(2499),
			TotalPaidGBP:      i64(2499),
			Sales:             []model.ProductSale{{Weight: 200, Quantity: 1}},
		},
		{
			BaseModel:         model.BaseModel{ID: "unpaid"},
			OrderID:           "3002",
			CountryISO:        "GB",
			ShippingServiceID: &serviceID,
			TotalPaid:         i64(0),
			TotalPaidGBP:      i64(0),
		},
	}
	uc := newTestUseCase(t, repo, nil, &fakePricer{price: 350}, &fakeOMSClient{},
		&fakeIntegrator{}, &fakeCoordinator{}, t.TempDir())

	require.NoError(t, uc.UpdatePostagePrices(context.Background()))

	require.Len(t, repo.priceCalls, 2)
	assert.Equal(t, "good", repo.priceCalls[0].id)
	assert.True(t, repo.priceCalls[0].success)
	assert.Equal(t, "unpaid", repo.priceCalls[1].id)
	assert.False(t, repo.priceCalls[1].success)
	assert.Nil(t, repo.priceCalls[1].price)
}

func TestUpdateOrderGUIDs(t *testing.T) {
	repo := newFakeOrderRepo()
	repo.withoutGUID = []model.Order{
		{BaseModel: model.BaseModel{ID: "o1"}, OrderID: "4001"},
		{BaseModel: model.BaseModel{ID: "o3"}, OrderID: "4003"},
	}

	client := &fakeOMSClient{guids: map[string]string{"4001": "guid-4001"}}
	integrator := &fakeIntegrator{shipments: []oms.Shipment{
		{OrderID: "4001"},
		{OrderID: "4002"},
		{OrderID: "unknown"},
	}}
	uc := newTestUseCase(t, repo, nil, &fakePricer{}, client, integrator,
		&fakeCoordinator{}, t.TempDir())

	require.NoError(t, uc.UpdateOrderGUIDs(context.Background()))

	assert.Equal(t, map[string]string{"o1": "guid-4001"}, repo.guids)
	// Shipments outside the candidate scan, and candidates with no recent
	// shipment, never hit the OMS.
	assert.Equal(t, 1, client.guidCalls)
}

func TestUpdateOrderGUIDsNoCandidates(t *testing.T) {
	client := &fakeOMSClient{}
	integrator := &fakeIntegrator{shipments: []oms.Shipment{{OrderID: "4001"}}}
	uc := newTestUseCase(t, newFakeOrderRepo(), nil, &fakePricer{}, client, integrator,
		&fakeCoordinator{}, t.TempDir())

	require.NoError(t, uc.UpdateOrderGUIDs(context.Background()))
	assert.Zero(t, client.guidCalls)
}

func TestRunDetailsUpdate(t *testing.T) {
	repo := newFakeOrderRepo()
	repo.needDetails = []model.ProductSale{
		{BaseModel: model.BaseModel{ID: "s1"}, SKU: "SKU-A"},
		{BaseModel: model.BaseModel{ID: "s2"}, SKU: "SKU-MISSING"},
	}
	cat := &fakeCatalog{products: map[string]*catalog.ProductFacts{
		"SKU-A": {SKU: "SKU-A", Name: "Widget", Weight: 250,
			PurchasePrice: 400, Supplier: "Acme", HSCode: "8517.62"},
	}}
	coord := &fakeCoordinator{}
	uc := newTestUseCase(t, repo, cat, &fakePricer{}, &fakeOMSClient{},
		&fakeIntegrator{}, coord, t.TempDir())

	require.NoError(t, uc.RunDetailsUpdate(context.Background()))

	require.Len(t, repo.updatedSales, 1)
	updated := repo.updatedSales[0]
	assert.Equal(t, "Widget", updated.Name)
	assert.Equal(t, 250, updated.Weight)
	require.NotNil(t, updated.PurchasePrice)
	assert.Equal(t, int64(400), *updated.PurchasePrice)
	require.NotNil(t, updated.DetailsSuccess)
	assert.True(t, *updated.DetailsSuccess)

	assert.Equal(t, []string{"s2"}, repo.failedSales)
	assert.Equal(t, []string{"s2"}, coord.detailsErrors)
}

func TestAssignPackers(t *testing.T) {
	guid := "guid-5001"
	repo := newFakeOrderRepo()
	repo.withoutPacker = []model.Order{
		{BaseModel: model.BaseModel{ID: "o1"}, OrderID: "5001", GUID: &guid},
	}
	integrator := &fakeIntegrator{audits: map[string][]oms.AuditEvent{
		guid: {
			{Type: "NOTE_ADDED", UpdatedByEmail: "someone@example.com"},
			{Type: oms.AuditEventOrderProcessed, UpdatedByEmail: "packer@example.com"},
		},
	}}
	uc := newTestUseCase(t, repo, nil, &fakePricer{}, &fakeOMSClient{}, integrator,
		&fakeCoordinator{}, t.TempDir())

	require.NoError(t, uc.AssignPackers(context.Background()))
	assert.Equal(t, map[string]int64{"o1": 42}, repo.packedBy)
}

func i64(v int64) *int64 { return &v }
