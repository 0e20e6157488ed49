package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/opsdesk/fulfillment-service/internal/model"
	"github.com/opsdesk/fulfillment-service/internal/oms"
	"github.com/opsdesk/fulfillment-service/internal/tracking"
	"github.com/opsdesk/fulfillment-service/pkg/clock"
	"github.com/opsdesk/fulfillment-service/pkg/logger"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

var testCarriers = []model.TrackingCarrier{
	{ID: 1, Name: "Royal Mail", TrackingNumberMatch: `^RM\d+`},
	{ID: 2, Name: "DPD", TrackingNumberMatch: `^\d{14}$`},
}

type fakeTrackingRepo struct {
	carriers    []model.TrackingCarrier
	packages    []*model.TrackedPackage
	events      []*model.TrackingEvent
	backfill    []model.Order
	undelivered map[int64][]model.Order
}

func (f *fakeTrackingRepo) Carriers(context.Context) ([]model.TrackingCarrier, error) {
	return f.carriers, nil
}

func (f *fakeTrackingRepo) PackageByScurriID(_ context.Context, scurriID string) (*model.TrackedPackage, error) {
	for _, p := range f.packages {
		if p.ScurriID == scurriID {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeTrackingRepo) PackageByTrackingNumber(_ context.Context, trackingNumber string) (*model.TrackedPackage, error) {
	for _, p := range f.packages {
		if p.TrackingNumber == trackingNumber {
			pkg := *p
			for _, e := range f.events {
				if e.PackageID == p.ID {
					pkg.Events = append(pkg.Events, *e)
				}
			}
			return &pkg, nil
		}
	}
	return nil, nil
}

func (f *fakeTrackingRepo) CreatePackage(_ context.Context, pkg *model.TrackedPackage) error {
	f.packages = append(f.packages, pkg)
	return nil
}

func (f *fakeTrackingRepo) UpsertEvent(_ context.Context, event *model.TrackingEvent) error {
	for _, e := range f.events {
		if e.PackageID == event.PackageID && e.EventID == event.EventID {
			return nil
		}
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeTrackingRepo) OrdersToBackfill(context.Context, time.Time, time.Time) ([]model.Order, error) {
	return f.backfill, nil
}

func (f *fakeTrackingRepo) UndeliveredDispatchedBefore(_ context.Context, regionID int64, _ time.Time) ([]model.Order, error) {
	return f.undelivered[regionID], nil
}

type fakeCarrierAPI struct {
	feed     []oms.PackageStatus
	packages map[string]*oms.PackageStatus
}

func (f *fakeCarrierAPI) Packages(context.Context) ([]oms.PackageStatus, error) {
	return f.feed, nil
}

func (f *fakeCarrierAPI) Package(_ context.Context, _, trackingNumber string) (*oms.PackageStatus, error) {
	if s, ok := f.packages[trackingNumber]; ok {
		return s, nil
	}
	return nil, errors.Errorf("unknown package %s", trackingNumber)
}

type fakeRegionRepo struct {
	regions []model.Region
}

func (f *fakeRegionRepo) Regions(context.Context) ([]model.Region, error) { return f.regions, nil }
func (f *fakeRegionRepo) CountryByISO(context.Context, string) (*model.Country, error) {
	return nil, nil
}
func (f *fakeRegionRepo) Currencies(context.Context) ([]model.Currency, error) { return nil, nil }
func (f *fakeRegionRepo) RateOn(context.Context, string, time.Time) (*model.ExchangeRate, error) {
	return nil, nil
}
func (f *fakeRegionRepo) SaveRates(context.Context, []model.ExchangeRate) error { return nil }
func (f *fakeRegionRepo) ServiceByName(context.Context, string) (*model.ShippingService, error) {
	return nil, nil
}
func (f *fakeRegionRepo) ChannelByName(context.Context, string) (*model.Channel, error) {
	return nil, nil
}
func (f *fakeRegionRepo) StaffByEmail(context.Context, string) (*model.Staff, error) {
	return nil, nil
}

func TestMatchCarrier(t *testing.T) {
	carrier, err := tracking.MatchCarrier(testCarriers, "RM12400056GB")
	require.NoError(t, err)
	assert.Equal(t, "Royal Mail", carrier.Name)

	carrier, err = tracking.MatchCarrier(testCarriers, "15501234567890")
	require.NoError(t, err)
	assert.Equal(t, "DPD", carrier.Name)

	_, err = tracking.MatchCarrier(testCarriers, "XX1")
	assert.ErrorIs(t, err, tracking.ErrNoCarrierMatch)
}

func TestUpdatePackagesCreatesAndUpserts(t *testing.T) {
	repo := &fakeTrackingRepo{carriers: testCarriers}
	carrier := &fakeCarrierAPI{feed: []oms.PackageStatus{
		{
			ScurriID:       "scurri-1",
			TrackingNumber: "RM12400056GB",
			Events: []oms.PackageEvent{
				{EventID: "e1", Status: "IN_TRANSIT", Timestamp: fixedNow.Add(-time.Hour)},
				{EventID: "e2", Status: "SORTED", Timestamp: fixedNow},
			},
		},
		{ScurriID: "scurri-2", TrackingNumber: "NOMATCH"},
	}}
	uc := NewTrackingUseCase(repo, &fakeRegionRepo{}, carrier, clock.Fixed{T: fixedNow}, logger.NewNop())

	require.NoError(t, uc.UpdatePackages(context.Background()))

	// The unmatched feed entry is skipped.
	require.Len(t, repo.packages, 1)
	pkg := repo.packages[0]
	assert.Equal(t, "scurri-1", pkg.ScurriID)
	assert.Equal(t, int64(1), pkg.CarrierID)

	require.Len(t, repo.events, 2)
	assert.Equal(t, model.TrackingInTransit, repo.events[0].Status)
	assert.Equal(t, model.TrackingStatusUnknown, repo.events[1].Status)
}

func TestUpdatePackagesIsIdempotent(t *testing.T) {
	repo := &fakeTrackingRepo{carriers: testCarriers}
	carrier := &fakeCarrierAPI{feed: []oms.PackageStatus{{
		ScurriID:       "scurri-1",
		TrackingNumber: "RM12400056GB",
		Events:         []oms.PackageEvent{{EventID: "e1", Status: "DELIVERED"}},
	}}}
	uc := NewTrackingUseCase(repo, &fakeRegionRepo{}, carrier, clock.Fixed{T: fixedNow}, logger.NewNop())

	require.NoError(t, uc.UpdatePackages(context.Background()))
	require.NoError(t, uc.UpdatePackages(context.Background()))

	assert.Len(t, repo.packages, 1)
	assert.Len(t, repo.events, 1)
}

func TestBackfillPackages(t *testing.T) {
	trk := "RM12400056GB"
	unmatched := "NOMATCH"
	repo := &fakeTrackingRepo{
		carriers: testCarriers,
		backfill: []model.Order{
			{OrderID: "1001", TrackingNumber: &trk},
			{OrderID: "1002", TrackingNumber: &unmatched},
		},
	}
	carrier := &fakeCarrierAPI{packages: map[string]*oms.PackageStatus{
		trk: {
			ScurriID:       "scurri-9",
			TrackingNumber: trk,
			Events:         []oms.PackageEvent{{EventID: "e1", Status: "MANIFESTED"}},
		},
	}}
	uc := NewTrackingUseCase(repo, &fakeRegionRepo{}, carrier, clock.Fixed{T: fixedNow}, logger.NewNop())

	require.NoError(t, uc.BackfillPackages(context.Background()))

	require.Len(t, repo.packages, 1)
	pkg := repo.packages[0]
	assert.Equal(t, "scurri-9", pkg.ScurriID)
	require.NotNil(t, pkg.OrderRef)
	assert.Equal(t, "1001", *pkg.OrderRef)
	assert.Len(t, repo.events, 1)
}

func TestOverdue(t *testing.T) {
	older := fixedNow.AddDate(0, 0, -20)
	newer := fixedNow.AddDate(0, 0, -15)
	trkLate := "RM1GB"
	trkDelivered := "RM2GB"
	trkSecure := "RM3GB"
	trkLater := "RM4GB"

	repo := &fakeTrackingRepo{
		carriers: testCarriers,
		undelivered: map[int64][]model.Order{
			2: {
				{OrderID: "2001", TrackingNumber: &trkLater, DispatchedAt: &newer},
				{OrderID: "1001", TrackingNumber: &trkLate, DispatchedAt: &older},
				{OrderID: "1002", TrackingNumber: &trkDelivered, DispatchedAt: &older},
				{OrderID: "1003", TrackingNumber: &trkSecure, DispatchedAt: &older},
			},
		},
		packages: []*model.TrackedPackage{
			{ID: "p1", TrackingNumber: trkLate},
			{ID: "p2", TrackingNumber: trkDelivered},
			{ID: "p3", TrackingNumber: trkSecure},
			{ID: "p4", TrackingNumber: trkLater},
		},
		events: []*model.TrackingEvent{
			{ID: "e1", PackageID: "p1", EventID: "e1", Status: model.TrackingInTransit, Timestamp: fixedNow.Add(-48 * time.Hour)},
			{ID: "e2", PackageID: "p2", EventID: "e2", Status: model.TrackingDelivered, Timestamp: fixedNow.Add(-24 * time.Hour)},
			{ID: "e3", PackageID: "p3", EventID: "e3", Status: model.TrackingAttemptedDelivery,
				Description: "Delivered to secure location", Timestamp: fixedNow.Add(-24 * time.Hour)},
			{ID: "e4", PackageID: "p4", EventID: "e4", Status: model.TrackingInTransit, Timestamp: fixedNow.Add(-24 * time.Hour)},
		},
	}
	ref := &fakeRegionRepo{regions: []model.Region{
		{ID: 1, FlagIfNotDeliveredByDays: 0},
		{ID: 2, FlagIfNotDeliveredByDays: 14},
	}}
	uc := NewTrackingUseCase(repo, ref, &fakeCarrierAPI{}, clock.Fixed{T: fixedNow}, logger.NewNop())

	overdue, err := uc.Overdue(context.Background())
	require.NoError(t, err)

	// Delivered and secure-drop packages are excluded; results run oldest
	// dispatch first.
	require.Len(t, overdue, 2)
	assert.Equal(t, "1001", overdue[0].Order.OrderID)
	assert.Equal(t, "2001", overdue[1].Order.OrderID)
	require.NotNil(t, overdue[0].LatestEvent)
	assert.Equal(t, model.TrackingInTransit, overdue[0].LatestEvent.Status)
}
