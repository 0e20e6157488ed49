package usecase

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/opsdesk/fulfillment-service/internal/model"
	"github.com/opsdesk/fulfillment-service/internal/oms"
	"github.com/opsdesk/fulfillment-service/internal/reference"
	"github.com/opsdesk/fulfillment-service/internal/tracking"
	"github.com/opsdesk/fulfillment-service/pkg/clock"
	"github.com/opsdesk/fulfillment-service/pkg/logger"
	"go.uber.org/zap"
)

const (
	// Backfill considers orders dispatched between these many days ago.
	backfillWindowStartDays = 10
	backfillWindowEndDays   = 2

	// Bulk drop-offs report this description on their final event; such
	// packages are never flagged overdue.
	secureDeliveryDescription = "Delivered to secure location"
)

type trackingUseCase struct {
	repo    tracking.Repository
	refRepo reference.Repository
	carrier oms.CarrierAPI
	clock   clock.Clock
	logger  logger.Logger
}

func NewTrackingUseCase(repo tracking.Repository, refRepo reference.Repository, carrier oms.CarrierAPI, clk clock.Clock, log logger.Logger) tracking.UseCase {
	return &trackingUseCase{
		repo:    repo,
		refRepo: refRepo,
		carrier: carrier,
		clock:   clk,
		logger:  log,
	}
}

func (uc *trackingUseCase) UpdatePackages(ctx context.Context) error {
	statuses, err := uc.carrier.Packages(ctx)
	if err != nil {
		return err
	}
	carriers, err := uc.repo.Carriers(ctx)
	if err != nil {
		return err
	}

	for _, status := range statuses {
		pkg, err := uc.repo.PackageByScurriID(ctx, status.ScurriID)
		if err != nil {
			return err
		}
		if pkg == nil {
			carrier, err := tracking.MatchCarrier(carriers, status.TrackingNumber)
			if err != nil {
				uc.logger.Warn("skipping package with unmatched tracking number",
					zap.String("scurri_id", status.ScurriID),
					zap.String("tracking_number", status.TrackingNumber))
				continue
			}
			pkg = &model.TrackedPackage{
				ID:             uuid.New().String(),
				ScurriID:       status.ScurriID,
				CarrierID:      carrier.ID,
				TrackingNumber: status.TrackingNumber,
				CreatedAt:      uc.clock.Now(),
			}
			if err := uc.repo.CreatePackage(ctx, pkg); err != nil {
				return err
			}
		}
		if err := uc.upsertEvents(ctx, pkg.ID, status.Events); err != nil {
			return err
		}
	}
	return nil
}

func (uc *trackingUseCase) BackfillPackages(ctx context.Context) error {
	now := uc.clock.Now()
	orders, err := uc.repo.OrdersToBackfill(ctx,
		now.AddDate(0, 0, -backfillWindowStartDays),
		now.AddDate(0, 0, -backfillWindowEndDays))
	if err != nil {
		return err
	}
	carriers, err := uc.repo.Carriers(ctx)
	if err != nil {
		return err
	}

	for _, order := range orders {
		trackingNumber := *order.TrackingNumber
		carrier, err := tracking.MatchCarrier(carriers, trackingNumber)
		if err != nil {
			uc.logger.Warn("skipping backfill for unmatched tracking number",
				zap.String("order_id", order.OrderID),
				zap.String("tracking_number", trackingNumber))
			continue
		}
		status, err := uc.carrier.Package(ctx, carrier.Name, trackingNumber)
		if err != nil {
			uc.logger.Warn("could not backfill package",
				zap.String("order_id", order.OrderID),
				zap.String("tracking_number", trackingNumber), zap.Error(err))
			continue
		}

		orderRef := order.OrderID
		pkg := &model.TrackedPackage{
			ID:             uuid.New().String(),
			ScurriID:       status.ScurriID,
			CarrierID:      carrier.ID,
			TrackingNumber: trackingNumber,
			CreatedAt:      now,
			OrderRef:       &orderRef,
		}
		if err := uc.repo.CreatePackage(ctx, pkg); err != nil {
			return err
		}
		if err := uc.upsertEvents(ctx, pkg.ID, status.Events); err != nil {
			return err
		}
	}
	return nil
}

func (uc *trackingUseCase) upsertEvents(ctx context.Context, packageID string, events []oms.PackageEvent) error {
	for _, e := range events {
		event := &model.TrackingEvent{
			ID:          uuid.New().String(),
			PackageID:   packageID,
			EventID:     e.EventID,
			Status:      parseEventStatus(e.Status),
			CarrierCode: e.CarrierCode,
			Description: e.Description,
			Timestamp:   e.Timestamp,
			Location:    e.Location,
		}
		if err := uc.repo.UpsertEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func parseEventStatus(s string) model.TrackingEventStatus {
	switch model.TrackingEventStatus(s) {
	case model.TrackingManifested, model.TrackingInTransit, model.TrackingOutForDelivery,
		model.TrackingAttemptedDelivery, model.TrackingDelivered, model.TrackingException:
		return model.TrackingEventStatus(s)
	default:
		return model.TrackingStatusUnknown
	}
}

func (uc *trackingUseCase) Overdue(ctx context.Context) ([]tracking.OverdueOrder, error) {
	regions, err := uc.refRepo.Regions(ctx)
	if err != nil {
		return nil, err
	}
	now := uc.clock.Now()

	var overdue []tracking.OverdueOrder
	for _, region := range regions {
		if region.FlagIfNotDeliveredByDays <= 0 {
			continue
		}
		cutoff := now.AddDate(0, 0, -region.FlagIfNotDeliveredByDays)
		orders, err := uc.repo.UndeliveredDispatchedBefore(ctx, region.ID, cutoff)
		if err != nil {
			return nil, err
		}
		for _, order := range orders {
			pkg, err := uc.repo.PackageByTrackingNumber(ctx, *order.TrackingNumber)
			if err != nil {
				return nil, err
			}
			if pkg == nil || pkg.Delivered() {
				continue
			}
			latest := pkg.LatestEvent()
			if latest != nil && latest.Description == secureDeliveryDescription {
				continue
			}
			overdue = append(overdue, tracking.OverdueOrder{
				Order:       order,
				Package:     pkg,
				LatestEvent: latest,
			})
		}
	}

	sort.SliceStable(overdue, func(i, j int) bool {
		return overdue[i].Order.DispatchedAt.Before(*overdue[j].Order.DispatchedAt)
	})
	return overdue, nil
}
