package usecase

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opsdesk/fulfillment-service/internal/manifest"
	"github.com/opsdesk/fulfillment-service/internal/model"
	"github.com/opsdesk/fulfillment-service/internal/oms"
	"github.com/opsdesk/fulfillment-service/internal/reference"
	"github.com/opsdesk/fulfillment-service/internal/taskbridge"
	"github.com/opsdesk/fulfillment-service/pkg/clock"
	"github.com/opsdesk/fulfillment-service/pkg/logger"
	"github.com/opsdesk/fulfillment-service/pkg/mailer"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// Orders cannot be manifested twice within this rolling window.
	remanifestWindowDays = 7
	// The stored manifest file is cleared this long after generation.
	fileRetention = 30 * time.Minute
)

type Config struct {
	// Rules are the configured dispatch-candidate requests, one per
	// shipping rule.
	Rules           []oms.DispatchCandidatesRequest
	ManifestEmailTo string
	DocketEmailTo   string
}

type manifestUseCase struct {
	repo    manifest.Repository
	refRepo reference.Repository
	oms     oms.Client
	bridge  taskbridge.Bridge
	mailer  mailer.Mailer
	clock   clock.Clock
	logger  logger.Logger
	cfg     Config
}

func NewManifestUseCase(
	repo manifest.Repository,
	refRepo reference.Repository,
	omsClient oms.Client,
	bridge taskbridge.Bridge,
	mail mailer.Mailer,
	clk clock.Clock,
	log logger.Logger,
	cfg Config,
) manifest.UseCase {
	return &manifestUseCase{
		repo:    repo,
		refRepo: refRepo,
		oms:     omsClient,
		bridge:  bridge,
		mailer:  mail,
		clock:   clk,
		logger:  log,
		cfg:     cfg,
	}
}

func (uc *manifestUseCase) Get(ctx context.Context, id string) (*model.ITDManifest, error) {
	return uc.repo.Get(ctx, id)
}

func (uc *manifestUseCase) ReadyToCreate(ctx context.Context) (bool, error) {
	active, err := uc.repo.Active(ctx)
	if err != nil {
		return false, err
	}
	return active == nil, nil
}

func (uc *manifestUseCase) Create(ctx context.Context) (*model.ITDManifest, error) {
	ready, err := uc.ReadyToCreate(ctx)
	if err != nil {
		return nil, err
	}
	if !ready {
		return nil, manifest.ErrManifestActive
	}

	now := uc.clock.Now()
	m := &model.ITDManifest{
		BaseModel: model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		State:     model.ManifestOpen,
	}
	if err := uc.repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (uc *manifestUseCase) Close(ctx context.Context, id string) error {
	m, err := uc.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if m == nil || m.State != model.ManifestOpen {
		return manifest.ErrManifestNotOpen
	}
	if err := uc.repo.SetState(ctx, id, model.ManifestGenerating); err != nil {
		return err
	}

	candidates, err := uc.dispatchCandidates(ctx)
	if err != nil {
		uc.fail(ctx, id, err)
		return err
	}
	if len(candidates) == 0 {
		uc.logger.Info("no orders for manifest", zap.String("manifest_id", id))
		return uc.repo.SetState(ctx, id, model.ManifestNoOrders)
	}

	if err := uc.snapshotOrders(ctx, id, candidates); err != nil {
		uc.fail(ctx, id, err)
		return err
	}
	return uc.generate(ctx, id, candidates)
}

func (uc *manifestUseCase) Regenerate(ctx context.Context, id string) error {
	m, err := uc.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if m == nil || m.State != model.ManifestClosed {
		return manifest.ErrManifestNotClosed
	}
	if err := uc.repo.SetState(ctx, id, model.ManifestGenerating); err != nil {
		return err
	}

	itdOrders, err := uc.repo.Orders(ctx, id)
	if err != nil {
		uc.fail(ctx, id, err)
		return err
	}
	payloads := make([]oms.DispatchedOrder, 0, len(itdOrders))
	for _, order := range itdOrders {
		payload, err := uc.oms.GetDispatchedOrder(ctx, order.OrderID)
		if err != nil {
			uc.fail(ctx, id, err)
			return err
		}
		payloads = append(payloads, *payload)
	}
	return uc.generate(ctx, id, payloads)
}

// generate renders and stores the CSV, closes the manifest and schedules the
// file cleanup.
func (uc *manifestUseCase) generate(ctx context.Context, id string, payloads []oms.DispatchedOrder) error {
	file, err := uc.render(ctx, payloads)
	if err != nil {
		uc.fail(ctx, id, err)
		return err
	}

	now := uc.clock.Now()
	if err := uc.repo.SaveFile(ctx, id, file, now); err != nil {
		uc.fail(ctx, id, err)
		return err
	}
	uc.logger.Info("manifest generated",
		zap.String("manifest_id", id), zap.Int("orders", len(payloads)))

	if err := uc.bridge.EnqueueAt(ctx, taskbridge.TaskClearFiles,
		map[string]string{"manifest_id": id}, now.Add(fileRetention)); err != nil {
		uc.logger.Error("could not schedule manifest file cleanup",
			zap.String("manifest_id", id), zap.Error(err))
	}
	return nil
}

func (uc *manifestUseCase) fail(ctx context.Context, id string, cause error) {
	uc.logger.Error("manifest generation failed",
		zap.String("manifest_id", id), zap.Error(cause))
	if err := uc.repo.SetState(ctx, id, model.ManifestError); err != nil {
		uc.logger.Error("could not mark manifest as errored",
			zap.String("manifest_id", id), zap.Error(err))
	}
}

// dispatchCandidates asks the OMS once per configured rule, dropping orders
// manifested within the rolling window and duplicates across rules.
func (uc *manifestUseCase) dispatchCandidates(ctx context.Context) ([]oms.DispatchedOrder, error) {
	manifested, err := uc.repo.ManifestedSince(ctx,
		uc.clock.Now().AddDate(0, 0, -remanifestWindowDays))
	if err != nil {
		return nil, err
	}

	var candidates []oms.DispatchedOrder
	seen := make(map[string]struct{})
	for _, rule := range uc.cfg.Rules {
		orders, err := uc.oms.DispatchCandidates(ctx, rule)
		if err != nil {
			return nil, err
		}
		for _, order := range orders {
			if _, done := manifested[order.OrderID]; done {
				continue
			}
			if _, dup := seen[order.OrderID]; dup {
				continue
			}
			seen[order.OrderID] = struct{}{}
			candidates = append(candidates, order)
		}
	}
	return candidates, nil
}

func (uc *manifestUseCase) snapshotOrders(ctx context.Context, manifestID string, payloads []oms.DispatchedOrder) error {
	orders := make([]model.ITDOrder, 0, len(payloads))
	for _, payload := range payloads {
		order := model.ITDOrder{
			ID:         uuid.New().String(),
			ManifestID: manifestID,
			OrderID:    payload.OrderID,
			CustomerID: payload.CustomerID,
		}
		for _, product := range payload.Products {
			order.Products = append(order.Products, model.ITDProduct{
				ID:         uuid.New().String(),
				ITDOrderID: order.ID,
				SKU:        product.SKU,
				Name:       product.Name,
				Weight:     product.Weight,
				Price:      product.Price.Mul(decimal.NewFromInt(100)).Round(0).IntPart(),
				Quantity:   product.Quantity,
			})
		}
		orders = append(orders, order)
	}
	return uc.repo.CreateOrders(ctx, orders)
}

// render emits the customs manifest: bare values, no header, one row per
// product unit.
func (uc *manifestUseCase) render(ctx context.Context, payloads []oms.DispatchedOrder) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	for _, order := range payloads {
		country, err := uc.refRepo.CountryByISO(ctx, order.Address.CountryCode)
		if err != nil {
			return nil, err
		}
		if country == nil {
			return nil, fmt.Errorf("unknown delivery country %q for order %s",
				order.Address.CountryCode, order.OrderID)
		}
		address, err := manifest.ParseAddress(order.Address.FullAddress)
		if err != nil {
			return nil, fmt.Errorf("order %s: %w", order.OrderID, err)
		}
		first, second := manifest.SplitName(order.Address.FullName)

		for _, product := range order.Products {
			weightKG := decimal.NewFromInt(int64(product.Weight)).
				Div(decimal.NewFromInt(1000)).StringFixed(2)
			gross := product.Price.StringFixed(2)
			row := []string{
				first,
				second,
				address.Line1,
				address.Line2,
				address.City,
				address.Region,
				country.Name,
				address.Postcode,
				"CCPpackord" + order.OrderID,
				product.Name,
				product.SKU,
				weightKG,
				gross,
			}
			for i := 0; i < product.Quantity; i++ {
				if err := w.Write(row); err != nil {
					return nil, err
				}
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (uc *manifestUseCase) SendManifest(ctx context.Context, id string) error {
	m, err := uc.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if m == nil || len(m.ManifestFile) == 0 {
		return fmt.Errorf("manifest %s has no file to send", id)
	}

	date := uc.clock.Now().Format("2006-01-02")
	if err := uc.mailer.Send(uc.cfg.ManifestEmailTo,
		"ITD manifest "+date,
		"Attached is the ITD manifest for "+date+".",
		mailer.Attachment{
			Filename:    "manifest_" + date + ".csv",
			ContentType: "text/csv",
			Data:        m.ManifestFile,
		}); err != nil {
		return err
	}

	docket, err := uc.renderDocket(ctx, id)
	if err != nil {
		return err
	}
	return uc.mailer.Send(uc.cfg.DocketEmailTo,
		"ITD docket "+date,
		"Attached is the ITD docket for "+date+".",
		mailer.Attachment{
			Filename:    "docket_" + date + ".csv",
			ContentType: "text/csv",
			Data:        docket,
		})
}

// renderDocket summarises the manifest per order for the collection driver.
func (uc *manifestUseCase) renderDocket(ctx context.Context, id string) ([]byte, error) {
	orders, err := uc.repo.Orders(ctx, id)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Order ID", "Customer ID", "Items", "Weight (kg)"}); err != nil {
		return nil, err
	}
	for _, order := range orders {
		items := 0
		weight := 0
		for _, product := range order.Products {
			items += product.Quantity
			weight += product.Weight * product.Quantity
		}
		kg := decimal.NewFromInt(int64(weight)).Div(decimal.NewFromInt(1000)).StringFixed(2)
		if err := w.Write([]string{order.OrderID, order.CustomerID,
			fmt.Sprintf("%d", items), kg}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (uc *manifestUseCase) ClearFiles(ctx context.Context, id string) error {
	uc.logger.Info("clearing manifest file", zap.String("manifest_id", id))
	return uc.repo.ClearFile(ctx, id)
}
