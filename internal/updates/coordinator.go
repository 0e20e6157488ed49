package updates

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/opsdesk/fulfillment-service/internal/model"
	"github.com/opsdesk/fulfillment-service/pkg/clock"
	"github.com/opsdesk/fulfillment-service/pkg/logger"
	"go.uber.org/zap"
)

// ErrInProgress means a run of the same kind is already in progress.
var ErrInProgress = errors.New("update already in progress")

// Timeouts are the hard per-kind run timeouts. A stale IN_PROGRESS run is
// reclassified ERROR before any status read answers.
var Timeouts = map[model.UpdateKind]time.Duration{
	model.OrderUpdateKind:        time.Hour,
	model.OrderDetailsUpdateKind: 2 * time.Hour,
}

// Coordinator serializes update runs per kind.
type Coordinator interface {
	// Run starts a run of the kind, executes body, and records the outcome.
	// Returns ErrInProgress when another run of the kind is active.
	Run(ctx context.Context, kind model.UpdateKind, body func(ctx context.Context, runID string) error) error
	IsInProgress(ctx context.Context, kind model.UpdateKind) (bool, error)
	LatestRun(ctx context.Context, kind model.UpdateKind) (*model.UpdateRun, error)
	// RecordDetailsError writes a per-sale failure row for a details run.
	RecordDetailsError(ctx context.Context, runID, productSaleID, text string) error
}

type coordinator struct {
	repo   Repository
	clock  clock.Clock
	logger logger.Logger
}

func NewCoordinator(repo Repository, clk clock.Clock, log logger.Logger) Coordinator {
	return &coordinator{repo: repo, clock: clk, logger: log}
}

func (c *coordinator) sweep(ctx context.Context, kind model.UpdateKind) error {
	now := c.clock.Now()
	return c.repo.TimeoutBefore(ctx, kind, now.Add(-Timeouts[kind]), now)
}

func (c *coordinator) Run(ctx context.Context, kind model.UpdateKind, body func(ctx context.Context, runID string) error) error {
	if err := c.sweep(ctx, kind); err != nil {
		return err
	}
	current, err := c.repo.InProgress(ctx, kind)
	if err != nil {
		return err
	}
	if current != nil {
		return ErrInProgress
	}

	run := &model.UpdateRun{
		ID:        uuid.New().String(),
		Kind:      kind,
		Status:    model.UpdateInProgress,
		StartedAt: c.clock.Now(),
	}
	if err := c.repo.Create(ctx, run); err != nil {
		return err
	}
	c.logger.Info("update run started",
		zap.String("kind", string(kind)), zap.String("run_id", run.ID))

	if err := body(ctx, run.ID); err != nil {
		now := c.clock.Now()
		if serr := c.repo.SetStatus(ctx, run.ID, model.UpdateError, &now); serr != nil {
			c.logger.Error("failed to mark run as error",
				zap.String("run_id", run.ID), zap.Error(serr))
		}
		return err
	}

	now := c.clock.Now()
	if err := c.repo.SetStatus(ctx, run.ID, model.UpdateComplete, &now); err != nil {
		return err
	}
	c.logger.Info("update run complete",
		zap.String("kind", string(kind)), zap.String("run_id", run.ID))
	return nil
}

func (c *coordinator) IsInProgress(ctx context.Context, kind model.UpdateKind) (bool, error) {
	if err := c.sweep(ctx, kind); err != nil {
		return false, err
	}
	current, err := c.repo.InProgress(ctx, kind)
	if err != nil {
		return false, err
	}
	return current != nil, nil
}

func (c *coordinator) LatestRun(ctx context.Context, kind model.UpdateKind) (*model.UpdateRun, error) {
	if err := c.sweep(ctx, kind); err != nil {
		return nil, err
	}
	return c.repo.LatestRun(ctx, kind)
}

func (c *coordinator) RecordDetailsError(ctx context.Context, runID, productSaleID, text string) error {
	return c.repo.CreateDetailsError(ctx, &model.OrderDetailsUpdateError{
		ID:            uuid.New().String(),
		UpdateID:      runID,
		ProductSaleID: productSaleID,
		Text:          text,
	})
}
