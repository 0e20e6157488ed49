package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/opsdesk/fulfillment-service/internal/model"
	"github.com/pkg/errors"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) InProgress(ctx context.Context, kind model.UpdateKind) (*model.UpdateRun, error) {
	var run model.UpdateRun
	err := r.DB.GetContext(ctx, &run, `
		SELECT * FROM update_runs
		WHERE kind = $1 AND status = $2
		ORDER BY started_at DESC
		LIMIT 1`, kind, model.UpdateInProgress)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select in-progress run")
	}
	return &run, nil
}

func (r *PGRepository) TimeoutBefore(ctx context.Context, kind model.UpdateKind, cutoff, completedAt time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE update_runs
		SET status = $1, completed_at = $2
		WHERE kind = $3 AND status = $4 AND started_at < $5`,
		model.UpdateError, completedAt, kind, model.UpdateInProgress, cutoff)
	return errors.Wrap(err, "timeout stale runs")
}

func (r *PGRepository) Create(ctx context.Context, run *model.UpdateRun) error {
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO update_runs (id, kind, status, started_at, completed_at)
		VALUES (:id, :kind, :status, :started_at, :completed_at)`, run)
	return errors.Wrap(err, "insert update run")
}

func (r *PGRepository) SetStatus(ctx context.Context, id string, status model.UpdateStatus, completedAt *time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE update_runs SET status = $1, completed_at = $2 WHERE id = $3`,
		status, completedAt, id)
	return errors.Wrap(err, "update run status")
}

func (r *PGRepository) LatestRun(ctx context.Context, kind model.UpdateKind) (*model.UpdateRun, error) {
	var run model.UpdateRun
	err := r.DB.GetContext(ctx, &run, `
		SELECT * FROM update_runs
		WHERE kind = $1
		ORDER BY started_at DESC
		LIMIT 1`, kind)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select latest run")
	}
	return &run, nil
}

func (r *PGRepository) CreateDetailsError(ctx context.Context, e *model.OrderDetailsUpdateError) error {
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO order_details_update_errors (id, update_id, product_sale_id, text)
		VALUES (:id, :update_id, :product_sale_id, :text)`, e)
	return errors.Wrap(err, "insert details update error")
}
