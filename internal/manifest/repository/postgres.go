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

func (r *PGRepository) Get(ctx context.Context, id string) (*model.ITDManifest, error) {
	var m model.ITDManifest
	err := r.DB.GetContext(ctx, &m,
		`SELECT * FROM itd_manifests WHERE id = $1 LIMIT 1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select manifest")
	}
	return &m, nil
}

func (r *PGRepository) Active(ctx context.Context) (*model.ITDManifest, error) {
	var m model.ITDManifest
	err := r.DB.GetContext(ctx, &m, `
		SELECT * FROM itd_manifests
		WHERE state IN ($1, $2)
		ORDER BY created_at DESC
		LIMIT 1`, model.ManifestOpen, model.ManifestGenerating)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "select active manifest")
	}
	return &m, nil
}

func (r *PGRepository) Create(ctx context.Context, m *model.ITDManifest) error {
	_, err := r.DB.NamedExecContext(ctx, `
		INSERT INTO itd_manifests (id, state, manifest_file, last_generated_at, closed_at, created_at, updated_at)
		VALUES (:id, :state, :manifest_file, :last_generated_at, :closed_at, :created_at, :updated_at)`, m)
	return errors.Wrap(err, "insert manifest")
}

func (r *PGRepository) SetState(ctx context.Context, id string, state model.ManifestState) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE itd_manifests SET state = $1, updated_at = NOW() WHERE id = $2`, state, id)
	return errors.Wrap(err, "set manifest state")
}

func (r *PGRepository) SaveFile(ctx context.Context, id string, file []byte, generatedAt time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE itd_manifests
		SET manifest_file = $1, last_generated_at = $2, closed_at = COALESCE(closed_at, $2),
		    state = $3, updated_at = NOW()
		WHERE id = $4`, file, generatedAt, model.ManifestClosed, id)
	return errors.Wrap(err, "save manifest file")
}

func (r *PGRepository) ClearFile(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE itd_manifests SET manifest_file = NULL, updated_at = NOW() WHERE id = $1`, id)
	return errors.Wrap(err, "clear manifest file")
}

func (r *PGRepository) CreateOrders(ctx context.Context, orders []model.ITDOrder) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin create manifest orders")
	}
	defer tx.Rollback()

	for _, order := range orders {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO itd_orders (id, manifest_id, order_id, customer_id)
			VALUES (:id, :manifest_id, :order_id, :customer_id)`, order); err != nil {
			return errors.Wrapf(err, "insert manifest order %s", order.OrderID)
		}
		for _, product := range order.Products {
			if _, err := tx.NamedExecContext(ctx, `
				INSERT INTO itd_products (id, itd_order_id, sku, name, weight, price, quantity)
				VALUES (:id, :itd_order_id, :sku, :name, :weight, :price, :quantity)`, product); err != nil {
				return errors.Wrapf(err, "insert manifest product %s", product.SKU)
			}
		}
	}
	return tx.Commit()
}

func (r *PGRepository) Orders(ctx context.Context, manifestID string) ([]model.ITDOrder, error) {
	var orders []model.ITDOrder
	err := r.DB.SelectContext(ctx, &orders,
		`SELECT * FROM itd_orders WHERE manifest_id = $1 ORDER BY order_id`, manifestID)
	if err != nil {
		return nil, errors.Wrap(err, "select manifest orders")
	}
	for i := range orders {
		err := r.DB.SelectContext(ctx, &orders[i].Products,
			`SELECT * FROM itd_products WHERE itd_order_id = $1 ORDER BY sku`, orders[i].ID)
		if err != nil {
			return nil, errors.Wrap(err, "select manifest products")
		}
	}
	return orders, nil
}

func (r *PGRepository) ManifestedSince(ctx context.Context, since time.Time) (map[string]struct{}, error) {
	var ids []string
	err := r.DB.SelectContext(ctx, &ids, `
		SELECT o.order_id
		FROM itd_orders o
		JOIN itd_manifests m ON m.id = o.manifest_id
		WHERE m.created_at >= $1`, since)
	if err != nil {
		return nil, errors.Wrap(err, "select manifested order ids")
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return seen, nil
}
