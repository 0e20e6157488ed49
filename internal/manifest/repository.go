package manifest

import (
	"context"
	"time"

	"github.com/opsdesk/fulfillment-service/internal/model"
)

type Repository interface {
	Get(ctx context.Context, id string) (*model.ITDManifest, error)
	// Active returns the manifest in OPEN or GENERATING state, nil when none.
	Active(ctx context.Context) (*model.ITDManifest, error)
	Create(ctx context.Context, m *model.ITDManifest) error
	SetState(ctx context.Context, id string, state model.ManifestState) error
	// SaveFile stores the rendered CSV, stamps last_generated_at and moves
	// the manifest to CLOSED in one statement.
	SaveFile(ctx context.Context, id string, file []byte, generatedAt time.Time) error
	ClearFile(ctx context.Context, id string) error

	// CreateOrders writes the manifest's order and product snapshots in one
	// transaction.
	CreateOrders(ctx context.Context, orders []model.ITDOrder) error
	Orders(ctx context.Context, manifestID string) ([]model.ITDOrder, error)
	// ManifestedSince returns the order ids manifested on-or-after the
	// cutoff.
	ManifestedSince(ctx context.Context, since time.Time) (map[string]struct{}, error)
}
