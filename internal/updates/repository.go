package updates

import (
	"context"
	"time"

	"github.com/opsdesk/fulfillment-service/internal/model"
)

type Repository interface {
	// InProgress returns the IN_PROGRESS run for the kind, nil when none.
	InProgress(ctx context.Context, kind model.UpdateKind) (*model.UpdateRun, error)
	// TimeoutBefore reclassifies as ERROR every IN_PROGRESS run of the kind
	// started before the cutoff.
	TimeoutBefore(ctx context.Context, kind model.UpdateKind, cutoff, completedAt time.Time) error
	Create(ctx context.Context, run *model.UpdateRun) error
	SetStatus(ctx context.Context, id string, status model.UpdateStatus, completedAt *time.Time) error
	LatestRun(ctx context.Context, kind model.UpdateKind) (*model.UpdateRun, error)
	CreateDetailsError(ctx context.Context, e *model.OrderDetailsUpdateError) error
}
