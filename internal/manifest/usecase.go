package manifest

import (
	"context"
	"errors"

	"github.com/opsdesk/fulfillment-service/internal/model"
)

var (
	// ErrManifestNotOpen means close was attempted on a non-OPEN manifest.
	ErrManifestNotOpen = errors.New("manifest is not open")
	// ErrManifestNotClosed means regenerate was attempted on a non-CLOSED
	// manifest.
	ErrManifestNotClosed = errors.New("manifest is not closed")
	// ErrManifestActive means a manifest is already OPEN or GENERATING.
	ErrManifestActive = errors.New("a manifest is already open or generating")
)

type UseCase interface {
	// Get returns the manifest by id, nil when unknown.
	Get(ctx context.Context, id string) (*model.ITDManifest, error)
	// ReadyToCreate reports whether a new manifest may be opened.
	ReadyToCreate(ctx context.Context) (bool, error)
	// Create opens a new manifest.
	Create(ctx context.Context) (*model.ITDManifest, error)
	// Close snapshots the dispatch candidates, renders the manifest CSV and
	// moves the manifest to CLOSED (or NO_ORDERS / ERROR).
	Close(ctx context.Context, id string) error
	// Regenerate re-requests a CLOSED manifest's orders and re-renders.
	Regenerate(ctx context.Context, id string) error
	// SendManifest emails the manifest CSV and the docket to operations.
	SendManifest(ctx context.Context, id string) error
	// ClearFiles drops the stored manifest file; runs 30 minutes after
	// generation via the task bridge.
	ClearFiles(ctx context.Context, id string) error
}
