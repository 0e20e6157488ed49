package orders

import (
	"context"
	"time"
)

// OutcomeKind classifies what ingesting one export row did.
type OutcomeKind string

const (
	OutcomeSkipped OutcomeKind = "SKIPPED"
	OutcomeCreated OutcomeKind = "CREATED"
	OutcomeMerged  OutcomeKind = "MERGED"
)

type RowOutcome struct {
	Kind    OutcomeKind
	OrderID string
	SKU     string
	Reason  string
}

// CollapseSales folds a group of rows for one order into sale lines:
// composite children are skipped, repeated SKUs merge into the existing line
// by incrementing its quantity.
func CollapseSales(rows []ProcessedOrderRow) ([]ProcessedOrderRow, []RowOutcome) {
	var collapsed []ProcessedOrderRow
	outcomes := make([]RowOutcome, 0, len(rows))
	bySKU := make(map[string]int)

	for _, row := range rows {
		if row.CompositeParentSKU != "" {
			outcomes = append(outcomes, RowOutcome{
				Kind:    OutcomeSkipped,
				OrderID: row.OrderID,
				SKU:     row.SKU,
				Reason:  "composite child",
			})
			continue
		}
		if i, seen := bySKU[row.SKU]; seen {
			collapsed[i].Quantity += row.Quantity
			outcomes = append(outcomes, RowOutcome{
				Kind:    OutcomeMerged,
				OrderID: row.OrderID,
				SKU:     row.SKU,
			})
			continue
		}
		bySKU[row.SKU] = len(collapsed)
		collapsed = append(collapsed, row)
		outcomes = append(outcomes, RowOutcome{
			Kind:    OutcomeCreated,
			OrderID: row.OrderID,
			SKU:     row.SKU,
		})
	}
	return collapsed, outcomes
}

// IngestResult summarizes one processed-orders ingest run. Created and
// Skipped count orders; MergedRows and SkippedRows count the export rows
// folded away or dropped while collapsing sale lines.
type IngestResult struct {
	File        string
	FileDate    time.Time
	Created     int
	Skipped     int
	MergedRows  int
	SkippedRows int
}

type UseCase interface {
	// RunOrderUpdate runs the full order-update pipeline (ingest, GUID pull,
	// postage prices, packer assignment) under the order-update guard.
	RunOrderUpdate(ctx context.Context) error
	// RunDetailsUpdate refreshes product details on sales under the
	// details-update guard.
	RunDetailsUpdate(ctx context.Context) error

	IngestProcessedOrders(ctx context.Context) (*IngestResult, error)
	UpdateOrderGUIDs(ctx context.Context) error
	UpdatePostagePrices(ctx context.Context) error
	AssignPackers(ctx context.Context) error
}
