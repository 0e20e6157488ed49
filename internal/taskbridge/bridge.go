// Package taskbridge is the narrow contract to the task runner. Heavy work
// (manifest close/regenerate, order and detail updates, tracking refresh,
// monthly report) runs through it rather than in request handlers.
package taskbridge

import (
	"context"
	"time"
)

// Task names understood by the worker.
const (
	TaskClearFiles            = "clear_files"
	TaskCloseManifest         = "close_manifest"
	TaskRegenerateManifest    = "regenerate_manifest"
	TaskOrderUpdate           = "order_update"
	TaskDetailsUpdate         = "details_update"
	TaskUpdateTracking        = "update_tracking"
	TaskUpdateExchangeRates   = "update_exchange_rates"
	TaskMonthlyPurchaseExport = "monthly_purchase_export"
)

// Bridge enqueues named tasks for asynchronous execution.
type Bridge interface {
	// Enqueue runs the task as soon as possible.
	Enqueue(ctx context.Context, task string, args map[string]string) error
	// EnqueueAt runs the task no earlier than eta.
	EnqueueAt(ctx context.Context, task string, args map[string]string, eta time.Time) error
}

// Envelope is the wire form of an enqueued task.
type Envelope struct {
	Task       string            `json:"task"`
	Args       map[string]string `json:"args,omitempty"`
	ETA        *time.Time        `json:"eta,omitempty"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
}

// RunScheduled is the external scheduler hook: it enqueues, on the caller's
// cadence, the recurring pipeline jobs.
func RunScheduled(ctx context.Context, bridge Bridge) error {
	for _, task := range []string{
		TaskUpdateExchangeRates,
		TaskOrderUpdate,
		TaskDetailsUpdate,
		TaskUpdateTracking,
		TaskMonthlyPurchaseExport,
	} {
		if err := bridge.Enqueue(ctx, task, nil); err != nil {
			return err
		}
	}
	return nil
}
