package reference

import "context"

type UseCase interface {
	// UpdateExchangeRates refreshes today's rate for every tracked currency
	// from the configured feed. A non-success feed response aborts the whole
	// update without side effects; currencies missing from the feed are
	// skipped with a warning.
	UpdateExchangeRates(ctx context.Context) error
}
