package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/daftar/backend/internal/domain/billing"
	"github.com/daftar/backend/internal/domain/shared"
)

// StatsInvalidationHandler drops cached statistics whenever an invoice or
// payment event is published, so the next stats read recomputes from the
// database.
type StatsInvalidationHandler struct {
	cache  *InMemoryStatsCache
	logger *zap.Logger
}

// NewStatsInvalidationHandler creates a handler bound to the given cache
func NewStatsInvalidationHandler(cache *InMemoryStatsCache, logger *zap.Logger) *StatsInvalidationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsInvalidationHandler{cache: cache, logger: logger}
}

// Handle invalidates the whole stats cache. Totals are cheap to recompute
// and per-merchant tracking of which entries an event touches is not worth
// the bookkeeping.
func (h *StatsInvalidationHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.cache.Invalidate()
	h.logger.Debug("stats cache invalidated",
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_id", event.AggregateID().String()),
	)
	return nil
}

// EventTypes returns the billing events that affect aggregate statistics
func (h *StatsInvalidationHandler) EventTypes() []string {
	return []string{
		billing.EventTypeInvoiceCreated,
		billing.EventTypeInvoiceUpdated,
		billing.EventTypeInvoiceStatusChanged,
		billing.EventTypeInvoicePaid,
		billing.EventTypeInvoiceDeleted,
		billing.EventTypePaymentRecorded,
		billing.EventTypePaymentRemoved,
	}
}
