package billing

import (
	"context"

	"github.com/restopos/backend/internal/domain/billing"
	"github.com/restopos/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ActivityLogHandler writes settlement domain events to the application log.
// It gives operators a chronological trail of invoice and payment activity
// without a dedicated audit store.
type ActivityLogHandler struct {
	logger *zap.Logger
}

// NewActivityLogHandler creates a new ActivityLogHandler
func NewActivityLogHandler(logger *zap.Logger) *ActivityLogHandler {
	return &ActivityLogHandler{logger: logger.Named("activity")}
}

// EventTypes returns the settlement event types this handler records
func (h *ActivityLogHandler) EventTypes() []string {
	return []string{
		billing.EventInvoiceCreated,
		billing.EventInvoiceUpdated,
		billing.EventInvoiceStatusChanged,
		billing.EventInvoiceDeleted,
		billing.EventPaymentRecorded,
		billing.EventPaymentRemoved,
	}
}

// Handle logs the event with its aggregate identity
func (h *ActivityLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.logger.Info("Settlement activity",
		zap.String("event_type", event.EventType()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}
