package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/restopos/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InMemoryEventBus delivers domain events to subscribed handlers within the
// same process. Delivery is synchronous: Publish returns once every matching
// handler has run.
type InMemoryEventBus struct {
	registry *HandlerRegistry
	logger   *zap.Logger
	running  atomic.Bool
}

// NewInMemoryEventBus creates an event bus with an empty handler registry
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	return &InMemoryEventBus{
		registry: NewHandlerRegistry(),
		logger:   logger,
	}
}

// Publish dispatches each event to every handler registered for its type.
// A failing handler must not block the others, so failures are logged and
// Publish itself never returns a delivery error.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, evt := range events {
		for _, handler := range b.registry.GetHandlers(evt.EventType()) {
			if err := b.deliver(ctx, handler, evt); err != nil {
				b.logger.Error("handler failed to process event",
					zap.String("event_type", evt.EventType()),
					zap.String("event_id", evt.EventID().String()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers a handler. With no explicit event types the handler's
// own EventTypes decide what it receives; an empty list there subscribes it
// to every event.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.registry.Register(handler, eventTypes...)
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes a handler from every event type it was registered for
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.registry.Unregister(handler)
	b.logger.Debug("handler unsubscribed")
}

// Start marks the bus as running. Calling Start twice is a no-op.
func (b *InMemoryEventBus) Start(ctx context.Context) error {
	if b.running.Swap(true) {
		return nil
	}
	b.logger.Info("event bus started")
	return nil
}

// Stop marks the bus as stopped. Deliveries are synchronous, so none are in
// flight once callers reach Stop.
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	if !b.running.Swap(false) {
		return nil
	}
	b.logger.Info("event bus stopped")
	return nil
}

// deliver invokes a single handler, converting a panic into an error so one
// misbehaving subscriber cannot take down the publisher.
func (b *InMemoryEventBus) deliver(ctx context.Context, handler shared.EventHandler, evt shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return handler.Handle(ctx, evt)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
