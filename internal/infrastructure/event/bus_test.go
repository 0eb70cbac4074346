package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/restopos/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Invoice", uuid.New()),
		Data:            "test data",
	}
}

type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("invoice.created")
	bus.Subscribe(handler, "invoice.created")

	event := newTestEvent("invoice.created")
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 1)
	assert.Equal(t, event, handler.getHandled()[0])
}

func TestInMemoryEventBus_Publish_MultipleEvents(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("invoice.payment_added")
	bus.Subscribe(handler, "invoice.payment_added")

	err := bus.Publish(context.Background(),
		newTestEvent("invoice.payment_added"),
		newTestEvent("invoice.payment_added"),
	)

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 2)
}

func TestInMemoryEventBus_Publish_MultipleHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler1 := newTestHandler("invoice.created")
	handler2 := newTestHandler("invoice.created")
	bus.Subscribe(handler1, "invoice.created")
	bus.Subscribe(handler2, "invoice.created")

	err := bus.Publish(context.Background(), newTestEvent("invoice.created"))

	require.NoError(t, err)
	assert.Len(t, handler1.getHandled(), 1)
	assert.Len(t, handler2.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_WildcardHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	wildcardHandler := newTestHandler() // no event types = wildcard
	bus.Subscribe(wildcardHandler)

	err := bus.Publish(context.Background(), newTestEvent("invoice.status_changed"))

	require.NoError(t, err)
	assert.Len(t, wildcardHandler.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_HandlerError(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler1 := newTestHandler("invoice.created")
	handler1.err = errors.New("handler error")
	handler2 := newTestHandler("invoice.created")
	bus.Subscribe(handler1, "invoice.created")
	bus.Subscribe(handler2, "invoice.created")

	err := bus.Publish(context.Background(), newTestEvent("invoice.created"))

	// A failing handler does not stop dispatch to the others
	require.NoError(t, err)
	assert.Len(t, handler1.getHandled(), 1)
	assert.Len(t, handler2.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_NoMatchingHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("invoice.deleted")
	bus.Subscribe(handler, "invoice.deleted")

	err := bus.Publish(context.Background(), newTestEvent("invoice.created"))

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 0)
}

type panickyHandler struct{}

func (panickyHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	panic("boom")
}

func (panickyHandler) EventTypes() []string {
	return []string{"invoice.created"}
}

func TestInMemoryEventBus_Publish_HandlerPanic(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	bus.Subscribe(panickyHandler{})
	handler := newTestHandler("invoice.created")
	bus.Subscribe(handler)

	// A panicking handler is contained and the next handler still runs
	require.NoError(t, bus.Publish(context.Background(), newTestEvent("invoice.created")))
	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler("invoice.created")
	bus.Subscribe(handler, "invoice.created")

	_ = bus.Publish(context.Background(), newTestEvent("invoice.created"))
	assert.Len(t, handler.getHandled(), 1)

	bus.Unsubscribe(handler)

	_ = bus.Publish(context.Background(), newTestEvent("invoice.created"))
	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	ctx := context.Background()
	require.NoError(t, bus.Start(ctx))

	handler := newTestHandler("invoice.created")
	bus.Subscribe(handler, "invoice.created")
	require.NoError(t, bus.Publish(ctx, newTestEvent("invoice.created")))
	assert.Len(t, handler.getHandled(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, bus.Stop(ctx))
}
