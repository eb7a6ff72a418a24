package event

import (
	"context"
	"sync"

	"github.com/freightport/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// orderEvent is a minimal order event used across the package tests
type orderEvent struct {
	shared.BaseDomainEvent
	Data string `json:"data"`
}

func newOrderEvent(eventType string, companyID uuid.UUID) *orderEvent {
	return &orderEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "Order", uuid.New(), companyID),
		Data:            "FCL 40HQ Shanghai to Rotterdam",
	}
}

// spyHandler records what it was handed and fails with err when set
type spyHandler struct {
	mu     sync.Mutex
	types  []string
	events []shared.DomainEvent
	err    error
}

func newSpy(eventTypes ...string) *spyHandler {
	return &spyHandler{types: eventTypes}
}

func (h *spyHandler) Handle(_ context.Context, ev shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	return h.err
}

func (h *spyHandler) EventTypes() []string { return h.types }

func (h *spyHandler) seen() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.events...)
}

type panicHandler struct{}

func (panicHandler) Handle(context.Context, shared.DomainEvent) error { panic("nil bill") }
func (panicHandler) EventTypes() []string                             { return nil }
