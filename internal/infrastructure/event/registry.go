package event

import (
	"slices"
	"sync"

	"github.com/freightport/backend/internal/domain/shared"
)

// wildcardKey holds handlers that receive every event type
const wildcardKey = ""

// routes maps event types to subscribed handlers. Delivery order is the
// subscription order for a type, then the wildcard handlers.
type routes struct {
	mu     sync.RWMutex
	byType map[string][]shared.EventHandler
}

func newRoutes() *routes {
	return &routes{byType: make(map[string][]shared.EventHandler)}
}

func (r *routes) add(h shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(eventTypes) == 0 {
		eventTypes = []string{wildcardKey}
	}
	for _, t := range eventTypes {
		r.byType[t] = append(r.byType[t], h)
	}
}

func (r *routes) remove(h shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for t, hs := range r.byType {
		hs = slices.DeleteFunc(slices.Clone(hs), func(x shared.EventHandler) bool { return x == h })
		if len(hs) == 0 {
			delete(r.byType, t)
			continue
		}
		r.byType[t] = hs
	}
}

// match returns a snapshot safe to iterate while handlers subscribe
func (r *routes) match(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if eventType == wildcardKey {
		return slices.Clone(r.byType[wildcardKey])
	}
	return slices.Concat(r.byType[eventType], r.byType[wildcardKey])
}

// distinct counts handlers regardless of how many types they hold
func (r *routes) distinct() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[shared.EventHandler]struct{})
	for _, hs := range r.byType {
		for _, h := range hs {
			seen[h] = struct{}{}
		}
	}
	return len(seen)
}
