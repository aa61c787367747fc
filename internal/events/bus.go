// Package events carries change notifications from the activity store to
// its readers and records them in the workspace event log.
package events

import (
	"context"
	"sync"

	"dayplanner/internal/calendar"
)

type Kind string

const (
	KindSeeded    Kind = "seeded"
	KindAdded     Kind = "added"
	KindUpdated   Kind = "updated"
	KindDeleted   Kind = "deleted"
	KindToggled   Kind = "toggled"
	KindReordered Kind = "reordered"
)

// Change describes one persisted write to a date key.
type Change struct {
	Kind       Kind
	Date       calendar.Date
	ActivityID string
}

type Handler func(ctx context.Context, c Change)

// Publisher is what the store needs from a bus.
type Publisher interface {
	Publish(ctx context.Context, c Change)
}

// Bus fans a change out to every subscriber, synchronously and in
// subscription order.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *Bus) Publish(ctx context.Context, c Change) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, c)
	}
}

// Discard drops every change.
type Discard struct{}

func (Discard) Publish(context.Context, Change) {}
