package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/billable-dashboard/internal/core/events"
	"github.com/google/uuid"
)

// Shared signal keys. Their values are transient.
const (
	SignalLogin  = "session_login_signal"
	SignalLogout = "session_logout_signal"
)

const storageEventType = "storage"

// Change is delivered to every tab except the writer when a shared key
// changes. NewValue is empty when the key was removed.
type Change struct {
	Key      string
	OldValue string
	NewValue string
	Origin   string
}

// Broadcaster is browser-wide storage shared by every tab, with change
// notifications for the tabs that did not make the change.
type Broadcaster interface {
	Write(ctx context.Context, origin, key, value string) error
	Remove(ctx context.Context, origin, key string) error
	Read(key string) (string, bool)
	Listen(tabID string, fn func(context.Context, Change)) (stop func())
}

// LocalBroadcaster is the in-process Broadcaster for one browser, built on
// the event bus.
type LocalBroadcaster struct {
	bus    *events.EventBus
	logger *slog.Logger

	mu     sync.Mutex
	values map[string]string
}

func NewLocalBroadcaster(logger *slog.Logger) *LocalBroadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalBroadcaster{
		bus:    events.NewEventBus(logger),
		logger: logger,
		values: make(map[string]string),
	}
}

func (b *LocalBroadcaster) Write(ctx context.Context, origin, key, value string) error {
	b.mu.Lock()
	old := b.values[key]
	b.values[key] = value
	b.mu.Unlock()

	return b.publish(ctx, Change{Key: key, OldValue: old, NewValue: value, Origin: origin})
}

func (b *LocalBroadcaster) Remove(ctx context.Context, origin, key string) error {
	b.mu.Lock()
	old, ok := b.values[key]
	delete(b.values, key)
	b.mu.Unlock()

	if !ok {
		return nil
	}
	return b.publish(ctx, Change{Key: key, OldValue: old, Origin: origin})
}

func (b *LocalBroadcaster) Read(key string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.values[key]
	return v, ok
}

func (b *LocalBroadcaster) Listen(tabID string, fn func(context.Context, Change)) func() {
	return b.bus.Subscribe(storageEventType, tabID, func(ctx context.Context, e events.Event) error {
		if c, ok := e.Payload().(Change); ok {
			fn(ctx, c)
		}
		return nil
	})
}

func (b *LocalBroadcaster) publish(ctx context.Context, c Change) error {
	return b.bus.PublishSync(ctx, changeEvent{
		BaseEvent: events.BaseEvent{
			ID:        uuid.NewString(),
			Type:      storageEventType,
			Source:    c.Origin,
			Timestamp: time.Now(),
		},
		change: c,
	})
}

type changeEvent struct {
	events.BaseEvent
	change Change
}

func (e changeEvent) Payload() interface{} {
	return e.change
}
