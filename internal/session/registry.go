package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// StorageFactory opens the tab-scoped storage of one tab.
type StorageFactory func(browserID, tabID string) Storage

// Persisted tabs are touched at most this often.
const touchInterval = time.Minute

type openTab struct {
	store     *Store
	storage   Storage
	lastUsed  time.Time
	lastTouch time.Time
}

type browser struct {
	bus  *LocalBroadcaster
	tabs map[string]*openTab
}

// Registry maps browser ids to their broadcaster and tab stores. It stands in
// for the browser on the server side.
type Registry struct {
	signer  *Signer
	storage StorageFactory
	logger  *slog.Logger
	opts    []Option
	now     func() time.Time

	mu       sync.Mutex
	browsers map[string]*browser
	watchers []Watcher
}

// Watcher observes the session events of every tab, plus EventClosed when
// the registry lets go of a tab.
type Watcher func(browserID, tabID string, ev Event)

func NewRegistry(signer *Signer, storage StorageFactory, logger *slog.Logger, opts ...Option) *Registry {
	if storage == nil {
		storage = func(string, string) Storage { return NewMemoryStorage() }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		signer:   signer,
		storage:  storage,
		logger:   logger,
		opts:     opts,
		now:      time.Now,
		browsers: make(map[string]*browser),
	}
}

// Tab returns the store of a tab, opening it on first use. Every call counts
// as activity for Evict.
func (r *Registry) Tab(browserID, tabID string) *Store {
	store, toucher := r.open(browserID, tabID)
	if toucher != nil {
		if err := toucher.Touch(context.Background()); err != nil {
			r.logger.Warn("failed to touch tab session", "browser_id", browserID, "tab_id", tabID, "error", err)
		}
	}
	return store
}

func (r *Registry) open(browserID, tabID string) (*Store, Toucher) {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.browsers[browserID]
	if !ok {
		b = &browser{
			bus:  NewLocalBroadcaster(r.logger),
			tabs: make(map[string]*openTab),
		}
		r.browsers[browserID] = b
	}

	t, ok := b.tabs[tabID]
	if !ok {
		lg := r.logger.With("browser_id", browserID)
		storage := r.storage(browserID, tabID)
		store := NewStore(tabID, storage, b.bus, r.signer, lg, r.opts...)
		for _, w := range r.watchers {
			w := w
			store.Subscribe(func(ev Event) { w(browserID, tabID, ev) })
		}
		t = &openTab{store: store, storage: storage}
		b.tabs[tabID] = t
	}

	now := r.now()
	t.lastUsed = now
	toucher, ok := t.storage.(Toucher)
	if !ok || now.Sub(t.lastTouch) < touchInterval {
		return t.store, nil
	}
	t.lastTouch = now
	return t.store, toucher
}

// Watch registers w for tabs opened from now on.
func (r *Registry) Watch(w Watcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watchers = append(r.watchers, w)
}

// CloseTab detaches a tab and forgets its store. Persisted storage is left
// alone; a later request for the tab reopens it.
func (r *Registry) CloseTab(browserID, tabID string) {
	r.mu.Lock()
	closed := r.closeLocked(browserID, tabID)
	watchers := append([]Watcher(nil), r.watchers...)
	r.mu.Unlock()

	if closed {
		notifyClosed(watchers, browserID, tabID)
	}
}

func (r *Registry) closeLocked(browserID, tabID string) bool {
	b, ok := r.browsers[browserID]
	if !ok {
		return false
	}
	t, ok := b.tabs[tabID]
	if !ok {
		return false
	}
	t.store.Close()
	delete(b.tabs, tabID)
	if len(b.tabs) == 0 {
		delete(r.browsers, browserID)
	}
	return true
}

// Evict closes every tab not used since before and returns how many went.
func (r *Registry) Evict(before time.Time) int {
	type ref struct{ browserID, tabID string }

	r.mu.Lock()
	var idle []ref
	for browserID, b := range r.browsers {
		for tabID, t := range b.tabs {
			if t.lastUsed.Before(before) {
				idle = append(idle, ref{browserID, tabID})
			}
		}
	}
	for _, t := range idle {
		r.closeLocked(t.browserID, t.tabID)
	}
	watchers := append([]Watcher(nil), r.watchers...)
	r.mu.Unlock()

	for _, t := range idle {
		notifyClosed(watchers, t.browserID, t.tabID)
	}
	if len(idle) > 0 {
		r.logger.Info("evicted idle tabs", "count", len(idle))
	}
	return len(idle)
}

// Sweep evicts tabs idle for longer than idle every interval until ctx ends.
// onSweep, when set, runs after each pass with the same cutoff.
func (r *Registry) Sweep(ctx context.Context, interval, idle time.Duration, onSweep func(ctx context.Context, before time.Time)) {
	if interval <= 0 || idle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			before := r.now().Add(-idle)
			r.Evict(before)
			if onSweep != nil {
				onSweep(ctx, before)
			}
		}
	}
}

// Tabs counts the open tabs of a browser.
func (r *Registry) Tabs(browserID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.browsers[browserID]; ok {
		return len(b.tabs)
	}
	return 0
}

// Open counts the open tabs of every browser.
func (r *Registry) Open() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, b := range r.browsers {
		n += len(b.tabs)
	}
	return n
}

func notifyClosed(watchers []Watcher, browserID, tabID string) {
	for _, w := range watchers {
		w(browserID, tabID, Event{Kind: EventClosed})
	}
}
