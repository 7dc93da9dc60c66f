package session

import (
	"context"
	"sync"
)

// Keys held in a tab's storage.
const (
	KeyUser      = "user"
	KeySessionID = "session_id"
	// KeyReplaced holds the error code of a takeover by another tab.
	KeyReplaced = "replaced"
)

// Storage is scoped to a single tab and is gone when the tab closes.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// SiblingStorage is implemented by storage that outlives the process. It
// reaches tabs of the same browser that have no Store listening, such as
// every tab persisted before a restart.
type SiblingStorage interface {
	// ClearSiblings drops the user of every other logged-in tab of the
	// browser. With replaced set those tabs report ErrSessionReplaced.
	ClearSiblings(ctx context.Context, replaced bool) error
}

// Toucher is implemented by storage that expires idle tabs. Touch marks the
// tab as in use.
type Toucher interface {
	Touch(ctx context.Context) error
}

type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

func (m *MemoryStorage) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values = make(map[string]string)
	return nil
}
