// Package session keeps the logged-in user of a tab and enforces that at
// most one tab per browser stays authenticated.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/billable-dashboard/internal"
	"github.com/frahmantamala/billable-dashboard/internal/core/role"
	"github.com/google/uuid"
)

// DefaultSignalTTL is how long a broadcast record stays on its shared key.
const DefaultSignalTTL = 100 * time.Millisecond

type State int

const (
	Anonymous State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "AUTHENTICATED"
	}
	return "ANONYMOUS"
}

// User is what a tab persists under KeyUser. Role is already normalized.
type User struct {
	UserID          int64     `json:"user_id"`
	Name            string    `json:"user_name"`
	Email           string    `json:"user_email"`
	Role            role.Role `json:"role_id"`
	TeamID          int64     `json:"team_id,omitempty"`
	Token           string    `json:"token"`
	UserCreation    bool      `json:"user_creation_permission"`
	ProjectCreation bool      `json:"project_creation_permission"`
}

func (u User) Permissions() role.Permissions {
	return role.Derive(u.Role, u.UserCreation, u.ProjectCreation)
}

type EventKind string

const (
	EventLogin       EventKind = "login"
	EventLogout      EventKind = "logout"
	EventInvalidated EventKind = "invalidated"
	// EventClosed is only seen by registry watchers.
	EventClosed EventKind = "closed"
)

// Event is delivered to subscribers of a Store. Redirect is set when the
// tab has to go back to the login screen.
type Event struct {
	Kind     EventKind
	User     *User
	Reason   string
	Redirect string
}

const LoginPath = "/login"

type Option func(*Store)

// WithSignalTTL overrides DefaultSignalTTL.
func WithSignalTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

type Store struct {
	tabID   string
	storage Storage
	bus     Broadcaster
	signer  *Signer
	logger  *slog.Logger
	ttl     time.Duration
	now     func() time.Time

	mu       sync.Mutex
	subs     map[int]func(Event)
	nextSub  int
	replaced *internal.AppError
	stop     func()
}

// NewStore attaches a tab to the browser-wide broadcaster and starts
// listening for other tabs' login and logout signals.
func NewStore(tabID string, storage Storage, bus Broadcaster, signer *Signer, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		tabID:   tabID,
		storage: storage,
		bus:     bus,
		signer:  signer,
		logger:  logger.With("tab_id", tabID),
		ttl:     DefaultSignalTTL,
		now:     time.Now,
		subs:    make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.stop = bus.Listen(tabID, s.onChange)
	return s
}

func (s *Store) TabID() string {
	return s.tabID
}

// Login stores u for this tab under a fresh session id and tells every other
// tab of the browser about it.
func (s *Store) Login(ctx context.Context, u User) (string, error) {
	if u.UserID <= 0 {
		return "", internal.NewValidationFieldError("user_id", "user id is required", internal.ErrCodeValidationFailed)
	}

	raw, err := json.Marshal(u)
	if err != nil {
		return "", fmt.Errorf("failed to encode session user: %w", err)
	}

	sessionID := uuid.NewString()
	s.mu.Lock()
	if err := s.storage.Set(ctx, KeyUser, string(raw)); err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("failed to store session user: %w", err)
	}
	if err := s.storage.Set(ctx, KeySessionID, sessionID); err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("failed to store session id: %w", err)
	}
	if err := s.storage.Remove(ctx, KeyReplaced); err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("failed to reset takeover marker: %w", err)
	}
	s.replaced = nil
	s.mu.Unlock()

	s.logger.Info("tab logged in", "user_id", u.UserID, "role", u.Role.String())
	s.notify(Event{Kind: EventLogin, User: &u})

	if err := s.signal(ctx, SignalLogin, Signal{SessionID: sessionID, UserID: u.UserID, Timestamp: s.now()}); err != nil {
		return sessionID, err
	}
	return sessionID, s.clearSiblings(ctx, true)
}

// Logout clears this tab and signals every other tab to do the same.
func (s *Store) Logout(ctx context.Context) error {
	sessionID, _, _ := s.storage.Get(ctx, KeySessionID)
	u, _ := s.currentUser(ctx)

	s.mu.Lock()
	err := s.storage.Clear(ctx)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	sig := Signal{SessionID: sessionID, Timestamp: s.now()}
	if u != nil {
		sig.UserID = u.UserID
	}
	s.logger.Info("tab logged out", "user_id", sig.UserID)
	s.notify(Event{Kind: EventLogout, Redirect: LoginPath})
	if err := s.signal(ctx, SignalLogout, sig); err != nil {
		return err
	}
	return s.clearSiblings(ctx, false)
}

// clearSiblings runs after the broadcast, so listening tabs have already
// handled the signal and only the unattached ones are left.
func (s *Store) clearSiblings(ctx context.Context, replaced bool) error {
	sib, ok := s.storage.(SiblingStorage)
	if !ok {
		return nil
	}
	if err := sib.ClearSiblings(ctx, replaced); err != nil {
		return fmt.Errorf("failed to clear other tabs: %w", err)
	}
	return nil
}

// CurrentUser returns the tab's user. An anonymous tab gets
// ErrSessionReplaced when another tab took over, ErrSessionMissing otherwise.
func (s *Store) CurrentUser(ctx context.Context) (*User, error) {
	u, err := s.currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if u == nil {
		s.mu.Lock()
		replaced := s.replaced
		s.mu.Unlock()
		if replaced != nil {
			return nil, replaced
		}
		if code, ok, _ := s.storage.Get(ctx, KeyReplaced); ok && code == string(internal.ErrCodeSessionReplaced) {
			return nil, internal.ErrSessionReplaced
		}
		return nil, internal.ErrSessionMissing
	}
	return u, nil
}

func (s *Store) currentUser(ctx context.Context) (*User, error) {
	raw, ok, err := s.storage.Get(ctx, KeyUser)
	if err != nil {
		return nil, fmt.Errorf("failed to read session user: %w", err)
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		s.logger.Warn("discarding unreadable session user", "error", err)
		return nil, nil
	}
	return &u, nil
}

func (s *Store) SessionID(ctx context.Context) string {
	id, _, _ := s.storage.Get(ctx, KeySessionID)
	return id
}

func (s *Store) State(ctx context.Context) State {
	if u, _ := s.currentUser(ctx); u != nil {
		return Authenticated
	}
	return Anonymous
}

// Permissions of the current user; the zero value when anonymous.
func (s *Store) Permissions(ctx context.Context) role.Permissions {
	u, _ := s.currentUser(ctx)
	if u == nil {
		return role.Permissions{}
	}
	return u.Permissions()
}

// Subscribe registers fn for login, logout and invalidation events of this
// tab and returns a func that unregisters it.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// Close detaches the tab from the broadcaster.
func (s *Store) Close() {
	if s.stop != nil {
		s.stop()
	}
}

func (s *Store) notify(e Event) {
	s.mu.Lock()
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(e)
	}
}

// signal writes a signed record to key and removes it again after the TTL.
func (s *Store) signal(ctx context.Context, key string, sig Signal) error {
	token, err := s.signer.Sign(sig)
	if err != nil {
		return err
	}
	if err := s.bus.Write(ctx, s.tabID, key, token); err != nil {
		return fmt.Errorf("failed to broadcast %s: %w", key, err)
	}

	time.AfterFunc(s.ttl, func() {
		if err := s.bus.Remove(context.Background(), s.tabID, key); err != nil {
			s.logger.Warn("failed to clear broadcast key", "key", key, "error", err)
		}
	})
	return nil
}

func (s *Store) onChange(ctx context.Context, c Change) {
	if c.NewValue == "" {
		return
	}
	if c.Key != SignalLogin && c.Key != SignalLogout {
		return
	}

	sig, err := s.signer.Verify(c.NewValue)
	if err != nil {
		s.logger.Warn("ignoring unsigned session signal", "key", c.Key, "error", err)
		return
	}

	own, err := s.currentUser(ctx)
	if err != nil || own == nil {
		return
	}

	switch c.Key {
	case SignalLogin:
		if sig.SessionID == s.SessionID(ctx) && sig.UserID == own.UserID {
			return
		}
		s.invalidate(ctx, internal.ErrSessionReplaced, "logged in from another tab")
	case SignalLogout:
		s.invalidate(ctx, internal.ErrSessionMissing, "logged out from another tab")
	}
}

func (s *Store) invalidate(ctx context.Context, reason *internal.AppError, why string) {
	s.mu.Lock()
	err := s.storage.Clear(ctx)
	if err == nil && reason == internal.ErrSessionReplaced {
		err = s.storage.Set(ctx, KeyReplaced, string(reason.Code))
	}
	s.replaced = reason
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("failed to clear replaced session", "error", err)
	}

	s.logger.Info("tab session invalidated", "reason", why)
	s.notify(Event{Kind: EventInvalidated, Reason: reason.Message, Redirect: LoginPath})
}
