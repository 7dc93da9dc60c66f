package apiclient

import (
	"net/http"
	"sync"

	"github.com/frahmantamala/billable-dashboard/internal"
)

// ErrStale is returned for a response whose request was superseded by a newer
// one for the same view.
var ErrStale = &internal.AppError{
	Type:       internal.ErrorTypeNotice,
	Code:       internal.ErrCodeStaleResponse,
	Message:    "A newer request replaced this one",
	StatusCode: http.StatusConflict,
}

// Generations hands out per-key request tickets. Only the latest ticket of a
// key is current. Ticket numbers come from one sequence shared by all keys, so
// a key that was forgotten and begun again never reissues an old number.
type Generations struct {
	mu   sync.Mutex
	next uint64
	seq  map[string]uint64
}

func NewGenerations() *Generations {
	return &Generations{seq: make(map[string]uint64)}
}

type Ticket struct {
	g   *Generations
	key string
	n   uint64
}

func (g *Generations) Begin(key string) Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	g.seq[key] = g.next
	return Ticket{g: g, key: key, n: g.next}
}

func (t Ticket) Current() bool {
	t.g.mu.Lock()
	defer t.g.mu.Unlock()
	return t.g.seq[t.key] == t.n
}

// Check returns ErrStale once a newer ticket exists for the key.
func (t Ticket) Check() error {
	if !t.Current() {
		return ErrStale
	}
	return nil
}

// Forget drops a key, for example when its tab closes. Tickets still in
// flight for it turn stale.
func (g *Generations) Forget(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seq, key)
}

// Len is the number of keys tracked.
func (g *Generations) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seq)
}
