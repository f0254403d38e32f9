// internal/store/memory.go
//
// In-memory session store.
//
// Characteristics:
//   - Sessions are keyed by ID, with an index of the current session per chat.
//   - The map is guarded by an RWMutex; each session additionally has its own
//     mutex so moves on one session run strictly one at a time while
//     different sessions proceed in parallel.
//   - Get returns a copy; mutation only happens inside Update.
//   - State is lost when the process restarts.

package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/robalobadob/wordlink/internal/game"
)

// ErrNotFound is returned for unknown session IDs or chats without a game.
var ErrNotFound = errors.New("store: session not found")

// Store persists game sessions.
type Store interface {
	// Save adds s and makes it the current session of its chat.
	Save(ctx context.Context, s *game.Session) error
	// Get returns a copy of the session with id.
	Get(ctx context.Context, id string) (*game.Session, error)
	// Current returns a copy of the chat's most recent session.
	Current(ctx context.Context, chatID string) (*game.Session, error)
	// List returns copies of every session of the chat, oldest first.
	List(ctx context.Context, chatID string) ([]*game.Session, error)
	// Update runs fn on the live session while holding its lock.
	Update(ctx context.Context, id string, fn func(*game.Session) error) error
	// Prune drops finished sessions that ended before cutoff.
	Prune(ctx context.Context, cutoff time.Time) int
}

type entry struct {
	mu sync.Mutex
	s  *game.Session
}

type memory struct {
	mu     sync.RWMutex      // guards the maps, not the sessions
	byID   map[string]*entry // keyed by Session.ID
	byChat map[string]string // chat ID -> current session ID
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() Store {
	return &memory{byID: map[string]*entry{}, byChat: map[string]string{}}
}

func (m *memory) Save(_ context.Context, s *game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[s.ID] = &entry{s: s}
	if s.ChatID != "" {
		m.byChat[s.ChatID] = s.ID
	}
	return nil
}

func (m *memory) lookup(id string) (*entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if e, ok := m.byID[id]; ok {
		return e, nil
	}
	return nil, ErrNotFound
}

func (m *memory) Get(_ context.Context, id string) (*game.Session, error) {
	e, err := m.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return clone(e.s), nil
}

func (m *memory) Current(ctx context.Context, chatID string) (*game.Session, error) {
	m.mu.RLock()
	id, ok := m.byChat[chatID]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return m.Get(ctx, id)
}

func (m *memory) List(_ context.Context, chatID string) ([]*game.Session, error) {
	m.mu.RLock()
	entries := make([]*entry, 0, 4)
	for _, e := range m.byID {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	var out []*game.Session
	for _, e := range entries {
		e.mu.Lock()
		if e.s.ChatID == chatID {
			out = append(out, clone(e.s))
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}

func (m *memory) Update(ctx context.Context, id string, fn func(*game.Session) error) error {
	e, err := m.lookup(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(e.s)
}

func (m *memory) Prune(_ context.Context, cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.byID {
		e.mu.Lock()
		drop := e.s.Phase == game.PhaseFinished && e.s.FinishedAt.Before(cutoff)
		chat := e.s.ChatID
		e.mu.Unlock()
		if !drop {
			continue
		}
		delete(m.byID, id)
		if m.byChat[chat] == id {
			delete(m.byChat, chat)
		}
		n++
	}
	return n
}

// clone copies s deeply enough that callers cannot race with Update.
func clone(s *game.Session) *game.Session {
	c := *s
	c.Chain = append(c.Chain[:0:0], s.Chain...)
	c.Constraints.ForbiddenChars = append([]rune(nil), s.Constraints.ForbiddenChars...)
	return &c
}
