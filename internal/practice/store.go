package practice

import (
	"errors"
	"sync"
	"time"

	appErrors "placementprep/internal/errors"

	"github.com/google/uuid"
)

// ErrSessionNotFound is returned for unknown or evicted session ids
var ErrSessionNotFound = errors.New("practice session not found")

// Store keeps server-side sessions and evicts idle ones
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	judge    Judge
	opts     Options
	ttl      time.Duration
	done     chan struct{}
	once     sync.Once
	logger   *appErrors.Logger
}

// NewStore creates a store whose sessions share j. opts is the template for new sessions.
func NewStore(j Judge, opts Options, ttl, cleanupInterval time.Duration) *Store {
	st := &Store{
		sessions: make(map[string]*Session),
		judge:    j,
		opts:     opts,
		ttl:      ttl,
		done:     make(chan struct{}),
		logger:   opts.Logger,
	}

	if ttl > 0 && cleanupInterval > 0 {
		go st.cleanupRoutine(cleanupInterval)
	}
	return st
}

// Create starts a new empty session with a fresh id
func (st *Store) Create() *Session {
	opts := st.opts
	opts.ID = uuid.NewString()
	s := NewSession(st.judge, opts)

	st.mu.Lock()
	st.sessions[opts.ID] = s
	st.mu.Unlock()

	st.logger.Debug("Practice session created", "session_id", opts.ID)
	return s
}

// Get returns a live session
func (st *Store) Get(id string) (*Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete removes a session
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(st.sessions, id)
	return nil
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// GetStats returns store statistics
func (st *Store) GetStats() map[string]any {
	return map[string]any{
		"active_sessions": st.Len(),
		"session_ttl":     st.ttl.String(),
	}
}

func (st *Store) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			st.evictIdle(time.Now())
		case <-st.done:
			return
		}
	}
}

// evictIdle removes sessions unused for longer than the TTL
func (st *Store) evictIdle(now time.Time) int {
	st.mu.Lock()
	candidates := make(map[string]*Session, len(st.sessions))
	for id, s := range st.sessions {
		candidates[id] = s
	}
	st.mu.Unlock()

	evicted := 0
	for id, s := range candidates {
		if now.Sub(s.LastUsed()) <= st.ttl {
			continue
		}
		st.mu.Lock()
		if st.sessions[id] == s {
			delete(st.sessions, id)
			evicted++
		}
		st.mu.Unlock()
	}

	st.logger.Debug("Practice session cleanup completed",
		"evicted", evicted,
		"remaining_sessions", st.Len())
	return evicted
}

// Close stops the cleanup goroutine
func (st *Store) Close() {
	st.once.Do(func() { close(st.done) })
}
