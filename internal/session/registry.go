package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultIdleTimeout is the open-connection timeout spec §5 names: a
// session with no activity for longer than this is removed from the
// registry by its background sweep and handed to onIdle to be closed.
const DefaultIdleTimeout = 60 * time.Second

// DefaultMaxSessions is the WebSocket concurrency ceiling spec §5 names.
const DefaultMaxSessions = 10

// reapPollInterval is how often the background sweep checks for idle
// sessions. It is independent of idleTimeout so a short timeout still
// gets checked promptly without busy-polling on a long one.
const reapPollInterval = 5 * time.Second

// Registry is the concurrency-safe session set spec §4.6 specifies: insert
// on handshake, remove by identity on close (idempotent), iterate for idle
// reaping — one exclusion scope, since fanout is capped low (≤10).
type Registry struct {
	mu          sync.Mutex
	sessions    map[uint64]*Session
	nextID      uint64
	maxSessions int

	idleTimeout time.Duration
	onIdle      func(*Session)
	log         *slog.Logger

	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

// ErrFull is returned by Insert when the registry is already at
// maxSessions.
var ErrFull = fmt.Errorf("session: registry at capacity")

// New starts a Registry with a background idle-reap sweep. onIdle is
// called (outside the registry's lock) for each session the sweep removes
// for inactivity; the caller is expected to close that session's send
// handle.
func New(maxSessions int, idleTimeout time.Duration, onIdle func(*Session), log *slog.Logger) *Registry {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{
		sessions:    make(map[uint64]*Session),
		maxSessions: maxSessions,
		idleTimeout: idleTimeout,
		onIdle:      onIdle,
		log:         log,
		done:        make(chan struct{}),
	}
	r.ticker = time.NewTicker(reapPollInterval)
	go r.reapLoop()
	return r
}

// Insert creates and registers a new Session, failing with ErrFull once
// maxSessions live sessions are already registered.
func (r *Registry) Insert(send Sender) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.maxSessions {
		return nil, ErrFull
	}

	r.nextID++
	s := newSession(r.nextID, send)
	r.sessions[s.ID] = s
	return s, nil
}

// Remove deregisters a session by identity. It is a no-op if the session
// is already gone, matching spec §4.6's "must be total" requirement and
// §7's "duplicate remove is a no-op" policy.
func (r *Registry) Remove(id uint64) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if ok {
		s.deactivate()
	}
}

// Len reports the number of live sessions. The §5 resource limit itself
// is enforced by Insert.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Get returns the session for id, if still registered.
func (r *Registry) Get(id uint64) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) reapLoop() {
	for {
		select {
		case <-r.done:
			r.ticker.Stop()
			return
		case <-r.ticker.C:
			r.reapOnce(time.Now())
		}
	}
}

// reapOnce removes every session idle for longer than idleTimeout. It
// collects the victims under the lock, then calls onIdle outside it so a
// slow or blocking Close doesn't stall Insert/Remove.
func (r *Registry) reapOnce(now time.Time) {
	var idle []*Session

	r.mu.Lock()
	for id, s := range r.sessions {
		if s.IdleSince(now) > r.idleTimeout {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.deactivate()
		r.log.Info("session: reaped idle session", "id", s.ID, "idle_timeout", r.idleTimeout)
		if r.onIdle != nil {
			r.onIdle(s)
		}
	}
}

// Stop halts the idle-reap sweep. It does not close any sessions.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
}
