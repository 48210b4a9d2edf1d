// Package session implements the Session Registry (spec §4.6): a
// concurrency-safe collection of live WebSocket streaming sessions, each
// carrying an audio ring, a last-activity timestamp, and a send handle.
package session

import (
	"sync"
	"time"

	"github.com/whisperd/whisperd/internal/streaming"
)

// Sender is the out-of-band handle a session uses to push frames back to
// its surface. Keying the registry on session identity and storing this
// handle separately — rather than the session holding a pointer back to
// the registry, or the registry holding anything but the session's own
// state — avoids the cyclic-ownership trap spec §9 calls out.
type Sender interface {
	Close(reason string) error
}

// Session is one streaming conversation (spec §3). Ring is mutated only
// by the surface goroutine delivering this session's frames — the
// single-poll-thread model spec §5 describes — so it carries no internal
// lock. LastActivity and Active are read concurrently by the registry's
// idle reaper and so are guarded separately.
type Session struct {
	ID   uint64
	Ring streaming.Ring
	Send Sender

	mu           sync.Mutex
	lastActivity time.Time
	active       bool
}

func newSession(id uint64, send Sender) *Session {
	return &Session{
		ID:           id,
		Send:         send,
		lastActivity: time.Now(),
		active:       true,
	}
}

// Touch records activity, resetting the idle-reap clock.
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

// IdleSince reports how long it has been since the session last saw
// activity.
func (s *Session) IdleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActivity)
}

// Active reports whether the session is still considered live.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Session) deactivate() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}
