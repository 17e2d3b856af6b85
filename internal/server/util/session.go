package util

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/logger"
	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/wordgraph"
)

// MaxSessionIDLength bounds client supplied session ids.
const MaxSessionIDLength = 128

var (
	ErrInvalidSession = errors.New("invalid session id")
	ErrRegistryClosed = errors.New("session registry closed")
)

type session struct {
	service  *wordgraph.Service
	lastUsed time.Time
}

// SessionRegistry owns one latest-wins graph service per client session.
// Sessions are created on first use and disposed explicitly, after being
// idle for the configured timeout, or when the registry is closed.
type SessionRegistry struct {
	builder *wordgraph.Builder
	idle    time.Duration
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewSessionRegistry creates a registry building graphs with builder. With a
// positive idle timeout a janitor goroutine disposes inactive sessions.
func NewSessionRegistry(builder *wordgraph.Builder, idle time.Duration) *SessionRegistry {
	r := &SessionRegistry{
		builder:  builder,
		idle:     idle,
		now:      time.Now,
		sessions: map[string]*session{},
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if idle > 0 {
		go r.janitor()
	} else {
		close(r.done)
	}
	return r
}

// Get returns the service of session id, creating it when needed.
func (r *SessionRegistry) Get(id string) (*wordgraph.Service, error) {
	if id == "" || len(id) > MaxSessionIDLength {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSession, id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrRegistryClosed
	}

	s, ok := r.sessions[id]
	if !ok {
		s = &session{service: wordgraph.NewService(r.builder)}
		r.sessions[id] = s
		logger.Debug("[Session] Created session", "session_id", id)
	}
	s.lastUsed = r.now()
	return s.service, nil
}

// Dispose closes the service of session id. It reports whether the session
// existed.
func (r *SessionRegistry) Dispose(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if ok {
		s.service.Close()
		logger.Debug("[Session] Disposed session", "session_id", id)
	}
	return ok
}

// Len returns the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// sweep disposes every session unused for longer than the idle timeout.
func (r *SessionRegistry) sweep() int {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var expired []*session
	for id, s := range r.sessions {
		if s.lastUsed.Before(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.service.Close()
	}
	if len(expired) > 0 {
		logger.Debug("[Session] Disposed idle sessions", "count", len(expired))
	}
	return len(expired)
}

func (r *SessionRegistry) janitor() {
	defer close(r.done)

	interval := max(r.idle/2, time.Second)
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-t.C:
			r.sweep()
		}
	}
}

// Close disposes every session and stops the janitor. Get fails afterwards.
func (r *SessionRegistry) Close() {
	r.closeOnce.Do(func() {
		close(r.stop)
		<-r.done

		r.mu.Lock()
		r.closed = true
		sessions := r.sessions
		r.sessions = map[string]*session{}
		r.mu.Unlock()

		for _, s := range sessions {
			s.service.Close()
		}
	})
}
