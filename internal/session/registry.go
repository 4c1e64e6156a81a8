package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"slotkeeper/pkg/logger"
)

// Builder creates the session for a new id.
type Builder func(id string) *Session

// Registry keeps live wizard sessions and drops those idle longer than ttl.
type Registry struct {
	build Builder
	ttl   time.Duration
	now   func() time.Time
	log   *logger.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(build Builder, ttl time.Duration, log *logger.Logger) *Registry {
	return &Registry{
		build:    build,
		ttl:      ttl,
		now:      time.Now,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

func (r *Registry) Create() *Session {
	s := r.build(uuid.NewString())
	s.touch(r.now())

	r.mu.Lock()
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	r.log.Debug("Session created", "session_id", s.ID())
	return s
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		s.touch(r.now())
	}
	return s, ok
}

func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes sessions idle for at least ttl and returns how many it removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	var expired []*Session
	for id, s := range r.sessions {
		if !s.idleSince().After(cutoff) {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		r.log.Debug("Expired idle sessions", "count", len(expired))
	}
	return len(expired)
}

// Run sweeps every ttl/2 until ctx ends.
func (r *Registry) Run(ctx context.Context) {
	if r.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
