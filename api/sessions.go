package api

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/horizons-db/archive-backend/editor"
	"github.com/horizons-db/archive-backend/errs"
)

// editEntry serializes requests against one editor.Session.
type editEntry struct {
	mu      sync.Mutex
	session *editor.Session
	owner   uuid.UUID
	touched time.Time
}

// sessionRegistry keeps open edit sessions in memory, keyed by a random id
// and bound to the user who opened them. Idle sessions expire after ttl.
type sessionRegistry struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*editEntry
	ttl     time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

func newSessionRegistry(ttl time.Duration, now func() time.Time) *sessionRegistry {
	if now == nil {
		now = time.Now
	}
	return &sessionRegistry{
		entries: make(map[uuid.UUID]*editEntry),
		ttl:     ttl,
		now:     now,
		logger:  log.With().Str("component", "editSessions").Logger(),
	}
}

func (r *sessionRegistry) open(owner uuid.UUID, s *editor.Session) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evictLocked()
	id := uuid.New()
	r.entries[id] = &editEntry{session: s, owner: owner, touched: r.now()}
	return id
}

// acquire returns the locked entry; callers must call release. Sessions owned
// by someone else are reported as missing.
func (r *sessionRegistry) acquire(id, owner uuid.UUID) (*editEntry, error) {
	r.mu.Lock()
	r.evictLocked()
	e, ok := r.entries[id]
	if ok && e.owner == owner {
		e.touched = r.now()
	}
	r.mu.Unlock()
	if !ok || e.owner != owner {
		return nil, errs.NewNotFoundError("edit session")
	}
	e.mu.Lock()
	return e, nil
}

func (r *sessionRegistry) release(e *editEntry) {
	e.mu.Unlock()
}

func (r *sessionRegistry) close(id uuid.UUID) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
}

func (r *sessionRegistry) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *sessionRegistry) evictLocked() {
	if r.ttl <= 0 {
		return
	}
	cutoff := r.now().Add(-r.ttl)
	for id, e := range r.entries {
		if e.touched.Before(cutoff) {
			delete(r.entries, id)
			r.logger.Info().
				Str("sessionID", id.String()).
				Str("projectID", e.session.ProjectID().String()).
				Msg("edit session expired")
		}
	}
}
