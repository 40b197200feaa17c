// Package memstore keeps the archive tables in process memory. It backs
// DB_TYPE=memory and the unit tests of the core packages.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/horizons-db/archive-backend/errs"
	"github.com/horizons-db/archive-backend/models"
)

type Store struct {
	mu           sync.RWMutex
	projects     map[uuid.UUID]*models.Project
	projectOrder []uuid.UUID
	members      []models.PeopleProject
	people       map[uuid.UUID]*models.Person
	institutions map[uuid.UUID]*models.Institution
	keywords     map[string]*models.Keyword
	genres       map[string]*models.Genre
	invites      map[uuid.UUID]*models.Invite

	calls map[string]int
	fail  map[string]error
	now   func() time.Time
}

func New() *Store {
	return &Store{
		projects:     make(map[uuid.UUID]*models.Project),
		people:       make(map[uuid.UUID]*models.Person),
		institutions: make(map[uuid.UUID]*models.Institution),
		keywords:     make(map[string]*models.Keyword),
		genres:       make(map[string]*models.Genre),
		invites:      make(map[uuid.UUID]*models.Invite),
		calls:        make(map[string]int),
		fail:         make(map[string]error),
		now:          time.Now,
	}
}

// Fail makes every later call of op return err. A nil err clears it.
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// Calls reports how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

// enter counts op and returns its injected failure. Callers hold s.mu.
func (s *Store) enter(ctx context.Context, op string) error {
	s.calls[op]++
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fail[op]
}

// timestamp is truncated to the precision Postgres keeps.
func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func notFound(entity string, key interface{}) error {
	return fmt.Errorf("%s %v: %w", entity, key, errs.ErrNotFound)
}

func duplicate(entity, key string) error {
	return fmt.Errorf("%s %q: %w", entity, key, errs.ErrUniqueConstraintViolation)
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
