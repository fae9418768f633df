// Package session keeps storefront visitor sessions in process memory.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/niksmo/parentshop/internal/core/domain"
	"github.com/niksmo/parentshop/internal/core/port"
)

var _ port.SessionStore = (*MemoryStore)(nil)

const (
	DefaultTTL             = 24 * time.Hour
	DefaultCleanupInterval = 10 * time.Minute
)

type entry struct {
	session   domain.Session
	expiresAt time.Time
}

type MemoryStore struct {
	mu              sync.RWMutex
	data            map[string]entry
	ttl             time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

type Option func(*MemoryStore)

func WithTTL(ttl time.Duration) Option {
	return func(s *MemoryStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithCleanupInterval(d time.Duration) Option {
	return func(s *MemoryStore) {
		if d > 0 {
			s.cleanupInterval = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		data:            make(map[string]entry),
		ttl:             DefaultTTL,
		cleanupInterval: DefaultCleanupInterval,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns a copy of the session, or [domain.ErrSessionNotFound] if the
// session does not exist or has expired.
func (s *MemoryStore) Get(
	ctx context.Context, id string,
) (domain.Session, error) {
	const op = "MemoryStore.Get"

	if err := ctx.Err(); err != nil {
		return domain.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.data[id]
	if !ok || s.expired(e) {
		return domain.Session{}, fmt.Errorf("%s: %w", op, domain.ErrSessionNotFound)
	}
	return e.session.Clone(), nil
}

// Update applies fn to a copy of the session and stores the copy when fn
// succeeds. Every successful update extends the session lifetime.
func (s *MemoryStore) Update(
	ctx context.Context, id string, fn func(*domain.Session) error,
) (domain.Session, error) {
	const op = "MemoryStore.Update"

	if err := ctx.Err(); err != nil {
		return domain.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[id]
	if !ok || s.expired(e) {
		e = entry{session: domain.Session{ID: id}}
	}

	sess := e.session.Clone()
	if err := fn(&sess); err != nil {
		return domain.Session{}, fmt.Errorf("%s: %w", op, err)
	}

	s.data[id] = entry{session: sess, expiresAt: s.now().Add(s.ttl)}
	return sess.Clone(), nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Run removes expired sessions until ctx is done.
func (s *MemoryStore) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	const op = "MemoryStore.Run"
	log := slog.With("op", op)

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("session janitor is stopped")
			return
		case <-ticker.C:
			if n := s.Cleanup(); n != 0 {
				log.Debug("expired sessions removed", "count", n)
			}
		}
	}
}

// Cleanup removes expired sessions and reports how many were removed.
func (s *MemoryStore) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for id, e := range s.data {
		if s.expired(e) {
			delete(s.data, id)
			n++
		}
	}
	return n
}

func (s *MemoryStore) expired(e entry) bool {
	return !s.now().Before(e.expiresAt)
}
