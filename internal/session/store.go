package session

import (
	"errors"
	"time"

	"github.com/dvloznov/statement-converter/internal/metrics"
	"github.com/dvloznov/statement-converter/internal/pipeline"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// DefaultTTL is how long an untouched session is kept.
const DefaultTTL = 30 * time.Minute

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session not found")

// Session is one user's conversion workspace.
type Session struct {
	ID         string
	Controller *pipeline.Controller
	CreatedAt  time.Time
}

// Store keeps sessions in memory and drops them after a period of
// inactivity. Nothing is persisted.
type Store struct {
	cache         *cache.Cache
	ttl           time.Duration
	newController func() *pipeline.Controller
	metrics       *metrics.Metrics
}

// NewStore creates a store whose sessions expire ttl after their last use.
// newController builds the controller for each new session.
func NewStore(ttl time.Duration, newController func() *pipeline.Controller, m *metrics.Metrics) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	s := &Store{
		cache:         cache.New(ttl, cleanupInterval(ttl)),
		ttl:           ttl,
		newController: newController,
		metrics:       m,
	}
	s.cache.OnEvicted(func(string, interface{}) {
		s.metrics.SetActiveSessions(s.cache.ItemCount())
	})
	return s
}

func cleanupInterval(ttl time.Duration) time.Duration {
	if d := ttl / 2; d > time.Second {
		return d
	}
	return time.Second
}

// Create starts a new idle session.
func (s *Store) Create() *Session {
	sess := &Session{
		ID:         uuid.NewString(),
		Controller: s.newController(),
		CreatedAt:  time.Now(),
	}
	s.cache.Set(sess.ID, sess, s.ttl)
	s.metrics.SetActiveSessions(s.cache.ItemCount())
	return sess
}

// Get returns the session and extends its lifetime.
func (s *Store) Get(id string) (*Session, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	sess := v.(*Session)
	s.cache.Set(id, sess, s.ttl)
	return sess, nil
}

// Delete discards a session.
func (s *Store) Delete(id string) error {
	if _, ok := s.cache.Get(id); !ok {
		return ErrNotFound
	}
	s.cache.Delete(id)
	return nil
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	return s.cache.ItemCount()
}
