package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/ppiankov/grantaxiom/internal/model"
)

// ErrSessionNotFound is returned for unknown or expired session IDs
var ErrSessionNotFound = errors.New("session not found")

// Store keeps sessions in memory and expires idle ones
type Store struct {
	sessions   *cache.Cache
	seedSample bool
	now        func() time.Time
}

// NewStore creates a session store. A non-positive TTL keeps sessions until
// deleted.
func NewStore(cfg model.SessionConfig) *Store {
	ttl := cfg.TTL
	cleanup := ttl
	if ttl <= 0 {
		ttl = cache.NoExpiration
		cleanup = 0
	}
	return &Store{
		sessions:   cache.New(ttl, cleanup),
		seedSample: cfg.SeedSample,
		now:        time.Now,
	}
}

// Create starts a new session
func (st *Store) Create() *Session {
	opts := []Option{WithClock(st.now)}
	if st.seedSample {
		opts = append(opts, WithSample())
	}
	s := New(uuid.NewString(), opts...)
	st.sessions.SetDefault(s.ID(), s)
	return s
}

// Get returns a session and extends its lifetime
func (st *Store) Get(id string) (*Session, error) {
	v, ok := st.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s := v.(*Session)
	st.sessions.SetDefault(id, s)
	return s, nil
}

// Delete removes a session
func (st *Store) Delete(id string) error {
	if _, ok := st.sessions.Get(id); !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	st.sessions.Delete(id)
	return nil
}

// Len returns the number of live sessions
func (st *Store) Len() int {
	return st.sessions.ItemCount()
}
