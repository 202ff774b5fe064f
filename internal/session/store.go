package session

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Store keeps live sessions in memory with sliding expiry. Sessions are
// never persisted.
type Store struct {
	cache *cache.Cache
}

// NewStore returns a Store whose entries expire after ttl of inactivity.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Store{cache: cache.New(ttl, ttl/2)}
}

// Put stores sess, refreshing its expiry.
func (st *Store) Put(sess *Session) {
	st.cache.Set(sess.id, sess, cache.DefaultExpiration)
}

// Get returns the session and refreshes its expiry.
func (st *Store) Get(id string) (*Session, error) {
	raw, ok := st.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	sess, ok := raw.(*Session)
	if !ok {
		return nil, ErrNotFound
	}
	st.cache.Set(id, sess, cache.DefaultExpiration)
	return sess, nil
}

// Delete drops the session.
func (st *Store) Delete(id string) {
	st.cache.Delete(id)
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	return st.cache.ItemCount()
}
