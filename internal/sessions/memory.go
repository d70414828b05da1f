package sessions

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"chatd/internal/chat"
)

// MemoryStore keeps conversations in process memory. Reading a session
// extends its lifetime.
type MemoryStore struct {
	cache *ttlcache.Cache[string, chat.Conversation]
}

// NewMemoryStore starts a store whose entries expire after ttl without use.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := ttlcache.New[string, chat.Conversation](
		ttlcache.WithTTL[string, chat.Conversation](ttl),
	)
	go c.Start()
	return &MemoryStore{cache: c}
}

func (s *MemoryStore) Load(_ context.Context, id string) (chat.Conversation, error) {
	item := s.cache.Get(id)
	if item == nil {
		return nil, nil
	}
	return cloneConv(item.Value()), nil
}

func (s *MemoryStore) Save(_ context.Context, id string, conv chat.Conversation) error {
	s.cache.Set(id, cloneConv(conv), ttlcache.DefaultTTL)
	return nil
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int { return s.cache.Len() }

// Close stops the expiration loop.
func (s *MemoryStore) Close() error {
	s.cache.Stop()
	return nil
}
