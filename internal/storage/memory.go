package storage

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryStore implementa Store sobre go-cache. Útil para desarrollo y
// testing; las sesiones viven solo en el proceso.
type memoryStore struct {
	prefix string
	cache  *gocache.Cache
}

// NewMemory crea un store en memoria.
func NewMemory(prefix string) Store {
	return &memoryStore{
		prefix: prefix,
		cache:  gocache.New(gocache.NoExpiration, 5*time.Minute),
	}
}

func (s *memoryStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := s.cache.Get(s.key(key))
	if !ok {
		return "", ErrNotFound
	}
	str, ok := v.(string)
	if !ok {
		return "", ErrNotFound
	}
	return str, nil
}

func (s *memoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.cache.Set(s.key(key), value, ttl)
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.cache.Delete(s.key(key))
	return nil
}

func (s *memoryStore) Ping(_ context.Context) error { return nil }

func (s *memoryStore) Close() error {
	s.cache.Flush()
	return nil
}
