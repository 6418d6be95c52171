package cache

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory keeps values in process with go-cache.
type Memory struct {
	store  *gocache.Cache
	prefix string
}

// NewMemory creates an in-process cache whose entries expire after ttl.
func NewMemory(prefix string, ttl time.Duration) *Memory {
	return &Memory{
		store:  gocache.New(ttl, 2*ttl),
		prefix: prefix,
	}
}

func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	raw, found := m.store.Get(m.prefix + key)
	if !found {
		return false, nil
	}
	if err := json.Unmarshal(raw.([]byte), dst); err != nil {
		return false, err
	}
	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store.SetDefault(m.prefix+key, raw)
	return nil
}

func (m *Memory) Invalidate(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.store.Delete(m.prefix + k)
	}
	return nil
}

func (m *Memory) Close() error {
	m.store.Flush()
	return nil
}
