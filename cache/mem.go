package cache

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultMemCacheSize is the number of tags kept by NewMemCache when no size is given.
const DefaultMemCacheSize = 1024

// MemCache keeps entries in memory.
// When more than size tags are stored, the least recently used one is evicted.
// The ttl of an entry never evicts it, it only makes it stale.
type MemCache struct {
	mutex *sync.Mutex
	db    *lru.Cache[string, Entry]
}

func NewMemCache(size int) (MemCache, error) {
	if size <= 0 {
		size = DefaultMemCacheSize
	}
	db, err := lru.New[string, Entry](size)
	if err != nil {
		return MemCache{}, err
	}
	return MemCache{
		mutex: &sync.Mutex{},
		db:    db,
	}, nil
}

func (m MemCache) Get(_ context.Context, tag string) (Entry, bool, error) {
	entry, ok := m.db.Get(tag)
	if !ok {
		return Entry{}, false, nil
	}
	// hand out a copy so callers cannot mutate the stored bytes
	entry.Value = append([]byte(nil), entry.Value...)
	return entry, true, nil
}

func (m MemCache) Set(_ context.Context, tag string, value []byte, ttl time.Duration) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.db.Add(tag, newEntry(tag, append([]byte(nil), value...), ttl))
	return nil
}

func (m MemCache) Invalidate(_ context.Context, tag string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	entry, ok := m.db.Peek(tag)
	if !ok {
		return nil
	}
	entry.Invalidated = true
	m.db.Add(tag, entry)
	return nil
}
