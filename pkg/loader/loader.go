package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/OFFIS-RIT/consistency-vis/backend/pkg/common"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidDataset is returned when a dataset file cannot be decoded into a
// usable dataset.
var ErrInvalidDataset = errors.New("invalid dataset")

// ErrNotFound is returned when no dataset file exists under a key.
var ErrNotFound = errors.New("dataset file not found")

// DatasetLoader loads a dataset by key. Implementations may read from disk,
// cloud storage or other sources; the key is interpreted by the loader.
type DatasetLoader interface {
	Load(ctx context.Context, key string) (common.Dataset, error)
}

// Forgetter is implemented by loaders that cache file contents. Forget drops
// the cached copy of key so the next Load reads it again.
type Forgetter interface {
	Forget(key string)
}

// Cache keeps raw file contents in memory and collapses concurrent fetches of
// the same key into one.
type Cache struct {
	mu    sync.RWMutex
	data  map[string][]byte
	group singleflight.Group
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{data: make(map[string][]byte)}
}

// Get returns the cached bytes for key, calling fetch on a miss. Errors are
// not cached.
func (c *Cache) Get(key string, fetch func() ([]byte, error)) ([]byte, error) {
	if b, ok := c.lookup(key); ok {
		return b, nil
	}

	result, err, _ := c.group.Do(key, func() (any, error) {
		if b, ok := c.lookup(key); ok {
			return b, nil
		}
		b, err := fetch()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.data[key] = b
		c.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// Forget drops key from the cache.
func (c *Cache) Forget(key string) {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	c.group.Forget(key)
}

func (c *Cache) lookup(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.data[key]
	return b, ok
}

func wrapInvalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDataset, fmt.Sprintf(format, args...))
}
