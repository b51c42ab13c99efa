package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Ops is the backend operation table of a collection. Nil entries are
// unsupported.
type Ops[T any] struct {
	Create   func(ctx context.Context, item T) error
	Update   func(ctx context.Context, item T) error
	Remove   func(ctx context.Context, item T) error
	Assign   func(ctx context.Context, key, member string) error
	Unassign func(ctx context.Context, key, member string) error
}

// Collection is the in-memory cache of one backend collection.
type Collection[T any] struct {
	entity string
	fetch  func(ctx context.Context) ([]T, error)
	key    func(T) string
	ops    Ops[T]

	mu       sync.RWMutex
	items    []T
	loaded   bool
	seq      uint64 // last refresh ticket issued
	applied  uint64 // tickets at or below this are stale
	inflight map[string]struct{}
}

// NewCollection creates an empty collection. key extracts an item's
// natural key.
func NewCollection[T any](entity string, fetch func(ctx context.Context) ([]T, error), key func(T) string, ops Ops[T]) *Collection[T] {
	return &Collection[T]{
		entity:   entity,
		fetch:    fetch,
		key:      key,
		ops:      ops,
		items:    []T{},
		inflight: make(map[string]struct{}),
	}
}

// List returns a copy of the cache in server order.
func (c *Collection[T]) List() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Loaded reports whether the cache has been filled by a successful refresh
// since the last reset.
func (c *Collection[T]) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// Get returns the cached item with the given natural key.
func (c *Collection[T]) Get(key string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, it := range c.items {
		if c.key(it) == key {
			return it, nil
		}
	}
	var zero T
	return zero, &ErrNotFound{Entity: c.entity, Key: key}
}

// Refresh replaces the cache with the server's current list. On error the
// cache is left as it was.
func (c *Collection[T]) Refresh(ctx context.Context) error {
	c.mu.Lock()
	c.seq++
	ticket := c.seq
	c.mu.Unlock()

	items, err := c.fetch(ctx)
	if err != nil {
		return fmt.Errorf("refresh %ss: %w", c.entity, err)
	}
	if items == nil {
		items = []T{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A reset or a later refresh landed while we were fetching.
	if ticket <= c.applied {
		log.Debug().Str("entity", c.entity).Msg("Dropping stale refresh")
		return nil
	}
	c.items = items
	c.loaded = true
	c.applied = ticket
	return nil
}

// Reset empties the cache.
func (c *Collection[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = []T{}
	c.loaded = false
	c.applied = c.seq
}

// InFlight reports whether a mutation on key is pending.
func (c *Collection[T]) InFlight(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.inflight[key]
	return ok
}

// Mutate runs call as the single in-flight mutation for key and refreshes
// the cache if it succeeds. A second mutation on the same key while one is
// pending fails with ErrBusy without calling the backend.
//
// Once call succeeds the change is committed, so a failed refresh only
// logs and marks the cache stale: List keeps the old items and Loaded
// reports false until the next successful refresh.
func (c *Collection[T]) Mutate(ctx context.Context, key string, call func(ctx context.Context) error) error {
	c.mu.Lock()
	if _, busy := c.inflight[key]; busy {
		c.mu.Unlock()
		return &ErrBusy{Entity: c.entity, Key: key}
	}
	c.inflight[key] = struct{}{}
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, key)
		c.mu.Unlock()
	}()

	if err := call(ctx); err != nil {
		return err
	}
	if err := c.Refresh(ctx); err != nil {
		log.Warn().Err(err).Str("entity", c.entity).Str("key", key).Msg("Refresh after mutation failed, keeping stale cache")
		c.mu.Lock()
		c.loaded = false
		c.mu.Unlock()
	}
	return nil
}

// Create adds item on the backend. The in-flight key is the item's natural
// key.
func (c *Collection[T]) Create(ctx context.Context, item T) error {
	if c.ops.Create == nil {
		return &ErrUnsupported{Entity: c.entity, Op: "create"}
	}
	return c.Mutate(ctx, c.key(item), func(ctx context.Context) error {
		return c.ops.Create(ctx, item)
	})
}

// Update sends the full item to the backend.
func (c *Collection[T]) Update(ctx context.Context, item T) error {
	if c.ops.Update == nil {
		return &ErrUnsupported{Entity: c.entity, Op: "update"}
	}
	return c.Mutate(ctx, c.key(item), func(ctx context.Context) error {
		return c.ops.Update(ctx, item)
	})
}

// Remove deletes the cached item with the given key.
func (c *Collection[T]) Remove(ctx context.Context, key string) error {
	if c.ops.Remove == nil {
		return &ErrUnsupported{Entity: c.entity, Op: "remove"}
	}
	item, err := c.Get(key)
	if err != nil {
		return err
	}
	return c.Mutate(ctx, key, func(ctx context.Context) error {
		return c.ops.Remove(ctx, item)
	})
}

// ToggleMember assigns member to the item at key, or removes it when on is
// false. No membership pre-check is made; the backend decides.
func (c *Collection[T]) ToggleMember(ctx context.Context, key, member string, on bool) error {
	op, name := c.ops.Assign, "assign"
	if !on {
		op, name = c.ops.Unassign, "unassign"
	}
	if op == nil {
		return &ErrUnsupported{Entity: c.entity, Op: name}
	}
	return c.Mutate(ctx, key, func(ctx context.Context) error {
		return op(ctx, key, member)
	})
}
