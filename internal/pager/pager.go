// Package pager splits long lists into pages and caches the full list per
// chat, surface and origin so that page turns do not refetch.
package pager

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// DefaultSize is the number of items per page
const DefaultSize = 5

// Key identifies one cached list
type Key struct {
	ChatID  int64
	Surface string
	Origin  string // e.g. a library key or search term
}

func (k Key) String() string {
	return fmt.Sprintf("%d/%s/%s", k.ChatID, k.Surface, k.Origin)
}

// Page is one page of a list
type Page[T any] struct {
	Items  []T
	Number int // 1-based
	Total  int // always >= 1
	Count  int // items in the whole list
	Offset int // index of Items[0] in the whole list
}

// Provider fetches the full list
type Provider[T any] func(ctx context.Context) ([]T, error)

type entry struct {
	items any
}

// Cache holds the full lists of every pager. It is shared by the Pager
// views so a chat can be invalidated in one call.
type Cache struct {
	size atomic.Int64

	mu          sync.Mutex
	entries     map[Key]entry
	generations map[int64]uint64
	group       singleflight.Group
}

// NewCache creates a cache with size items per page
func NewCache(size int) *Cache {
	c := &Cache{
		entries:     make(map[Key]entry),
		generations: make(map[int64]uint64),
	}
	c.SetSize(size)
	return c
}

// SetSize changes the page size
func (c *Cache) SetSize(size int) {
	if size <= 0 {
		size = DefaultSize
	}
	c.size.Store(int64(size))
}

// Size returns the page size
func (c *Cache) Size() int {
	return int(c.size.Load())
}

// Invalidate drops every list of chatID. Loads in flight for the chat
// finish but are not cached.
func (c *Cache) Invalidate(chatID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.entries {
		if key.ChatID == chatID {
			delete(c.entries, key)
		}
	}
	c.generations[chatID]++
}

// Forget drops one list
func (c *Cache) Forget(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *Cache) get(key Key) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e.items, ok
}

func (c *Cache) generation(chatID int64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[chatID]
}

func (c *Cache) put(key Key, items any, generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[key.ChatID] != generation {
		return
	}
	c.entries[key] = entry{items: items}
}

// Pager is a typed view of a Cache
type Pager[T any] struct {
	cache *Cache
}

// For returns a pager of T backed by cache
func For[T any](cache *Cache) Pager[T] {
	return Pager[T]{cache: cache}
}

// Load returns page number of the list at key. The list is fetched with
// provider when it is not cached or refresh is set; concurrent fetches of
// the same key are coalesced. Out of range page numbers are clamped.
func (p Pager[T]) Load(ctx context.Context, key Key, provider Provider[T], page int, refresh bool) (Page[T], error) {
	if !refresh {
		if cached, ok := p.cache.get(key); ok {
			if items, ok := cached.([]T); ok {
				return Slice(items, page, p.cache.Size()), nil
			}
		}
	}

	generation := p.cache.generation(key.ChatID)
	v, err, _ := p.cache.group.Do(key.String(), func() (any, error) {
		items, err := provider(ctx)
		if err != nil {
			return nil, err
		}
		p.cache.put(key, items, generation)
		return items, nil
	})
	if err != nil {
		return Page[T]{}, err
	}

	items, ok := v.([]T)
	if !ok {
		return Page[T]{}, fmt.Errorf("pager: cached list for %s has unexpected type %T", key, v)
	}
	return Slice(items, page, p.cache.Size()), nil
}

// Slice returns page number of items with size items per page. An empty
// list is one empty page.
func Slice[T any](items []T, number, size int) Page[T] {
	if size <= 0 {
		size = DefaultSize
	}
	total := max(1, (len(items)+size-1)/size)
	number = min(max(number, 1), total)

	start := (number - 1) * size
	end := min(start+size, len(items))
	return Page[T]{
		Items:  items[start:end],
		Number: number,
		Total:  total,
		Count:  len(items),
		Offset: start,
	}
}

// ParsePage parses a page payload. Anything that is not a positive
// number is page 1.
func ParsePage(payload string) int {
	n, err := strconv.Atoi(payload)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
