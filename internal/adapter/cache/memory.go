package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Memory is a thread-safe in-process LRU cache with per-entry expiry.
type Memory struct {
	maxEntries int
	clock      clockwork.Clock
	stats      *Stats

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time // zero means no expiry
	prev      *entry
	next      *entry
}

// NewMemory creates an LRU cache holding at most maxEntries values.
func NewMemory(maxEntries int, stats *Stats) *Memory {
	return newMemory(maxEntries, stats, clockwork.NewRealClock())
}

func newMemory(maxEntries int, stats *Stats, clock clockwork.Clock) *Memory {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Memory{
		maxEntries: maxEntries,
		clock:      clock,
		stats:      stats,
		entries:    make(map[string]*entry),
	}
}

// Get returns a copy of the stored value. Expired entries are dropped and
// reported as misses.
func (c *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if ok && !e.expiresAt.IsZero() && !c.clock.Now().Before(e.expiresAt) {
		c.delete(e)
		ok = false
	}
	if !ok {
		c.stats.Miss()
		return nil, false, nil
	}
	c.moveToFront(e)
	c.stats.Hit()
	return append([]byte(nil), e.value...), true, nil
}

// Set stores a copy of value. A ttl <= 0 keeps the entry until evicted.
func (c *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.clock.Now().Add(ttl)
	}
	value = append([]byte(nil), value...)
	c.stats.Set()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return nil
	}

	e := &entry{key: key, value: value, expiresAt: expiresAt}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
	return nil
}

// Len returns the number of stored entries, including any not yet expired out.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the collector passed to NewMemory.
func (c *Memory) Stats() *Stats { return c.stats }

func (c *Memory) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *Memory) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Memory) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *Memory) delete(e *entry) {
	delete(c.entries, e.key)
	c.remove(e)
}

func (c *Memory) evictTail() {
	if c.tail == nil {
		return
	}
	c.delete(c.tail)
	c.stats.Eviction()
}
