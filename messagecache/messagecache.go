// Package messagecache implements the TTL-bounded seen-set used to
// deduplicate messages (§4.10). It is backed by an ordered map (a hash map
// plus a doubly linked list tracking insertion order) so that both capacity
// eviction (pop the front) and TTL expiry (scan from the front) are O(1)
// amortised.
//
// github.com/whyrusleeping/timecache, the teacher's own seen-set
// dependency, was considered and rejected here: it has no capacity bound
// and does not reinstate a logically-expired-but-still-present entry as
// "newly inserted" on refresh, both of which §4.10 requires. See
// DESIGN.md.
package messagecache

import (
	"container/list"
	"time"

	"github.com/libp2p/go-pubsub-core/core"
	"github.com/libp2p/go-pubsub-core/internal/clock"
	"github.com/libp2p/go-pubsub-core/internal/heartbeat"
)

type entry struct {
	id        core.MessageId
	timestamp time.Time
}

// Cache is the ordered, TTL-bounded seen-set of message ids.
type Cache struct {
	capacity int
	ttl      time.Duration
	clock    clock.Clock

	order    *list.List // of *entry, front = oldest
	elements map[core.MessageId]*list.Element
}

// New creates a Cache with the given capacity and TTL, using the real
// wall clock.
func New(capacity int, ttl time.Duration) *Cache {
	return NewWithClock(capacity, ttl, clock.Real{})
}

// NewWithClock creates a Cache using the given clock, letting tests
// advance time deterministically.
func NewWithClock(capacity int, ttl time.Duration, c clock.Clock) *Cache {
	return &Cache{
		capacity: capacity,
		ttl:      ttl,
		clock:    c,
		order:    list.New(),
		elements: make(map[core.MessageId]*list.Element),
	}
}

// Len returns the number of entries currently tracked, expired or not.
func (c *Cache) Len() int {
	return c.order.Len()
}

func (c *Cache) expired(e *entry, now time.Time) bool {
	return now.Sub(e.timestamp) > c.ttl
}

// Contains reports whether id is present and not older than the TTL.
func (c *Cache) Contains(id core.MessageId) bool {
	el, ok := c.elements[id]
	if !ok {
		return false
	}
	return !c.expired(el.Value.(*entry), c.clock.Now())
}

// Put inserts id if absent, or refreshes its timestamp and moves it to the
// back if present. It returns true if the entry is "newly inserted": either
// it was genuinely absent, or it was present but had already expired (and
// is being reinstated).
func (c *Cache) Put(id core.MessageId) bool {
	now := c.clock.Now()

	if el, ok := c.elements[id]; ok {
		e := el.Value.(*entry)
		wasExpired := c.expired(e, now)
		e.timestamp = now
		c.order.MoveToBack(el)
		return wasExpired
	}

	el := c.order.PushBack(&entry{id: id, timestamp: now})
	c.elements[id] = el

	if c.order.Len() > c.capacity {
		c.evictFront()
	}

	return true
}

func (c *Cache) evictFront() {
	front := c.order.Front()
	if front == nil {
		return
	}
	c.order.Remove(front)
	delete(c.elements, front.Value.(*entry).id)
}

// ClearExpired scans from the front while entries are older than the TTL
// and removes them, stopping at the first non-expired entry (valid because
// freshly refreshed entries are moved to the back).
func (c *Cache) ClearExpired() int {
	now := c.clock.Now()
	removed := 0
	for {
		front := c.order.Front()
		if front == nil {
			break
		}
		e := front.Value.(*entry)
		if !c.expired(e, now) {
			break
		}
		c.order.Remove(front)
		delete(c.elements, e.id)
		removed++
	}
	return removed
}

// Heartbeat owns the periodic expiry scan for a Cache.
type Heartbeat struct {
	cache *Cache
	hb    *heartbeat.Heartbeat
}

// NewHeartbeat wraps a Cache with a ticking heartbeat that clears expired
// entries on every tick.
func NewHeartbeat(cache *Cache, interval, initialDelay time.Duration) *Heartbeat {
	return &Heartbeat{cache: cache, hb: heartbeat.New(interval, initialDelay)}
}

// Poll drives the heartbeat once, clearing expired entries if it ticked.
// Returns true if a tick (and therefore a scan) occurred.
func (h *Heartbeat) Poll() bool {
	if _, ticked := h.hb.Poll(); ticked {
		h.cache.ClearExpired()
		return true
	}
	return false
}

// Stop releases the underlying timer.
func (h *Heartbeat) Stop() {
	h.hb.Stop()
}
