package tquic

import (
	"sync"

	"github.com/spaolacci/murmur3"
)

// seenCache remembers the most recent message keys,
// evicting the oldest once full.
type seenCache struct {
	mu   sync.Mutex
	keys map[uint64]struct{}
	ring []uint64
	next int
}

func newSeenCache(size int) *seenCache {
	return &seenCache{
		keys: make(map[uint64]struct{}, size),
		ring: make([]uint64, 0, size),
	}
}

func messageKey(origin, id string) uint64 {
	h := murmur3.New64()
	_, _ = h.Write([]byte(origin))
	_, _ = h.Write([]byte{'/'})
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

// Add records the key for origin and id,
// reporting whether it was new.
func (c *seenCache) Add(origin, id string) bool {
	k := messageKey(origin, id)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.keys[k]; ok {
		return false
	}

	if len(c.ring) < cap(c.ring) {
		c.ring = append(c.ring, k)
	} else {
		delete(c.keys, c.ring[c.next])
		c.ring[c.next] = k
		c.next = (c.next + 1) % len(c.ring)
	}
	c.keys[k] = struct{}{}
	return true
}
