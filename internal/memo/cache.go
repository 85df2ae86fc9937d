// Package memo provides a compute-once cache for derived datasets.
//
// Entries are keyed by the identity of an input source together with a
// fingerprint of its content, so a changed file under the same path is a new
// key. At most one computation runs per key at a time; concurrent callers for
// the same key wait for and share its result. Failed computations are never
// stored.
//
// Expiry is driven by an injectable Clock so it can be tested without
// sleeping.
package memo

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// DefaultSize is the number of entries kept when Policy.Size is not positive.
const DefaultSize = 16

// Key identifies one memoized computation.
type Key struct {
	Source      string // e.g. a file path or upload name
	Fingerprint string // content hash, see Fingerprint
}

func (k Key) String() string {
	return k.Source + "\x00" + k.Fingerprint
}

// Fingerprint returns the hex SHA-256 of data.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// KeyFor builds the Key for a source and its content.
func KeyFor(source string, content []byte) Key {
	return Key{Source: source, Fingerprint: Fingerprint(content)}
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// Policy controls capacity and invalidation.
type Policy struct {
	// Size is the maximum number of entries; least recently used entries are
	// evicted first.
	Size int
	// TTL is how long an entry stays valid after it was computed.
	// Zero keeps entries until evicted or invalidated.
	TTL time.Duration
}

// Stats is a snapshot of cache activity.
type Stats struct {
	Hits         uint64 `json:"hits"`
	Misses       uint64 `json:"misses"`
	Computations uint64 `json:"computations"`
	Entries      int    `json:"entries"`
	Capacity     int    `json:"capacity"`
	TTL          string `json:"ttl"`
}

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// Cache memoizes values of type V.
type Cache[V any] struct {
	mu     sync.Mutex
	items  *lru.Cache[Key, entry[V]]
	flight singleflight.Group
	clock  Clock
	policy Policy

	hits     atomic.Uint64
	misses   atomic.Uint64
	computes atomic.Uint64
}

// New creates a cache. A nil clock means SystemClock.
func New[V any](policy Policy, clock Clock) (*Cache[V], error) {
	if policy.Size <= 0 {
		policy.Size = DefaultSize
	}
	if policy.TTL < 0 {
		return nil, fmt.Errorf("memo: negative TTL %s", policy.TTL)
	}
	if clock == nil {
		clock = SystemClock
	}

	items, err := lru.New[Key, entry[V]](policy.Size)
	if err != nil {
		return nil, fmt.Errorf("memo: %w", err)
	}
	return &Cache[V]{items: items, clock: clock, policy: policy}, nil
}

// Get returns the cached value for key, computing and storing it on a miss.
// Errors from compute are returned to every waiting caller and not cached.
func (c *Cache[V]) Get(key Key, compute func() (V, error)) (V, error) {
	if v, ok := c.lookup(key); ok {
		c.hits.Add(1)
		return v, nil
	}
	c.misses.Add(1)

	res, err, _ := c.flight.Do(key.String(), func() (any, error) {
		// A flight for this key may have finished between lookup and Do.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}

		v, err := compute()
		if err != nil {
			return nil, err
		}
		c.computes.Add(1)

		c.mu.Lock()
		c.items.Add(key, entry[V]{value: v, storedAt: c.clock.Now()})
		c.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}

	v, _ := res.(V)
	return v, nil
}

// Peek returns a valid cached value without computing or touching recency.
func (c *Cache[V]) Peek(key Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items.Peek(key)
	if !ok || c.expired(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Invalidate removes key. It reports whether an entry was present.
func (c *Cache[V]) Invalidate(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Remove(key)
}

// InvalidateSource removes every entry for source, whatever its fingerprint.
func (c *Cache[V]) InvalidateSource(source string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, k := range c.items.Keys() {
		if k.Source == source && c.items.Remove(k) {
			removed++
		}
	}
	return removed
}

// PurgeExpired removes entries older than the TTL and returns how many.
func (c *Cache[V]) PurgeExpired() int {
	if c.policy.TTL == 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, k := range c.items.Keys() {
		if e, ok := c.items.Peek(k); ok && c.expired(e) {
			c.items.Remove(k)
			removed++
		}
	}
	return removed
}

// Purge removes all entries.
func (c *Cache[V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items.Purge()
}

// Len returns the number of stored entries, including expired ones not yet purged.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Len()
}

// Stats returns a snapshot of cache counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Computations: c.computes.Load(),
		Entries:      c.Len(),
		Capacity:     c.policy.Size,
		TTL:          c.policy.TTL.String(),
	}
}

// lookup returns a valid entry, dropping it if it has expired.
func (c *Cache[V]) lookup(key Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	if c.expired(e) {
		c.items.Remove(key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) expired(e entry[V]) bool {
	return c.policy.TTL > 0 && !c.clock.Now().Before(e.storedAt.Add(c.policy.TTL))
}
