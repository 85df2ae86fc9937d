package memo

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func mustNew[V any](t *testing.T, p Policy, clock Clock) *Cache[V] {
	t.Helper()
	c, err := New[V](p, clock)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]byte("Country,GDP\nUSA,1\n"))
	b := Fingerprint([]byte("Country,GDP\nUSA,1\n"))
	c := Fingerprint([]byte("Country,GDP\nUSA,2\n"))

	if a != b {
		t.Error("identical content should have identical fingerprints")
	}
	if a == c {
		t.Error("different content should have different fingerprints")
	}
	if len(a) != 64 {
		t.Errorf("len(Fingerprint) = %d, want 64", len(a))
	}
}

func TestKeyFor(t *testing.T) {
	k := KeyFor("gdp.csv", []byte("x"))
	if k.Source != "gdp.csv" || k.Fingerprint != Fingerprint([]byte("x")) {
		t.Errorf("KeyFor() = %+v", k)
	}
	if KeyFor("a.csv", []byte("x")) == KeyFor("b.csv", []byte("x")) {
		t.Error("same content under different sources should be different keys")
	}
}

func TestGet_ComputesOnce(t *testing.T) {
	c := mustNew[string](t, Policy{}, nil)
	key := KeyFor("gdp.csv", []byte("data"))

	calls := 0
	compute := func() (string, error) {
		calls++
		return "clean", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.Get(key, compute)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if v != "clean" {
			t.Errorf("Get() = %q, want clean", v)
		}
	}

	if calls != 1 {
		t.Errorf("compute called %d times, want 1", calls)
	}
	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 || s.Computations != 1 || s.Entries != 1 {
		t.Errorf("Stats() = %+v", s)
	}
}

func TestGet_ErrorsAreNotCached(t *testing.T) {
	c := mustNew[int](t, Policy{}, nil)
	key := Key{Source: "gdp.csv", Fingerprint: "f"}
	boom := errors.New("boom")

	_, err := c.Get(key, func() (int, error) { return 0, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Get() error = %v, want boom", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after error, want 0", c.Len())
	}

	v, err := c.Get(key, func() (int, error) { return 42, nil })
	if err != nil || v != 42 {
		t.Errorf("Get() = %d, %v; want 42, nil", v, err)
	}
}

func TestGet_ConcurrentCallersShareOneComputation(t *testing.T) {
	c := mustNew[int](t, Policy{}, nil)
	key := Key{Source: "gdp.csv", Fingerprint: "f"}

	var calls atomic.Int32
	release := make(chan struct{})
	compute := func() (int, error) {
		calls.Add(1)
		<-release
		return 7, nil
	}

	const workers = 20
	var wg sync.WaitGroup
	results := make([]int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get(key, compute)
			if err != nil {
				t.Errorf("Get() error = %v", err)
			}
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("compute called %d times, want 1", got)
	}
	for i, v := range results {
		if v != 7 {
			t.Errorf("results[%d] = %d, want 7", i, v)
		}
	}
}

func TestGet_TTLExpiry(t *testing.T) {
	clock := newFakeClock()
	c := mustNew[int](t, Policy{TTL: time.Minute}, clock)
	key := Key{Source: "gdp.csv", Fingerprint: "f"}

	n := 0
	compute := func() (int, error) {
		n++
		return n, nil
	}

	if v, _ := c.Get(key, compute); v != 1 {
		t.Fatalf("first Get() = %d, want 1", v)
	}

	clock.Advance(59 * time.Second)
	if v, _ := c.Get(key, compute); v != 1 {
		t.Errorf("Get() before TTL = %d, want cached 1", v)
	}

	clock.Advance(time.Second)
	if v, _ := c.Get(key, compute); v != 2 {
		t.Errorf("Get() at TTL = %d, want recomputed 2", v)
	}
}

func TestPurgeExpired(t *testing.T) {
	clock := newFakeClock()
	c := mustNew[string](t, Policy{TTL: time.Hour}, clock)

	old := Key{Source: "old.csv", Fingerprint: "1"}
	c.Get(old, func() (string, error) { return "old", nil })
	clock.Advance(30 * time.Minute)

	fresh := Key{Source: "fresh.csv", Fingerprint: "2"}
	c.Get(fresh, func() (string, error) { return "fresh", nil })
	clock.Advance(30 * time.Minute)

	if got := c.PurgeExpired(); got != 1 {
		t.Errorf("PurgeExpired() = %d, want 1", got)
	}
	if _, ok := c.Peek(old); ok {
		t.Error("old entry should be purged")
	}
	if v, ok := c.Peek(fresh); !ok || v != "fresh" {
		t.Errorf("Peek(fresh) = %q, %v", v, ok)
	}
}

func TestPurgeExpired_NoTTL(t *testing.T) {
	clock := newFakeClock()
	c := mustNew[string](t, Policy{}, clock)
	c.Get(Key{Source: "a"}, func() (string, error) { return "a", nil })

	clock.Advance(24 * 365 * time.Hour)
	if got := c.PurgeExpired(); got != 0 {
		t.Errorf("PurgeExpired() = %d, want 0 without TTL", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestEviction(t *testing.T) {
	c := mustNew[string](t, Policy{Size: 2}, nil)
	a, b, d := Key{Source: "a"}, Key{Source: "b"}, Key{Source: "d"}

	c.Get(a, func() (string, error) { return "a", nil })
	c.Get(b, func() (string, error) { return "b", nil })
	c.Get(a, func() (string, error) { return "a", nil }) // a is now most recent
	c.Get(d, func() (string, error) { return "d", nil })

	if _, ok := c.Peek(b); ok {
		t.Error("least recently used entry should be evicted")
	}
	if _, ok := c.Peek(a); !ok {
		t.Error("recently used entry should survive")
	}
}

func TestInvalidate(t *testing.T) {
	c := mustNew[string](t, Policy{}, nil)
	k1 := Key{Source: "gdp.csv", Fingerprint: "1"}
	k2 := Key{Source: "gdp.csv", Fingerprint: "2"}
	k3 := Key{Source: "other.csv", Fingerprint: "1"}
	for _, k := range []Key{k1, k2, k3} {
		c.Get(k, func() (string, error) { return "v", nil })
	}

	if !c.Invalidate(k1) {
		t.Error("Invalidate(k1) = false, want true")
	}
	if c.Invalidate(k1) {
		t.Error("second Invalidate(k1) = true, want false")
	}
	if got := c.InvalidateSource("gdp.csv"); got != 1 {
		t.Errorf("InvalidateSource() = %d, want 1", got)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}

	c.Purge()
	if c.Len() != 0 {
		t.Errorf("Len() after Purge = %d, want 0", c.Len())
	}
}

func TestNew_Defaults(t *testing.T) {
	c := mustNew[int](t, Policy{Size: 0}, nil)
	if s := c.Stats(); s.Capacity != DefaultSize || s.TTL != "0s" {
		t.Errorf("Stats() = %+v", s)
	}

	if _, err := New[int](Policy{TTL: -time.Second}, nil); err == nil {
		t.Error("New() expected error for negative TTL")
	}
}
