package memcache

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
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

func newTestCache(t *testing.T) (*Cache, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)}
	c := New(WithClock(clk.Now))
	t.Cleanup(c.Close)
	return c, clk
}

func TestSetGet_RoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	c.Set("k", []byte("v"), time.Minute)
	got, ok := c.Get("k")
	if !ok || !bytes.Equal(got, []byte("v")) {
		t.Fatalf("Get = (%q, %v), want (v, true)", got, ok)
	}
}

func TestGet_ExpiresAfterTTL(t *testing.T) {
	c, clk := newTestCache(t)
	c.Set("k", []byte("v"), 60*time.Second)

	clk.Advance(59 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired before its TTL")
	}

	clk.Advance(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry survived past its TTL")
	}
}

func TestSet_DefaultTTLApplied(t *testing.T) {
	c, clk := newTestCache(t)
	c.Set("k", []byte("v"), 0)

	clk.Advance(DefaultTTL - time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired inside the default TTL")
	}
	clk.Advance(2 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatal("entry survived past the default TTL")
	}
}

func TestIsolation_KeysDoNotInterfere(t *testing.T) {
	c, _ := newTestCache(t)
	c.Set("k1", []byte("v1"), time.Minute)
	c.Set("k2", []byte("v2"), time.Minute)

	c.Set("k1", []byte("v1b"), time.Minute)
	if got, _ := c.Get("k2"); !bytes.Equal(got, []byte("v2")) {
		t.Fatalf("k2 affected by writes to k1: %q", got)
	}
	c.Del("k2")
	if got, ok := c.Get("k1"); !ok || !bytes.Equal(got, []byte("v1b")) {
		t.Fatalf("k1 affected by delete of k2: (%q, %v)", got, ok)
	}
}

func TestSet_OverwritesPriorEntry(t *testing.T) {
	c, _ := newTestCache(t)
	c.Set("k", []byte("old"), time.Minute)
	c.Set("k", []byte("new"), time.Minute)
	if got, _ := c.Get("k"); !bytes.Equal(got, []byte("new")) {
		t.Fatalf("Get = %q, want new", got)
	}
}

func TestSweep_EvictsExpired(t *testing.T) {
	c, clk := newTestCache(t)
	c.Set("short", []byte("a"), time.Second)
	c.Set("long", []byte("b"), time.Hour)

	clk.Advance(2 * time.Second)
	c.sweep()
	if c.Len() != 1 {
		t.Fatalf("Len = %d after sweep, want 1", c.Len())
	}
	if _, ok := c.Get("long"); !ok {
		t.Fatal("sweep evicted a live entry")
	}
}

func TestDel_MissingKeyIsNoop(t *testing.T) {
	c, _ := newTestCache(t)
	c.Del("nope")
	if c.Len() != 0 {
		t.Fatalf("Len = %d, want 0", c.Len())
	}
}
