// Package memcache is the process-local report cache backend: a mutex
// guarded key -> (payload, expiry) map with lazy expiry on read and a
// periodic sweep. Racing fills on the same key resolve last-writer-wins,
// which only costs a duplicate computation.
package memcache

import (
	"sync"
	"time"
)

const (
	// DefaultTTL bounds staleness for general aggregate views.
	DefaultTTL = 300 * time.Second

	// DefaultSweepEvery is how often the background sweep evicts
	// entries that expired without being re-read.
	DefaultSweepEvery = 320 * time.Second
)

type entry struct {
	val       []byte
	expiresAt time.Time
}

type Cache struct {
	mu   sync.RWMutex
	data map[string]entry

	defaultTTL time.Duration
	now        func() time.Time
	stop       chan struct{}
	stopOnce   sync.Once
}

type Option func(*Cache)

// WithDefaultTTL overrides the TTL applied when Set gets a non-positive ttl.
func WithDefaultTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.defaultTTL = d
		}
	}
}

// WithClock injects the time source, used by tests to simulate expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		data:       make(map[string]entry),
		defaultTTL: DefaultTTL,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	for _, f := range opts {
		f(c)
	}
	return c
}

// StartSweeper launches the periodic eviction loop. Stop it with Close.
func (c *Cache) StartSweeper(every time.Duration) {
	if every <= 0 {
		every = DefaultSweepEvery
	}
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-t.C:
				c.sweep()
			}
		}
	}()
}

func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.data[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check under the write lock; a fresher Set may have landed.
		if cur, ok := c.data[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.data, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.val, true
}

func (c *Cache) Set(key string, val []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	c.data[key] = entry{val: val, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

func (c *Cache) Del(keys ...string) {
	c.mu.Lock()
	for _, k := range keys {
		delete(c.data, k)
	}
	c.mu.Unlock()
}

// Len counts live entries, expired ones included until swept or re-read.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *Cache) sweep() {
	now := c.now()
	c.mu.Lock()
	for k, e := range c.data {
		if now.After(e.expiresAt) {
			delete(c.data, k)
		}
	}
	c.mu.Unlock()
}
