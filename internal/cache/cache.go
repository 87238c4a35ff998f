// Package cache memoises fetch results per (source, ticker) so repeated and
// concurrent lookups within a run hit each upstream at most once per TTL.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"b3fundamentals/internal/fetcher"
	"b3fundamentals/internal/market"
	"b3fundamentals/internal/metrics"
)

const (
	// DefaultTTL is how long a successful result is served from memory.
	DefaultTTL = time.Hour
	// DefaultFailureTTL is how long a failed result is served before the
	// source is tried again.
	DefaultFailureTTL = 5 * time.Minute
)

// ErrUnknownSource is returned for a source no fetcher was registered for.
var ErrUnknownSource = errors.New("unknown source")

type entry struct {
	result  fetcher.Result
	expires time.Time
}

// Cache is a TTL cache in front of a set of fetchers. It is safe for
// concurrent use.
type Cache struct {
	fetchers   map[market.Source]fetcher.Fetcher
	ttl        time.Duration
	failureTTL time.Duration
	maxEntries int
	now        func() time.Time
	logger     *slog.Logger

	mu      sync.RWMutex
	entries map[string]entry

	// coalesces concurrent misses on the same key
	sf singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets the lifetime of successful results. Non-positive values are ignored.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithFailureTTL sets the lifetime of failed results. Non-positive values
// are ignored so failures always expire.
func WithFailureTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.failureTTL = d
		}
	}
}

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// MaxEntries bounds the number of stored results; 0 means unbounded.
func MaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a cache over fetchers, indexed by their Source. A later
// fetcher with the same source replaces an earlier one.
func New(fetchers []fetcher.Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetchers:   make(map[market.Source]fetcher.Fetcher, len(fetchers)),
		ttl:        DefaultTTL,
		failureTTL: DefaultFailureTTL,
		now:        time.Now,
		logger:     slog.Default(),
		entries:    make(map[string]entry),
	}
	for _, f := range fetchers {
		c.fetchers[f.Source()] = f
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrFetch returns the cached result for (source, ticker), fetching it on
// a miss. Concurrent misses on the same key share a single fetch. The only
// error is ErrUnknownSource; fetch failures are returned as results.
//
// A fetch interrupted by ctx is returned to its callers but not stored.
func (c *Cache) GetOrFetch(ctx context.Context, source market.Source, ticker market.Ticker) (fetcher.Result, error) {
	f, ok := c.fetchers[source]
	if !ok {
		return fetcher.Result{}, fmt.Errorf("%w: %s", ErrUnknownSource, source)
	}

	key := fetcher.Key(source, ticker)
	if res, ok := c.lookup(key); ok {
		metrics.RecordCacheLookup(string(source), true)
		return res, nil
	}
	metrics.RecordCacheLookup(string(source), false)

	v, _, shared := c.sf.Do(key, func() (any, error) {
		// Another caller may have stored the key between our miss and now.
		if res, ok := c.lookup(key); ok {
			return res, nil
		}

		start := time.Now()
		res := f.Fetch(ctx, ticker)
		outcome := "ok"
		if res.Failed() {
			outcome = string(res.Err.Type)
		}
		metrics.RecordFetch(string(source), outcome, time.Since(start))

		if ctx.Err() == nil {
			c.store(key, res)
		}
		return res, nil
	})

	res := v.(fetcher.Result)
	c.logger.Debug("cache miss",
		"source", source,
		"ticker", ticker.String(),
		"failed", res.Failed(),
		"shared", shared)
	return res, nil
}

func (c *Cache) lookup(key string) (fetcher.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expires) {
		return fetcher.Result{}, false
	}
	return e.result, true
}

func (c *Cache) store(key string, res fetcher.Result) {
	ttl := c.ttl
	if res.Failed() {
		ttl = c.failureTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = entry{result: res, expires: c.now().Add(ttl)}
}

// evictLocked drops expired entries and, if that frees nothing, the entry
// closest to expiry.
func (c *Cache) evictLocked() {
	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxEntries {
		return
	}

	var oldest string
	var oldestExp time.Time
	for k, e := range c.entries {
		if oldest == "" || e.expires.Before(oldestExp) {
			oldest, oldestExp = k, e.expires
		}
	}
	delete(c.entries, oldest)
}
