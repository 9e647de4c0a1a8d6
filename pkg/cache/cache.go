// Package cache keeps the last metrics response for a short throttle window
// so rapid reopen/refresh cycles do not hit the metrics API every time.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/HatiCode/kpiboard/pkg/storage"
)

const (
	KeyBody      = "cache"
	KeyTimestamp = "cache-timestamp"

	// DefaultThrottle is how long a fetched response is served from cache.
	DefaultThrottle = 10 * time.Second
)

// Entry is a cached response body and the time it was fetched.
type Entry struct {
	Body      []byte
	FetchedAt time.Time
}

// Cache stores one response body alongside its fetch time.
type Cache struct {
	store    storage.Store
	throttle time.Duration
}

// New returns a cache on top of store. A non-positive throttle uses
// DefaultThrottle.
func New(store storage.Store, throttle time.Duration) *Cache {
	if throttle <= 0 {
		throttle = DefaultThrottle
	}
	return &Cache{store: store, throttle: throttle}
}

// Throttle returns the configured throttle window.
func (c *Cache) Throttle() time.Duration { return c.throttle }

// Get returns the cached entry when it was fetched less than the throttle
// window before now. Any storage or parse problem is reported as a miss
// together with the error.
func (c *Cache) Get(ctx context.Context, now time.Time) (Entry, bool, error) {
	rawTS, found, err := c.store.Get(ctx, KeyTimestamp)
	if err != nil {
		return Entry{}, false, fmt.Errorf("read %s: %w", KeyTimestamp, err)
	}
	if !found || rawTS == "" {
		return Entry{}, false, nil
	}

	ms, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return Entry{}, false, fmt.Errorf("parse %s: %w", KeyTimestamp, err)
	}
	fetchedAt := time.UnixMilli(ms)
	if now.Sub(fetchedAt) >= c.throttle {
		return Entry{}, false, nil
	}

	body, found, err := c.store.Get(ctx, KeyBody)
	if err != nil {
		return Entry{}, false, fmt.Errorf("read %s: %w", KeyBody, err)
	}
	if !found || body == "" {
		return Entry{}, false, nil
	}
	return Entry{Body: []byte(body), FetchedAt: fetchedAt}, true, nil
}

// Put stores body as fetched at now.
func (c *Cache) Put(ctx context.Context, body []byte, now time.Time) error {
	if err := c.store.Set(ctx, KeyBody, string(body)); err != nil {
		return fmt.Errorf("write %s: %w", KeyBody, err)
	}
	if err := c.store.Set(ctx, KeyTimestamp, strconv.FormatInt(now.UnixMilli(), 10)); err != nil {
		return fmt.Errorf("write %s: %w", KeyTimestamp, err)
	}
	return nil
}
