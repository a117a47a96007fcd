package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	appbilling "github.com/daftar/backend/internal/application/billing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultStatsTTL = 60 * time.Second

// InMemoryStatsCache caches computed billing stats between change
// notifications. Entries also carry a TTL as a safety net in case a
// notification is lost.
type InMemoryStatsCache struct {
	mu        sync.RWMutex
	overall   *statsEntry[appbilling.OverallStatsResponse]
	merchants map[uuid.UUID]*statsEntry[appbilling.MerchantStatsResponse]
	ttl       time.Duration
	logger    *zap.Logger

	hits   int64
	misses int64
}

type statsEntry[T any] struct {
	value     *T
	expiresAt time.Time
}

func (e *statsEntry[T]) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryStatsCacheOption is a functional option for configuring the cache
type InMemoryStatsCacheOption func(*InMemoryStatsCache)

// WithStatsTTL sets the entry time-to-live
func WithStatsTTL(ttl time.Duration) InMemoryStatsCacheOption {
	return func(c *InMemoryStatsCache) {
		c.ttl = ttl
	}
}

// WithStatsLogger sets the logger for the cache
func WithStatsLogger(logger *zap.Logger) InMemoryStatsCacheOption {
	return func(c *InMemoryStatsCache) {
		c.logger = logger
	}
}

// NewInMemoryStatsCache creates a new in-memory stats cache
func NewInMemoryStatsCache(opts ...InMemoryStatsCacheOption) *InMemoryStatsCache {
	cache := &InMemoryStatsCache{
		merchants: make(map[uuid.UUID]*statsEntry[appbilling.MerchantStatsResponse]),
		ttl:       defaultStatsTTL,
		logger:    zap.NewNop(),
	}

	for _, opt := range opts {
		opt(cache)
	}

	return cache
}

// GetOverall returns the cached overall stats, if fresh
func (c *InMemoryStatsCache) GetOverall(ctx context.Context) (*appbilling.OverallStatsResponse, bool) {
	c.mu.RLock()
	entry := c.overall
	c.mu.RUnlock()

	if entry == nil || entry.isExpired() {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	return entry.value, true
}

// SetOverall stores the overall stats
func (c *InMemoryStatsCache) SetOverall(ctx context.Context, stats *appbilling.OverallStatsResponse) {
	c.mu.Lock()
	c.overall = &statsEntry[appbilling.OverallStatsResponse]{
		value:     stats,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// GetMerchant returns the cached stats for a merchant, if fresh
func (c *InMemoryStatsCache) GetMerchant(ctx context.Context, merchantID uuid.UUID) (*appbilling.MerchantStatsResponse, bool) {
	c.mu.RLock()
	entry := c.merchants[merchantID]
	c.mu.RUnlock()

	if entry == nil || entry.isExpired() {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	atomic.AddInt64(&c.hits, 1)
	return entry.value, true
}

// SetMerchant stores the stats for a merchant
func (c *InMemoryStatsCache) SetMerchant(ctx context.Context, merchantID uuid.UUID, stats *appbilling.MerchantStatsResponse) {
	c.mu.Lock()
	c.merchants[merchantID] = &statsEntry[appbilling.MerchantStatsResponse]{
		value:     stats,
		expiresAt: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// Invalidate drops all cached stats. Called whenever an invoice or payment
// changes; the next read recomputes from the database.
func (c *InMemoryStatsCache) Invalidate() {
	c.mu.Lock()
	c.overall = nil
	c.merchants = make(map[uuid.UUID]*statsEntry[appbilling.MerchantStatsResponse])
	c.mu.Unlock()
	c.logger.Debug("stats cache invalidated")
}

// Stats returns hit/miss counters for monitoring
func (c *InMemoryStatsCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}
