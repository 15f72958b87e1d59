// Package cache 是定价结果的进程内短期缓存，只用于无副作用的报价/预览路径。
package cache

import (
	"math/rand"
	"sync"
	"time"

	"nexus-discount/internal/pkg/clock"
	"nexus-discount/internal/pkg/metrics"
)

type entry[V any] struct {
	businessID string
	value      V
	expiresAt  time.Time
}

// ResultCache 以交易指纹为 key 缓存计算结果，按绝对过期时间淘汰。
// 由调用方构造并注入，不是全局变量。
type ResultCache[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]

	clock            clock.Clock
	sweepProbability float64
	roll             func() float64
}

type Option func(*options)

type options struct {
	clock            clock.Clock
	sweepProbability float64
	roll             func() float64
}

// WithClock 替换时间来源。
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithSweepProbability 设置每次写入时触发全量清理的概率。
func WithSweepProbability(p float64) Option {
	return func(o *options) { o.sweepProbability = p }
}

// WithRandom 替换清理概率使用的随机数来源，返回 [0,1)。
func WithRandom(roll func() float64) Option {
	return func(o *options) { o.roll = roll }
}

func New[V any](opts ...Option) *ResultCache[V] {
	o := options{
		clock:            clock.NewRealClock(),
		sweepProbability: 0.01,
		roll:             rand.Float64,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &ResultCache[V]{
		entries:          make(map[string]entry[V]),
		clock:            o.clock,
		sweepProbability: o.sweepProbability,
		roll:             o.roll,
	}
}

// Get 返回未过期的结果；过期条目在这里被删除。
func (c *ResultCache[V]) Get(fingerprint string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[fingerprint]
	if !ok {
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return zero, false
	}
	if c.clock.Now().After(e.expiresAt) {
		delete(c.entries, fingerprint)
		metrics.CacheRequests.WithLabelValues("miss").Inc()
		return zero, false
	}
	metrics.CacheRequests.WithLabelValues("hit").Inc()
	return e.value, true
}

// Put 写入结果，ttl 之后过期。写入时以小概率顺带清理所有过期条目。
func (c *ResultCache[V]) Put(businessID, fingerprint string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	c.entries[fingerprint] = entry[V]{
		businessID: businessID,
		value:      value,
		expiresAt:  now.Add(ttl),
	}
	if c.roll() < c.sweepProbability {
		c.sweepLocked(now)
	}
}

// Invalidate 清除某个商户的全部条目。
func (c *ResultCache[V]) Invalidate(businessID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if e.businessID == businessID {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Sweep 立即清理过期条目，返回清理数量。
func (c *ResultCache[V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweepLocked(c.clock.Now())
}

func (c *ResultCache[V]) sweepLocked(now time.Time) int {
	n := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len 返回当前条目数（含尚未被清理的过期条目）。
func (c *ResultCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
