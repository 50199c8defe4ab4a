package chart

import (
	"container/list"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/couchcryptid/covid-severity-etl/internal/observability"
)

// GroupedBarRenderer draws a grouped bar chart as PNG bytes.
type GroupedBarRenderer interface {
	RenderGroupedBar(t Table, opts Options) ([]byte, error)
}

// CachedRenderer wraps a GroupedBarRenderer with an in-memory LRU cache
// keyed by the chart's content, so reloading the dashboard does not redraw.
type CachedRenderer struct {
	inner   GroupedBarRenderer
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedRenderer creates a cache decorator around a renderer.
func NewCachedRenderer(inner GroupedBarRenderer, maxEntries int, metrics *observability.Metrics) *CachedRenderer {
	return &CachedRenderer{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedRenderer) RenderGroupedBar(t Table, opts Options) ([]byte, error) {
	key := cacheKey(t, opts)
	if png, ok := c.cache.get(key); ok {
		c.metrics.ChartRenders.WithLabelValues("hit").Inc()
		return png, nil
	}
	png, err := c.inner.RenderGroupedBar(t, opts)
	if err != nil {
		c.metrics.ChartRenders.WithLabelValues("error").Inc()
		return nil, err
	}
	c.metrics.ChartRenders.WithLabelValues("miss").Inc()
	c.cache.put(key, png)
	return png, nil
}

// Len reports the number of cached charts.
func (c *CachedRenderer) Len() int {
	return c.cache.size()
}

func cacheKey(t Table, opts Options) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%q|%q|%v|%+v", t.Categories, t.Groups, t.Values, opts)
	return fmt.Sprintf("%016x", h.Sum64())
}

// lruCache is a size-bounded, thread-safe LRU of rendered PNGs. The front
// of order is the most recently used entry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
}

type entry struct {
	key string
	png []byte
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (c *lruCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).png, true
}

func (c *lruCache) put(key string, png []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).png = png
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&entry{key: key, png: png})

	for c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}

func (c *lruCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
