package embedding

import (
	"container/list"
	"context"
	"sync"
)

// CachedEmbedder wraps an Embedder with an LRU cache keyed by text.
// Overlapping chunk windows and repeated queries hit the cache instead of
// the model endpoint.
type CachedEmbedder struct {
	inner    Embedder
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value []float32
}

// NewCachedEmbedder wraps inner with an LRU cache of the given capacity.
// A capacity of 0 or less disables caching and returns inner unchanged.
func NewCachedEmbedder(inner Embedder, capacity int) Embedder {
	if capacity <= 0 {
		return inner
	}
	return &CachedEmbedder{
		inner:    inner,
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Embed returns the cached embedding for text, or delegates to the inner
// embedder and caches the result.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	if elem, ok := c.cache[text]; ok {
		c.lru.MoveToFront(elem)
		v := elem.Value.(*cacheEntry).value
		c.mu.Unlock()
		return v, nil
	}
	c.mu.Unlock()

	emb, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[text]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = emb
		return emb, nil
	}
	c.cache[text] = c.lru.PushFront(&cacheEntry{key: text, value: emb})
	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
	return emb, nil
}

// Dimensions returns the inner embedder's dimension.
func (c *CachedEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}

// Close closes the inner embedder.
func (c *CachedEmbedder) Close() error {
	return c.inner.Close()
}
