package pricing

import (
	"sync"
	"time"

	"github.com/GooferByte/networth/internal/models"
)

// DefaultMaxAge matches the refresh period so a fresh hit saves exactly one
// lookup per cycle.
const DefaultMaxAge = 60 * time.Second

// QuoteCache holds the last known quote per symbol. It never talks to the
// network and never evicts on its own; the working set is the tracked symbols.
type QuoteCache struct {
	mu      sync.RWMutex
	quotes  map[string]models.Quote
	nowFunc func() time.Time
}

func NewQuoteCache() *QuoteCache {
	return &QuoteCache{
		quotes:  make(map[string]models.Quote),
		nowFunc: time.Now,
	}
}

// Get returns the cached quote for symbol regardless of its age.
func (c *QuoteCache) Get(symbol string) (models.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[symbol]
	return q, ok
}

// Put stores quote, replacing whatever was cached for symbol.
func (c *QuoteCache) Put(symbol string, quote models.Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[symbol] = quote
}

// IsFresh reports whether a cached quote exists and is younger than maxAge.
func (c *QuoteCache) IsFresh(symbol string, maxAge time.Duration) bool {
	_, ok := c.fresh(symbol, maxAge)
	return ok
}

func (c *QuoteCache) fresh(symbol string, maxAge time.Duration) (models.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[symbol]
	if !ok {
		return models.Quote{}, false
	}
	return q, q.Age(c.nowFunc()) < maxAge
}

// Invalidate drops the cached quote for symbol.
func (c *QuoteCache) Invalidate(symbol string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.quotes, symbol)
}

// Len returns the number of cached symbols.
func (c *QuoteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.quotes)
}
