package pricecache

import (
	"sync"

	"PricePilot/internal/model"
)

// DefaultHistorySize is the bounded per-asset history capacity.
const DefaultHistorySize = 20

// Cache holds the process-wide last-known price per asset plus a bounded,
// insertion-ordered history ring. Entries are created lazily on first record
// and live for the process lifetime; nothing is persisted across restarts.
type Cache struct {
	mu      sync.Mutex
	maxHist int
	latest  map[string]model.PricePoint
	history map[string][]model.PricePoint
}

// New creates a cache with the given history capacity per asset.
// maxHistory <= 0 falls back to DefaultHistorySize.
func New(maxHistory int) *Cache {
	if maxHistory <= 0 {
		maxHistory = DefaultHistorySize
	}
	return &Cache{
		maxHist: maxHistory,
		latest:  make(map[string]model.PricePoint),
		history: make(map[string][]model.PricePoint),
	}
}

// Record stores p as the asset's latest price and appends it to the history
// ring, evicting the oldest entry when the ring is full.
func (c *Cache) Record(p model.PricePoint) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.latest[p.Asset] = p

	h := append(c.history[p.Asset], p)
	if len(h) > c.maxHist {
		h = h[len(h)-c.maxHist:]
	}
	c.history[p.Asset] = h
}

// Latest returns the last-known price for the asset, if any.
func (c *Cache) Latest(assetID string) (model.PricePoint, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.latest[assetID]
	return p, ok
}

// History returns a copy of the asset's history, oldest first.
func (c *Cache) History(assetID string) []model.PricePoint {
	c.mu.Lock()
	defer c.mu.Unlock()
	h := c.history[assetID]
	out := make([]model.PricePoint, len(h))
	copy(out, h)
	return out
}
