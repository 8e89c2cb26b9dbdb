package pricesource

import (
	"context"
	"errors"
	"log"
	"time"

	"PricePilot/internal/asset"
	"PricePilot/internal/model"
	"PricePilot/internal/pricecache"
)

// ErrPriceUnavailable is returned when every provider failed and the cache
// holds no last-known price. Callers must treat it as "skip", never as zero.
var ErrPriceUnavailable = errors.New("price unavailable from all sources")

// Resolver resolves a current USD price for an asset, trying providers in
// strict order with graceful degradation: live chain, then the key-gated
// fallback, then the stale last-known cache entry. Every successful live or
// override resolution is written back to the cache; a stale-cache read is
// not a new observation and leaves the history untouched.
type Resolver struct {
	Providers  []Provider // ordered live chain
	Fallback   Provider   // key-gated, nil when not configured
	Cache      *pricecache.Cache
	RetryDelay time.Duration // delay after a failed live attempt
}

// NewResolver builds a resolver over the given live chain.
func NewResolver(cache *pricecache.Cache, retryDelay time.Duration, providers ...Provider) *Resolver {
	return &Resolver{
		Providers:  providers,
		Cache:      cache,
		RetryDelay: retryDelay,
	}
}

// Resolve returns the current quote for the asset, or ErrPriceUnavailable.
// A non-nil override is accepted unconditionally, bypassing all live
// sources; it is still recorded into the cache so later fallbacks and the
// history command observe it.
func (r *Resolver) Resolve(ctx context.Context, a asset.Asset, override *float64) (model.Quote, error) {
	if override != nil {
		r.record(a, *override)
		return model.Quote{Price: *override}, nil
	}

	for _, p := range r.Providers {
		q, err := p.FetchQuote(ctx, a)
		if err != nil {
			log.Printf("[WARN] %s: fetch %s failed: %v", p.Name(), a.Symbol, err)
			if waitErr := r.wait(ctx); waitErr != nil {
				return model.Quote{}, waitErr
			}
			continue
		}
		r.record(a, q.Price)
		return q, nil
	}

	if r.Fallback != nil {
		q, err := r.Fallback.FetchQuote(ctx, a)
		if err != nil {
			log.Printf("[WARN] %s: fetch %s failed: %v", r.Fallback.Name(), a.Symbol, err)
		} else {
			r.record(a, q.Price)
			return q, nil
		}
	}

	// Stale-but-available policy: prefer the last-known price over nothing.
	if last, ok := r.Cache.Latest(a.ID); ok {
		log.Printf("[WARN] returning cached %s price: %.2f (observed %s)",
			a.Symbol, last.Price, last.At.Format("2006-01-02 15:04:05"))
		return model.Quote{Price: last.Price}, nil
	}

	log.Printf("[ERROR] all sources failed and no cached price for %s", a.Symbol)
	return model.Quote{}, ErrPriceUnavailable
}

func (r *Resolver) record(a asset.Asset, price float64) {
	r.Cache.Record(model.PricePoint{Asset: a.ID, Price: price, At: time.Now()})
}

func (r *Resolver) wait(ctx context.Context) error {
	if r.RetryDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.RetryDelay):
		return nil
	}
}
