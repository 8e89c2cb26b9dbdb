package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"PricePilot/internal/asset"
	"PricePilot/internal/model"
	"PricePilot/internal/notifier"
	"PricePilot/internal/pricesource"
	"PricePilot/internal/store"
)

// Override injects a manual price for exactly one asset during a pass.
// Alerts on other assets still resolve live.
type Override struct {
	Asset string // canonical coin id
	Price float64
}

// Triggered is one alert this pass flipped, with the price that did it.
type Triggered struct {
	Alert model.Alert
	Price float64
}

// Evaluator runs evaluation passes over all untriggered alerts and delivers
// notifications for the ones that fire. A pass is safe to run concurrently
// with itself: the store's conditional MarkTriggered decides a single winner
// per alert, and only the winner notifies.
type Evaluator struct {
	Store    store.Store
	Resolver *pricesource.Resolver
	Sink     notifier.Sink
	Registry *asset.Registry
}

// New creates an Evaluator.
func New(st store.Store, res *pricesource.Resolver, sink notifier.Sink, reg *asset.Registry) *Evaluator {
	return &Evaluator{Store: st, Resolver: res, Sink: sink, Registry: reg}
}

// RunPass evaluates every untriggered alert once. Each distinct asset is
// resolved at most once per pass. All newly-triggered flags are durable
// before the first delivery attempt, so a crash or delivery failure can
// never cause a double notification on a later pass.
func (e *Evaluator) RunPass(ctx context.Context, override *Override) ([]Triggered, error) {
	alerts, err := e.Store.ListUntriggered(ctx)
	if err != nil {
		return nil, fmt.Errorf("load untriggered alerts: %w", err)
	}

	// Memoized per-asset resolutions; nil entry means unavailable this pass.
	quotes := make(map[string]*model.Quote)
	resolve := func(assetID string) *model.Quote {
		if q, done := quotes[assetID]; done {
			return q
		}
		a, err := e.Registry.FromID(assetID)
		if err != nil {
			log.Printf("[WARN] alert references unknown asset %q, skipping", assetID)
			quotes[assetID] = nil
			return nil
		}
		var ov *float64
		if override != nil && override.Asset == assetID {
			ov = &override.Price
		}
		q, err := e.Resolver.Resolve(ctx, a, ov)
		if err != nil {
			if !errors.Is(err, pricesource.ErrPriceUnavailable) {
				log.Printf("[WARN] resolve %s: %v", a.Symbol, err)
			}
			quotes[assetID] = nil
			return nil
		}
		quotes[assetID] = &q
		return &q
	}

	var fired []Triggered
	for _, alert := range alerts {
		q := resolve(alert.Asset)
		if q == nil {
			continue // stays untriggered, re-evaluated next pass
		}
		if !matches(alert, *q) {
			continue
		}

		won, err := e.Store.MarkTriggered(ctx, alert.ID)
		if err != nil {
			// Fatal only to this alert's update; it stays untriggered
			// and will be retried next pass.
			log.Printf("[ERROR] mark alert %d triggered: %v", alert.ID, err)
			continue
		}
		if !won {
			continue // a concurrent pass got there first
		}
		log.Printf("[INFO] alert %d (%s, %s) triggered for user %s at %.2f",
			alert.ID, alert.Asset, alert.Kind, alert.UserID, q.Price)
		fired = append(fired, Triggered{Alert: alert, Price: q.Price})
	}

	for _, t := range fired {
		a, err := e.Registry.FromID(t.Alert.Asset)
		if err != nil {
			continue
		}
		msg := notifier.FormatTriggered(a, t.Alert)
		if err := e.Sink.Send(ctx, t.Alert.UserID, msg); err != nil {
			log.Printf("[ERROR] deliver alert %d to %s: %v", t.Alert.ID, t.Alert.UserID, err)
		}
	}

	return fired, nil
}

// matches applies the alert's trigger predicate to a resolved quote.
func matches(alert model.Alert, q model.Quote) bool {
	switch alert.Kind {
	case model.KindTargetPrice:
		return q.Price >= alert.Target
	case model.KindPriceRange:
		return alert.Low <= q.Price && q.Price <= alert.High
	case model.KindPercentChange:
		if q.PctChange24h == nil {
			return false // metric not supplied, skip this pass
		}
		return abs(*q.PctChange24h) >= alert.Threshold
	case model.KindVolumeChange:
		if q.VolChange24h == nil {
			return false
		}
		return abs(*q.VolChange24h) >= alert.Threshold
	default:
		return false
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
