package evaluator

import (
	"context"
	"fmt"
	"log"

	"PricePilot/internal/notifier"
)

// Broadcast sends the periodic market update to every subscriber. If any
// asset cannot be resolved the whole update is skipped rather than sending
// a partial table.
func (e *Evaluator) Broadcast(ctx context.Context) error {
	assets := e.Registry.All()
	prices := make(map[string]float64, len(assets))
	for _, a := range assets {
		q, err := e.Resolver.Resolve(ctx, a, nil)
		if err != nil {
			log.Printf("[WARN] market update: no price for %s, skipping broadcast", a.Symbol)
			return nil
		}
		prices[a.ID] = q.Price
	}

	subs, err := e.Store.ListSubscribers(ctx)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}
	if len(subs) == 0 {
		return nil
	}

	msg := notifier.FormatMarketUpdate(assets, prices)
	for _, userID := range subs {
		if err := e.Sink.Send(ctx, userID, msg); err != nil {
			log.Printf("[ERROR] market update to %s: %v", userID, err)
			continue
		}
		log.Printf("[INFO] sent market update to %s", userID)
	}
	return nil
}
