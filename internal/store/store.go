package store

import (
	"context"
	"errors"

	"PricePilot/internal/model"
)

// ErrInsufficientHoldings is returned by ReduceHolding when the requested
// amount exceeds the aggregate held for that (user, asset). The position is
// left untouched.
var ErrInsufficientHoldings = errors.New("insufficient holdings")

// Store is the durable record store for alerts, broadcast subscriptions and
// portfolio positions. It is the serialization point for trigger-state
// mutation: MarkTriggered is a single conditional update, so overlapping
// evaluation passes cannot double-trigger an alert.
type Store interface {
	CreateAlert(ctx context.Context, a model.Alert) (model.Alert, error)
	ListUntriggered(ctx context.Context) ([]model.Alert, error)
	ListAlertsByUser(ctx context.Context, userID string, includeTriggered bool) ([]model.Alert, error)
	// MarkTriggered flips triggered false->true and reports whether this
	// call won the flip. False means the alert was already triggered.
	MarkTriggered(ctx context.Context, id int64) (bool, error)

	AddSubscriber(ctx context.Context, userID string) error
	RemoveSubscriber(ctx context.Context, userID string) error
	ListSubscribers(ctx context.Context) ([]string, error)

	AddHolding(ctx context.Context, userID, assetID string, amount, price float64) error
	// ReduceHolding sells amount from the aggregate position and returns
	// the weighted-average acquisition cost realized by the sale.
	ReduceHolding(ctx context.Context, userID, assetID string, amount float64) (avgCost float64, err error)
	ListPositions(ctx context.Context, userID string) ([]model.Position, error)

	Close() error
}
