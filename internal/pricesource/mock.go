package pricesource

import (
	"context"

	"PricePilot/internal/asset"
	"PricePilot/internal/model"
)

// MockProvider returns controllable fixed quotes for development and testing.
type MockProvider struct {
	Quotes map[string]model.Quote // keyed by asset id
	Err    error                  // returned for every asset when set
	Calls  int
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) FetchQuote(_ context.Context, a asset.Asset) (model.Quote, error) {
	m.Calls++
	if m.Err != nil {
		return model.Quote{}, m.Err
	}
	if q, ok := m.Quotes[a.ID]; ok {
		return q, nil
	}
	return model.Quote{}, ErrPriceUnavailable
}
