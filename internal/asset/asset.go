package asset

import (
	"errors"
	"sort"
	"strings"
)

// ErrUnknown is returned when a symbol or coin id is not in the registry.
var ErrUnknown = errors.New("unknown asset")

// Asset is a supported cryptocurrency.
type Asset struct {
	ID          string // canonical id, e.g. "bitcoin"
	Symbol      string // ticker, e.g. "BTC"
	DisplayName string
}

// Registry resolves assets by symbol or canonical id. Both directions are
// indexed once at construction, so lookups never scan the coin table.
type Registry struct {
	bySymbol map[string]Asset
	byID     map[string]Asset
	ordered  []Asset
}

// DefaultAssets is the fixed set of supported coins.
var DefaultAssets = []Asset{
	{ID: "bitcoin", Symbol: "BTC", DisplayName: "Bitcoin"},
	{ID: "ethereum", Symbol: "ETH", DisplayName: "Ethereum"},
	{ID: "solana", Symbol: "SOL", DisplayName: "Solana"},
	{ID: "xrp", Symbol: "XRP", DisplayName: "XRP"},
	{ID: "tether", Symbol: "USDT", DisplayName: "Tether"},
}

// NewRegistry builds a registry from the given assets.
func NewRegistry(assets []Asset) *Registry {
	r := &Registry{
		bySymbol: make(map[string]Asset, len(assets)),
		byID:     make(map[string]Asset, len(assets)),
		ordered:  make([]Asset, len(assets)),
	}
	copy(r.ordered, assets)
	for _, a := range assets {
		r.bySymbol[strings.ToUpper(a.Symbol)] = a
		r.byID[a.ID] = a
	}
	return r
}

// NewDefaultRegistry builds the registry of DefaultAssets.
func NewDefaultRegistry() *Registry {
	return NewRegistry(DefaultAssets)
}

// FromSymbol resolves a ticker symbol (case-insensitive).
func (r *Registry) FromSymbol(symbol string) (Asset, error) {
	a, ok := r.bySymbol[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return Asset{}, ErrUnknown
	}
	return a, nil
}

// FromID resolves a canonical coin id.
func (r *Registry) FromID(id string) (Asset, error) {
	a, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return Asset{}, ErrUnknown
	}
	return a, nil
}

// All returns the supported assets in registration order.
func (r *Registry) All() []Asset {
	out := make([]Asset, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Symbols returns the lower-case symbols, sorted, for usage messages.
func (r *Registry) Symbols() []string {
	syms := make([]string, 0, len(r.ordered))
	for _, a := range r.ordered {
		syms = append(syms, strings.ToLower(a.Symbol))
	}
	sort.Strings(syms)
	return syms
}
