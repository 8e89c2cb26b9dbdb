package asset

import (
	"errors"
	"testing"
)

func TestFromSymbol(t *testing.T) {
	r := NewDefaultRegistry()

	tests := []struct {
		in     string
		wantID string
	}{
		{"btc", "bitcoin"},
		{"BTC", "bitcoin"},
		{" eth ", "ethereum"},
		{"sol", "solana"},
		{"xrp", "xrp"},
		{"usdt", "tether"},
	}
	for _, tt := range tests {
		a, err := r.FromSymbol(tt.in)
		if err != nil {
			t.Fatalf("FromSymbol(%q): unexpected error: %v", tt.in, err)
		}
		if a.ID != tt.wantID {
			t.Errorf("FromSymbol(%q): expected id %q, got %q", tt.in, tt.wantID, a.ID)
		}
	}
}

func TestFromID(t *testing.T) {
	r := NewDefaultRegistry()

	a, err := r.FromID("bitcoin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Symbol != "BTC" {
		t.Errorf("expected symbol BTC, got %q", a.Symbol)
	}
}

func TestUnknownAsset(t *testing.T) {
	r := NewDefaultRegistry()

	if _, err := r.FromSymbol("doge"); !errors.Is(err, ErrUnknown) {
		t.Errorf("expected ErrUnknown for symbol, got %v", err)
	}
	if _, err := r.FromID("dogecoin"); !errors.Is(err, ErrUnknown) {
		t.Errorf("expected ErrUnknown for id, got %v", err)
	}
}

func TestAllPreservesOrder(t *testing.T) {
	r := NewDefaultRegistry()
	all := r.All()
	if len(all) != len(DefaultAssets) {
		t.Fatalf("expected %d assets, got %d", len(DefaultAssets), len(all))
	}
	for i, a := range all {
		if a.ID != DefaultAssets[i].ID {
			t.Errorf("position %d: expected %q, got %q", i, DefaultAssets[i].ID, a.ID)
		}
	}
}
