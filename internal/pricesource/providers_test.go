package pricesource

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCoinGeckoParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("ids"); got != "bitcoin" {
			t.Errorf("expected ids=bitcoin, got %q", got)
		}
		w.Write([]byte(`{"bitcoin":{"usd":70500.25,"usd_24h_change":3.14}}`))
	}))
	defer srv.Close()

	p := NewCoinGeckoProvider(5*time.Second, "")
	p.BaseURL = srv.URL

	q, err := p.FetchQuote(context.Background(), btc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Price != 70500.25 {
		t.Errorf("expected 70500.25, got %.2f", q.Price)
	}
	if q.PctChange24h == nil || *q.PctChange24h != 3.14 {
		t.Errorf("expected 24h change 3.14, got %v", q.PctChange24h)
	}
}

func TestCoinGeckoMissingPriceIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p := NewCoinGeckoProvider(5*time.Second, "")
	p.BaseURL = srv.URL

	if _, err := p.FetchQuote(context.Background(), btc); err == nil {
		t.Fatal("expected error for missing price")
	}
}

func TestCoinGeckoZeroPriceIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"bitcoin":{"usd":0}}`))
	}))
	defer srv.Close()

	p := NewCoinGeckoProvider(5*time.Second, "")
	p.BaseURL = srv.URL

	if _, err := p.FetchQuote(context.Background(), btc); err == nil {
		t.Fatal("expected error for zero price")
	}
}

func TestCoinPaprikaParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/tickers/btc-bitcoin" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"quotes":{"USD":{"price":70123.5,"percent_change_24h":-2.5,"volume_24h_change_24h":18.0}}}`))
	}))
	defer srv.Close()

	p := NewCoinPaprikaProvider(5*time.Second, "")
	p.BaseURL = srv.URL

	q, err := p.FetchQuote(context.Background(), btc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Price != 70123.5 {
		t.Errorf("expected 70123.5, got %.2f", q.Price)
	}
	if q.VolChange24h == nil || *q.VolChange24h != 18.0 {
		t.Errorf("expected volume change 18.0, got %v", q.VolChange24h)
	}
}

func TestCoinMarketCapObjectShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-CMC_PRO_API_KEY"); got != "test-key" {
			t.Errorf("expected api key header, got %q", got)
		}
		w.Write([]byte(`{"data":{"BTC":{"quote":{"USD":{"price":69999.0,"percent_change_24h":1.0,"volume_change_24h":4.2}}}}}`))
	}))
	defer srv.Close()

	p := NewCoinMarketCapProvider("test-key", 5*time.Second, "")
	p.BaseURL = srv.URL

	q, err := p.FetchQuote(context.Background(), btc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Price != 69999.0 {
		t.Errorf("expected 69999.0, got %.2f", q.Price)
	}
}

func TestCoinMarketCapListShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"data":{"BTC":[{"quote":{"USD":{"price":69998.0}}}]}}`))
	}))
	defer srv.Close()

	p := NewCoinMarketCapProvider("test-key", 5*time.Second, "")
	p.BaseURL = srv.URL

	q, err := p.FetchQuote(context.Background(), btc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Price != 69998.0 {
		t.Errorf("expected 69998.0, got %.2f", q.Price)
	}
}

func TestProviderBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewCoinGeckoProvider(5*time.Second, "")
	p.BaseURL = srv.URL

	if _, err := p.FetchQuote(context.Background(), btc); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
