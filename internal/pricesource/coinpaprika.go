package pricesource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"PricePilot/internal/asset"
	"PricePilot/internal/model"
)

const defaultCoinPaprikaURL = "https://api.coinpaprika.com"

// CoinPaprikaProvider fetches quotes from the CoinPaprika tickers API.
type CoinPaprikaProvider struct {
	BaseURL string
	Client  *http.Client
}

// NewCoinPaprikaProvider creates a provider with optional proxy support.
func NewCoinPaprikaProvider(timeout time.Duration, proxyURL string) *CoinPaprikaProvider {
	return &CoinPaprikaProvider{
		BaseURL: defaultCoinPaprikaURL,
		Client:  newHTTPClient(timeout, proxyURL),
	}
}

func (p *CoinPaprikaProvider) Name() string { return "coinpaprika" }

// paprikaTicker is the subset of the tickers response we read.
type paprikaTicker struct {
	Quotes struct {
		USD struct {
			Price        float64  `json:"price"`
			PctChange24h *float64 `json:"percent_change_24h"`
			VolChange24h *float64 `json:"volume_24h_change_24h"`
		} `json:"USD"`
	} `json:"quotes"`
}

func (p *CoinPaprikaProvider) FetchQuote(ctx context.Context, a asset.Asset) (model.Quote, error) {
	// Paprika ticker ids look like "btc-bitcoin".
	tickerID := strings.ToLower(a.Symbol) + "-" + a.ID
	endpoint := fmt.Sprintf("%s/v1/tickers/%s", p.BaseURL, url.PathEscape(tickerID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Quote{}, err
	}
	req.Header.Set("User-Agent", "PricePilot/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return model.Quote{}, fmt.Errorf("coinpaprika fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return model.Quote{}, fmt.Errorf("coinpaprika: status %d, body: %s", resp.StatusCode, string(body))
	}

	var ticker paprikaTicker
	if err := json.NewDecoder(resp.Body).Decode(&ticker); err != nil {
		return model.Quote{}, fmt.Errorf("coinpaprika decode: %w", err)
	}

	usd := ticker.Quotes.USD
	if usd.Price <= 0 {
		return model.Quote{}, fmt.Errorf("coinpaprika: no usable price for %s", a.Symbol)
	}
	return model.Quote{
		Price:        usd.Price,
		PctChange24h: usd.PctChange24h,
		VolChange24h: usd.VolChange24h,
	}, nil
}
