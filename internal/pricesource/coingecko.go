package pricesource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"PricePilot/internal/asset"
	"PricePilot/internal/model"
)

const defaultCoinGeckoURL = "https://api.coingecko.com"

// CoinGeckoProvider fetches quotes from the CoinGecko simple-price API.
type CoinGeckoProvider struct {
	BaseURL string
	Client  *http.Client
}

// NewCoinGeckoProvider creates a provider with optional proxy support.
func NewCoinGeckoProvider(timeout time.Duration, proxyURL string) *CoinGeckoProvider {
	return &CoinGeckoProvider{
		BaseURL: defaultCoinGeckoURL,
		Client:  newHTTPClient(timeout, proxyURL),
	}
}

func (p *CoinGeckoProvider) Name() string { return "coingecko" }

func (p *CoinGeckoProvider) FetchQuote(ctx context.Context, a asset.Asset) (model.Quote, error) {
	endpoint := fmt.Sprintf("%s/api/v3/simple/price?ids=%s&vs_currencies=usd&include_24hr_change=true",
		p.BaseURL, url.QueryEscape(a.ID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Quote{}, err
	}
	req.Header.Set("User-Agent", "PricePilot/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return model.Quote{}, fmt.Errorf("coingecko fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return model.Quote{}, fmt.Errorf("coingecko: status %d, body: %s", resp.StatusCode, string(body))
	}

	var payload map[string]struct {
		USD       float64  `json:"usd"`
		Change24h *float64 `json:"usd_24h_change"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.Quote{}, fmt.Errorf("coingecko decode: %w", err)
	}

	entry, ok := payload[a.ID]
	if !ok || entry.USD <= 0 {
		return model.Quote{}, fmt.Errorf("coingecko: no usable price for %s", a.Symbol)
	}
	return model.Quote{Price: entry.USD, PctChange24h: entry.Change24h}, nil
}
