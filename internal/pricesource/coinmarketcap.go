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

const defaultCoinMarketCapURL = "https://pro-api.coinmarketcap.com"

// CoinMarketCapProvider is the API-key-gated fallback source. It is only
// placed in the chain when a key is configured.
type CoinMarketCapProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewCoinMarketCapProvider creates a provider using the given API key.
func NewCoinMarketCapProvider(apiKey string, timeout time.Duration, proxyURL string) *CoinMarketCapProvider {
	return &CoinMarketCapProvider{
		BaseURL: defaultCoinMarketCapURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(timeout, proxyURL),
	}
}

func (p *CoinMarketCapProvider) Name() string { return "coinmarketcap" }

// cmcQuote is the per-symbol quote block of the quotes/latest response.
type cmcQuote struct {
	Quote struct {
		USD struct {
			Price        float64  `json:"price"`
			PctChange24h *float64 `json:"percent_change_24h"`
			VolChange24h *float64 `json:"volume_change_24h"`
		} `json:"USD"`
	} `json:"quote"`
}

func (p *CoinMarketCapProvider) FetchQuote(ctx context.Context, a asset.Asset) (model.Quote, error) {
	endpoint := fmt.Sprintf("%s/v1/cryptocurrency/quotes/latest?symbol=%s&convert=USD",
		p.BaseURL, url.QueryEscape(a.Symbol))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return model.Quote{}, err
	}
	req.Header.Set("X-CMC_PRO_API_KEY", p.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return model.Quote{}, fmt.Errorf("coinmarketcap fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return model.Quote{}, fmt.Errorf("coinmarketcap: status %d, body: %s", resp.StatusCode, string(body))
	}

	// The data value is a single object for most symbols but a list for
	// symbols CMC considers ambiguous (e.g. USDT), so decode lazily.
	var payload struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.Quote{}, fmt.Errorf("coinmarketcap decode: %w", err)
	}

	raw, ok := payload.Data[a.Symbol]
	if !ok {
		return model.Quote{}, fmt.Errorf("coinmarketcap: no data for %s", a.Symbol)
	}

	var entry cmcQuote
	if err := json.Unmarshal(raw, &entry); err != nil {
		var list []cmcQuote
		if err := json.Unmarshal(raw, &list); err != nil || len(list) == 0 {
			return model.Quote{}, fmt.Errorf("coinmarketcap: unexpected data shape for %s", a.Symbol)
		}
		entry = list[0]
	}

	usd := entry.Quote.USD
	if usd.Price <= 0 {
		return model.Quote{}, fmt.Errorf("coinmarketcap: no usable price for %s", a.Symbol)
	}
	return model.Quote{
		Price:        usd.Price,
		PctChange24h: usd.PctChange24h,
		VolChange24h: usd.VolChange24h,
	}, nil
}
