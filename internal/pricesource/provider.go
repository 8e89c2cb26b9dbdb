package pricesource

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"PricePilot/internal/asset"
	"PricePilot/internal/model"
)

// Provider fetches a current USD quote for one asset from a single source.
type Provider interface {
	FetchQuote(ctx context.Context, a asset.Asset) (model.Quote, error)
	Name() string
}

// newHTTPClient builds a client with a bounded timeout and optional proxy.
func newHTTPClient(timeout time.Duration, proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
