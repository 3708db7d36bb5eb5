// Package binance provides the cross-venue reference price feed and an
// optional depth stream. Reference data comes from Binance futures while
// execution happens on Bybit; the two venues are never interchangeable.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"obpilot/internal/application/port"
)

// PriceClient polls the futures ticker REST endpoint.
type PriceClient struct {
	baseURL string
	client  *http.Client
}

// tickerPriceResp mirrors /fapi/v1/ticker/price.
type tickerPriceResp struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

func NewPriceClient(baseURL string) *PriceClient {
	if baseURL == "" {
		baseURL = "https://fapi.binance.com"
	}
	return &PriceClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *PriceClient) Name() string { return "BINANCE" }

// LastPrice fetches the last traded futures price for a symbol.
func (c *PriceClient) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/fapi/v1/ticker/price?symbol=%s", c.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return decimal.Zero, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return decimal.Zero, fmt.Errorf("binance api error: %d %s", resp.StatusCode, string(body))
	}

	var result tickerPriceResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return decimal.Zero, err
	}

	price, err := decimal.NewFromString(result.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", result.Price, err)
	}
	return price, nil
}

var _ port.ReferencePriceFeed = (*PriceClient)(nil)
