// Package bookservice talks to the local order-book aggregation service,
// which exposes per-symbol depth as price -> quantity maps.
package bookservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"obpilot/internal/application/port"
	"obpilot/internal/domain/model"
)

type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *Client) Name() string { return "BOOK_SERVICE" }

// Snapshot fetches the current depth for a symbol.
func (c *Client) Snapshot(ctx context.Context, symbol string) (*model.OrderBookSnapshot, error) {
	url := fmt.Sprintf("%s/orderbooks/%s", c.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("book service error: %d %s", resp.StatusCode, string(body))
	}

	var book model.OrderBookSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return nil, fmt.Errorf("parse order book: %w", err)
	}
	return &book, nil
}

var _ port.OrderBookSource = (*Client)(nil)
