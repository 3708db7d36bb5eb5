package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"obpilot/internal/application/port"
	"obpilot/internal/domain/model"
)

// Gateway is the execution-venue client consumed by the trading services.
type Gateway struct {
	*APIClient
}

func NewGateway(client *APIClient) *Gateway {
	return &Gateway{APIClient: client}
}

// PlaceOrderResponse is the V5 order-create result envelope.
type PlaceOrderResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	} `json:"result"`
}

// ApiResponse is the generic V5 envelope for calls without a useful result.
type ApiResponse struct {
	RetCode int         `json:"retCode"`
	RetMsg  string      `json:"retMsg"`
	Result  interface{} `json:"result"`
}

// PlaceMarketOrder submits a market order and returns the venue order id.
func (g *Gateway) PlaceMarketOrder(ctx context.Context, symbol string, side model.Side, qty decimal.Decimal) (string, error) {
	payload := map[string]interface{}{
		"category":  "linear",
		"symbol":    symbol,
		"side":      string(side),
		"orderType": "Market",
		"qty":       qty.String(),
	}

	body, err := g.signedJSONRequest(ctx, http.MethodPost, "/v5/order/create", payload)
	if err != nil {
		return "", fmt.Errorf("place order failed: %w", err)
	}

	var resp PlaceOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse order response failed: %w", err)
	}
	if resp.RetCode != 0 {
		return "", fmt.Errorf("place order error: [%d] %s", resp.RetCode, resp.RetMsg)
	}

	log.Info().
		Str("exchange", "BYBIT").
		Str("symbol", symbol).
		Str("side", string(side)).
		Str("qty", qty.String()).
		Str("orderID", resp.Result.OrderID).
		Msg("order placed")

	return resp.Result.OrderID, nil
}

// SetTradingStop sets or replaces the full-position stop-loss, triggered on
// last price and executed as a market order.
func (g *Gateway) SetTradingStop(ctx context.Context, symbol string, stopPrice decimal.Decimal) error {
	payload := map[string]interface{}{
		"category":    "linear",
		"symbol":      symbol,
		"stopLoss":    stopPrice.String(),
		"slTriggerBy": "LastPrice",
		"tpslMode":    "Full",
		"slOrderType": "Market",
	}

	body, err := g.signedJSONRequest(ctx, http.MethodPost, "/v5/position/trading-stop", payload)
	if err != nil {
		return fmt.Errorf("set trading stop failed: %w", err)
	}

	var resp ApiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("parse trading stop response failed: %w", err)
	}
	if resp.RetCode != 0 {
		return fmt.Errorf("set trading stop error: [%d] %s", resp.RetCode, resp.RetMsg)
	}

	log.Info().
		Str("exchange", "BYBIT").
		Str("symbol", symbol).
		Str("stop", stopPrice.String()).
		Msg("trading stop set")

	return nil
}

var _ port.ExchangeGateway = (*Gateway)(nil)
