package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"obpilot/internal/domain/model"
)

// InstrumentsInfoResponse carries the price/lot filters for a symbol.
type InstrumentsInfoResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			Symbol      string `json:"symbol"`
			PriceFilter struct {
				TickSize string `json:"tickSize"`
			} `json:"priceFilter"`
			LotSizeFilter struct {
				QtyStep string `json:"qtyStep"`
			} `json:"lotSizeFilter"`
		} `json:"list"`
	} `json:"result"`
}

// TickersResponse carries the last traded price.
type TickersResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	} `json:"result"`
}

// PositionListResponse carries the open linear positions.
type PositionListResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		List []struct {
			Symbol    string `json:"symbol"`
			Side      string `json:"side"`
			Size      string `json:"size"`
			AvgPrice  string `json:"avgPrice"`
			MarkPrice string `json:"markPrice"`
		} `json:"list"`
	} `json:"result"`
}

// InstrumentFilters fetches the tick size and lot step for a symbol.
func (g *Gateway) InstrumentFilters(ctx context.Context, symbol string) (model.InstrumentFilters, error) {
	params := url.Values{}
	params.Set("category", "linear")
	params.Set("symbol", symbol)

	body, err := g.publicGet(ctx, "/v5/market/instruments-info", params)
	if err != nil {
		return model.InstrumentFilters{}, fmt.Errorf("get instruments info failed: %w", err)
	}

	var resp InstrumentsInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.InstrumentFilters{}, fmt.Errorf("parse instruments info failed: %w", err)
	}
	if resp.RetCode != 0 || len(resp.Result.List) == 0 {
		return model.InstrumentFilters{}, fmt.Errorf("get instruments info error: [%d] %s", resp.RetCode, resp.RetMsg)
	}

	info := resp.Result.List[0]
	tick, err := decimal.NewFromString(info.PriceFilter.TickSize)
	if err != nil {
		return model.InstrumentFilters{}, fmt.Errorf("parse tick size %q: %w", info.PriceFilter.TickSize, err)
	}
	step, err := decimal.NewFromString(info.LotSizeFilter.QtyStep)
	if err != nil {
		return model.InstrumentFilters{}, fmt.Errorf("parse qty step %q: %w", info.LotSizeFilter.QtyStep, err)
	}

	return model.InstrumentFilters{TickSize: tick, QtyStep: step}, nil
}

// LastPrice returns the venue's last traded price for a symbol.
func (g *Gateway) LastPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("category", "linear")
	params.Set("symbol", symbol)

	body, err := g.publicGet(ctx, "/v5/market/tickers", params)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get tickers failed: %w", err)
	}

	var resp TickersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return decimal.Zero, fmt.Errorf("parse tickers failed: %w", err)
	}
	if resp.RetCode != 0 || len(resp.Result.List) == 0 {
		return decimal.Zero, fmt.Errorf("get tickers error: [%d] %s", resp.RetCode, resp.RetMsg)
	}

	price, err := decimal.NewFromString(resp.Result.List[0].LastPrice)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse last price %q: %w", resp.Result.List[0].LastPrice, err)
	}
	return price, nil
}

// OpenPositions lists the account's linear positions. With an empty symbol
// the whole USDT settle universe is queried.
func (g *Gateway) OpenPositions(ctx context.Context, symbol string) ([]model.Position, error) {
	params := url.Values{}
	params.Set("category", "linear")
	if symbol != "" {
		params.Set("symbol", symbol)
	} else {
		params.Set("settleCoin", "USDT")
	}

	body, err := g.signedQueryRequest(ctx, "GET", "/v5/position/list", params)
	if err != nil {
		return nil, fmt.Errorf("get positions failed: %w", err)
	}

	var resp PositionListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse positions failed: %w", err)
	}
	if resp.RetCode != 0 {
		return nil, fmt.Errorf("get positions error: [%d] %s", resp.RetCode, resp.RetMsg)
	}

	positions := make([]model.Position, 0, len(resp.Result.List))
	for _, p := range resp.Result.List {
		size, err := decimal.NewFromString(p.Size)
		if err != nil {
			continue
		}
		entry, _ := decimal.NewFromString(p.AvgPrice)
		mark, _ := decimal.NewFromString(p.MarkPrice)
		positions = append(positions, model.Position{
			Symbol:     p.Symbol,
			Side:       model.Side(p.Side),
			Size:       size,
			EntryPrice: entry,
			MarkPrice:  mark,
		})
	}
	return positions, nil
}
