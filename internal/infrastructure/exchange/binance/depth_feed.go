package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"obpilot/internal/application/port"
	"obpilot/internal/domain/model"
)

// DepthFeed maintains a live partial-depth book from the futures websocket
// stream and serves point-in-time snapshots to the aggregation cycle. It is
// the websocket-backed alternative to the local order-book service.
type DepthFeed struct {
	wsURL  string
	symbol string
	depth  int

	mu      sync.RWMutex
	bids    map[string]string
	asks    map[string]string
	healthy bool
}

// depthMsg mirrors the <symbol>@depth<levels> partial stream payload.
type depthCombined struct {
	Stream string   `json:"stream"`
	Data   depthMsg `json:"data"`
}

type depthMsg struct {
	Bids [][]string `json:"b"`
	Asks [][]string `json:"a"`
}

func NewDepthFeed(wsURL, symbol string, depth int) *DepthFeed {
	if depth <= 0 {
		depth = 20
	}
	return &DepthFeed{
		wsURL:  strings.TrimSpace(wsURL),
		symbol: strings.ToUpper(symbol),
		depth:  depth,
	}
}

func (f *DepthFeed) Name() string { return "BINANCE_WS" }

// Start dials the stream and keeps the book current until ctx is cancelled,
// reconnecting with exponential backoff. Call once, in its own goroutine.
func (f *DepthFeed) Start(ctx context.Context) {
	wsURL, err := f.streamURL()
	if err != nil {
		log.Error().Err(err).Msg("depth feed misconfigured")
		return
	}

	backoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		log.Warn().Str("feed", f.Name()).Str("url", wsURL).Msg("ws connecting")
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		conn, _, err := websocket.DefaultDialer.DialContext(cctx, wsURL, nil)
		cancel()
		if err != nil {
			log.Error().Str("feed", f.Name()).Err(err).Msg("ws dial failed")
			f.setHealthy(false)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = minDur(backoff*2, maxBackoff)
			continue
		}

		backoff = 500 * time.Millisecond
		log.Info().Str("feed", f.Name()).Msg("ws connected")

		if err := f.readLoop(ctx, conn); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Str("feed", f.Name()).Err(err).Msg("ws read loop ended")
		}
		_ = conn.Close()
		f.setHealthy(false)
	}
}

func (f *DepthFeed) streamURL() (string, error) {
	if f.wsURL == "" {
		return "", errors.New("binance ws_url empty")
	}
	u, err := url.Parse(f.wsURL)
	if err != nil {
		return "", err
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + fmt.Sprintf("%s@depth%d@100ms", strings.ToLower(f.symbol), f.depth)
	return u.String(), nil
}

func (f *DepthFeed) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg depthCombined
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Error().Str("feed", f.Name()).Err(err).Msg("json unmarshal failed")
			continue
		}
		f.apply(msg.Data)
	}
}

// apply replaces the book sides; the partial stream always carries the full
// top-N state, so no diff merging is needed.
func (f *DepthFeed) apply(msg depthMsg) {
	bids := make(map[string]string, len(msg.Bids))
	for _, lv := range msg.Bids {
		if len(lv) == 2 {
			bids[lv[0]] = lv[1]
		}
	}
	asks := make(map[string]string, len(msg.Asks))
	for _, lv := range msg.Asks {
		if len(lv) == 2 {
			asks[lv[0]] = lv[1]
		}
	}

	f.mu.Lock()
	f.bids = bids
	f.asks = asks
	f.healthy = true
	f.mu.Unlock()
}

func (f *DepthFeed) setHealthy(v bool) {
	f.mu.Lock()
	f.healthy = v
	f.mu.Unlock()
}

// Snapshot returns a copy of the current book. An unhealthy or not-yet-
// populated feed is transient data unavailability, reported as an error so
// the cycle skips.
func (f *DepthFeed) Snapshot(ctx context.Context, symbol string) (*model.OrderBookSnapshot, error) {
	if !strings.EqualFold(symbol, f.symbol) {
		return nil, fmt.Errorf("depth feed tracks %s, not %s", f.symbol, symbol)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.healthy || len(f.bids) == 0 && len(f.asks) == 0 {
		return nil, errors.New("depth feed not ready")
	}

	bids := make(map[string]string, len(f.bids))
	for k, v := range f.bids {
		bids[k] = v
	}
	asks := make(map[string]string, len(f.asks))
	for k, v := range f.asks {
		asks[k] = v
	}
	return &model.OrderBookSnapshot{Bids: bids, Asks: asks}, nil
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

var _ port.OrderBookSource = (*DepthFeed)(nil)
