package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"statarb-go/internal/market"
	"statarb-go/internal/metrics"
)

type binanceEnvelope struct {
	Stream string       `json:"stream"`
	Data   binanceTrade `json:"data"`
}

type binanceTrade struct {
	Price        string `json:"p"`
	Quantity     string `json:"q"`
	TradeTime    int64  `json:"T"`
	IsBuyerMaker bool   `json:"m"`
}

func (f *Feed) runBinance(ctx context.Context, out chan<- market.Tick) error {
	if len(f.symbols) == 0 {
		return fmt.Errorf("binance feed requires at least one symbol")
	}

	streams := make([]string, len(f.symbols))
	for i, sym := range f.symbols {
		streams[i] = strings.ToLower(sym) + "@trade"
	}

	url := fmt.Sprintf("%s?streams=%s", f.baseURL, strings.Join(streams, "/"))
	backoff := f.reconnectDelay
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumeBinanceStream(ctx, url, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("binance feed disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *Feed) consumeBinanceStream(ctx context.Context, url string, out chan<- market.Tick) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("provider", ProviderBinance).Strs("symbols", f.symbols).Msg("connected market data feed")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("binance ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		tick, ok := decodeBinanceTrade(message, f.log)
		if !ok {
			continue
		}

		select {
		case out <- tick:
			metrics.TicksTotal.WithLabelValues(tick.Symbol).Inc()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// decodeBinanceTrade converts one combined-stream trade message into a tick.
func decodeBinanceTrade(message []byte, log zerolog.Logger) (market.Tick, bool) {
	var env binanceEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		log.Warn().Err(err).Msg("failed to decode binance message")
		return market.Tick{}, false
	}

	symbol := parseStreamSymbol(env.Stream)
	px, err := strconv.ParseFloat(env.Data.Price, 64)
	if err != nil {
		log.Warn().Err(err).Msg("invalid price from binance")
		return market.Tick{}, false
	}
	qty, err := strconv.ParseFloat(env.Data.Quantity, 64)
	if err != nil {
		log.Warn().Err(err).Msg("invalid quantity from binance")
		return market.Tick{}, false
	}
	side := 1
	if env.Data.IsBuyerMaker {
		side = -1
	}
	return market.Tick{
		Symbol: symbol,
		Price:  px,
		Volume: qty,
		Side:   side,
		Ts:     time.UnixMilli(env.Data.TradeTime).UTC(),
	}, true
}

func parseStreamSymbol(stream string) string {
	parts := strings.Split(stream, "@")
	if len(parts) == 0 || parts[0] == "" {
		return strings.ToUpper(stream)
	}
	return strings.ToUpper(parts[0])
}
