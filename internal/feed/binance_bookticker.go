// Package feed streams live top-of-book updates into the market graph
// between full refreshes.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ehupin/marcobot/internal/domain"
)

const (
	writeWait = 10 * time.Second
	readWait  = 3 * time.Minute

	reconnectDelay    = 2 * time.Second
	maxReconnectDelay = 60 * time.Second
)

// TopOfBookSink receives streamed bid/ask updates. Implemented by the graph
// store.
type TopOfBookSink interface {
	SetTopOfBook(exchange, symbol string, bid, ask float64)
}

// BinanceBookTicker consumes Binance's combined bookTicker stream for a fixed
// set of pairs and forwards every update to the sink. It reconnects with
// exponential backoff until its context is cancelled.
type BinanceBookTicker struct {
	wsURL   string
	symbols []string // pair labels, e.g. "eth/btc"
	sink    TopOfBookSink
	logger  *slog.Logger
}

// NewBinanceBookTicker creates the feed. wsURL is the stream endpoint base,
// e.g. "wss://stream.binance.com:9443"; it is overridable for tests.
func NewBinanceBookTicker(wsURL string, symbols []string, sink TopOfBookSink, logger *slog.Logger) *BinanceBookTicker {
	if wsURL == "" {
		wsURL = "wss://stream.binance.com:9443"
	}
	return &BinanceBookTicker{
		wsURL:   wsURL,
		symbols: symbols,
		sink:    sink,
		logger:  logger.With(slog.String("component", "binance_bookticker")),
	}
}

// Run connects and forwards updates until ctx is cancelled.
func (f *BinanceBookTicker) Run(ctx context.Context) error {
	if len(f.symbols) == 0 {
		f.logger.Info("no symbols to stream, feed idle")
		<-ctx.Done()
		return ctx.Err()
	}

	streamURL, byStream, err := f.streamURL()
	if err != nil {
		return err
	}

	delay := reconnectDelay
	for {
		err := f.runConnection(ctx, streamURL, byStream)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		f.logger.Warn("stream disconnected, reconnecting",
			slog.Duration("delay", delay), slog.Any("error", err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// streamURL builds the combined-stream URL and the stream-name to pair-label
// index used to route updates back to graph markets.
func (f *BinanceBookTicker) streamURL() (string, map[string]string, error) {
	streams := make([]string, 0, len(f.symbols))
	byStream := make(map[string]string, len(f.symbols))
	for _, symbol := range f.symbols {
		base, quote, ok := domain.ParseSymbol(symbol)
		if !ok {
			return "", nil, fmt.Errorf("feed: bad symbol %q", symbol)
		}
		name := strings.ToLower(string(base)+string(quote)) + "@bookTicker"
		streams = append(streams, name)
		byStream[name] = symbol
	}
	return f.wsURL + "/stream?streams=" + strings.Join(streams, "/"), byStream, nil
}

type combinedStreamMessage struct {
	Stream string `json:"stream"`
	Data   struct {
		Symbol string `json:"s"`
		Bid    string `json:"b"`
		Ask    string `json:"a"`
	} `json:"data"`
}

func (f *BinanceBookTicker) runConnection(ctx context.Context, streamURL string, byStream map[string]string) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		return fmt.Errorf("feed: connect: %w", err)
	}
	defer conn.Close()

	// The server pings periodically; answer and use it as liveness signal.
	conn.SetReadDeadline(time.Now().Add(readWait))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(writeWait))
	})

	// Unblock ReadMessage on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			conn.Close()
		case <-done:
		}
	}()

	f.logger.Info("stream connected", slog.Int("symbols", len(f.symbols)))

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("feed: read: %w", err)
		}

		var msg combinedStreamMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		symbol, ok := byStream[msg.Stream]
		if !ok {
			continue
		}
		bid, errB := strconv.ParseFloat(msg.Data.Bid, 64)
		ask, errA := strconv.ParseFloat(msg.Data.Ask, 64)
		if errB != nil || errA != nil {
			continue
		}
		f.sink.SetTopOfBook("binance", symbol, bid, ask)
	}
}
