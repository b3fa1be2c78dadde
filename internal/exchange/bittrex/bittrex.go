// Package bittrex implements the exchange adapter for Bittrex's v1.1 public
// API. Bittrex labels pairs quote-first ("BTC-ETH" trades eth priced in btc)
// and its field naming inverts ours: its MarketCurrency is our base and its
// BaseCurrency is our quote.
package bittrex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ehupin/marcobot/internal/domain"
)

const Name = "bittrex"

// withdrawMinFactor derives the venue's minimum withdrawal from its flat fee;
// Bittrex does not publish a minimum directly.
const withdrawMinFactor = 3

// Config holds the Bittrex client settings. BaseURL is overridable for tests.
type Config struct {
	BaseURL     string
	TradingFees float64
	HTTPTimeout time.Duration
}

// Client is the Bittrex adapter. Wallet facts from the last successful
// FetchCurrencies call are retained for fee application.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger

	mu      sync.RWMutex
	wallets map[domain.Currency]domain.WalletStatus
}

// New creates a Bittrex client.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://bittrex.com"
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		logger:  logger.With(slog.String("component", "bittrex")),
		wallets: make(map[domain.Currency]domain.WalletStatus),
	}
}

func (c *Client) Name() string         { return Name }
func (c *Client) TradingFees() float64 { return c.cfg.TradingFees }

// envelope is the v1.1 response wrapper common to every endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type marketEntry struct {
	MarketName     string  `json:"MarketName"`
	MarketCurrency string  `json:"MarketCurrency"`
	BaseCurrency   string  `json:"BaseCurrency"`
	MinTradeSize   float64 `json:"MinTradeSize"`
	IsActive       bool    `json:"IsActive"`
}

type marketSummary struct {
	MarketName string  `json:"MarketName"`
	Bid        float64 `json:"Bid"`
	Ask        float64 `json:"Ask"`
	Volume     float64 `json:"Volume"`
	BaseVolume float64 `json:"BaseVolume"`
}

// FetchMarkets joins the market list with the summaries so each market
// carries both its trade rules and top-of-book prices.
func (c *Client) FetchMarkets(ctx context.Context) ([]domain.Market, error) {
	var entries []marketEntry
	if err := c.getResult(ctx, "/api/v1.1/public/getmarkets", nil, &entries); err != nil {
		return nil, fmt.Errorf("bittrex: markets: %w", err)
	}

	var summaries []marketSummary
	if err := c.getResult(ctx, "/api/v1.1/public/getmarketsummaries", nil, &summaries); err != nil {
		return nil, fmt.Errorf("bittrex: market summaries: %w", err)
	}
	byName := make(map[string]marketSummary, len(summaries))
	for _, s := range summaries {
		byName[s.MarketName] = s
	}

	now := time.Now().UTC()
	markets := make([]domain.Market, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsActive {
			continue
		}
		m := domain.Market{
			Exchange:       Name,
			Base:           domain.Currency(strings.ToLower(entry.MarketCurrency)),
			Quote:          domain.Currency(strings.ToLower(entry.BaseCurrency)),
			MinTradeAmount: entry.MinTradeSize,
			UpdatedAt:      now,
		}
		if s, ok := byName[entry.MarketName]; ok {
			m.BidPrice = s.Bid
			m.AskPrice = s.Ask
			m.BaseVolume = s.Volume
			m.QuoteVolume = s.BaseVolume
		}
		markets = append(markets, m)
	}
	return markets, nil
}

type currencyEntry struct {
	Currency string  `json:"Currency"`
	TxFee    float64 `json:"TxFee"`
	IsActive bool    `json:"IsActive"`
}

// FetchCurrencies lists per-currency wallet facts from the public currency
// endpoint. The transfer fee doubles as the basis of the withdrawal minimum.
func (c *Client) FetchCurrencies(ctx context.Context) ([]domain.WalletStatus, error) {
	var entries []currencyEntry
	if err := c.getResult(ctx, "/api/v1.1/public/getcurrencies", nil, &entries); err != nil {
		return nil, fmt.Errorf("bittrex: currencies: %w", err)
	}

	wallets := make([]domain.WalletStatus, 0, len(entries))
	for _, entry := range entries {
		wallets = append(wallets, domain.WalletStatus{
			Exchange:        Name,
			Currency:        domain.Currency(strings.ToLower(entry.Currency)),
			WithdrawEnabled: entry.IsActive,
			WithdrawMin:     entry.TxFee * withdrawMinFactor,
			WithdrawFee:     entry.TxFee,
			DepositEnabled:  entry.IsActive,
		})
	}

	c.mu.Lock()
	c.wallets = make(map[domain.Currency]domain.WalletStatus, len(wallets))
	for _, w := range wallets {
		c.wallets[w.Currency] = w
	}
	c.mu.Unlock()

	return wallets, nil
}

type orderEntry struct {
	Quantity float64 `json:"Quantity"`
	Rate     float64 `json:"Rate"`
}

// GetOrderBook fetches one side of a pair's book. The bid side maps to the
// venue's "buy" orders and the ask side to its "sell" orders; both arrive
// best price first.
func (c *Client) GetOrderBook(ctx context.Context, symbol string, side domain.PriceType) (domain.OrderBook, error) {
	name, err := marketName(symbol)
	if err != nil {
		return nil, fmt.Errorf("bittrex: %w: %w", domain.ErrOrderBookUnavailable, err)
	}

	bookType := "sell"
	if side == domain.PriceBid {
		bookType = "buy"
	}

	var entries []orderEntry
	params := url.Values{"market": {name}, "type": {bookType}}
	if err := c.getResult(ctx, "/api/v1.1/public/getorderbook", params, &entries); err != nil {
		return nil, fmt.Errorf("bittrex: order book %s: %w: %w", symbol, domain.ErrOrderBookUnavailable, err)
	}

	book := make(domain.OrderBook, 0, len(entries))
	for _, entry := range entries {
		book = append(book, domain.PriceLevel{Price: entry.Rate, Amount: entry.Quantity})
	}
	return book, nil
}

// ApplyTradingFees deducts the taker fee.
func (c *Client) ApplyTradingFees(amount float64) float64 {
	return amount * (1 - c.cfg.TradingFees)
}

// ApplyWithdrawFees deducts the flat withdrawal fee using the wallet facts
// cached by the last FetchCurrencies call.
func (c *Client) ApplyWithdrawFees(ctx context.Context, cur domain.Currency, amount float64) (float64, error) {
	c.mu.RLock()
	w, ok := c.wallets[cur]
	c.mu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("bittrex: no wallet facts for %s: %w", cur, domain.ErrNotFound)
	}
	if !w.WithdrawEnabled {
		return 0, fmt.Errorf("bittrex: %s withdrawals disabled: %w", cur, domain.ErrWithdrawalBlocked)
	}
	if amount < w.WithdrawMin {
		return 0, fmt.Errorf("bittrex: %s amount %v below minimum %v: %w", cur, amount, w.WithdrawMin, domain.ErrWithdrawalBlocked)
	}
	return amount - w.WithdrawFee, nil
}

// marketName converts a base/quote pair label to the venue's QUOTE-BASE form.
func marketName(symbol string) (string, error) {
	base, quote, ok := domain.ParseSymbol(symbol)
	if !ok {
		return "", fmt.Errorf("bad symbol %q", symbol)
	}
	return strings.ToUpper(string(quote) + "-" + string(base)), nil
}

func (c *Client) getResult(ctx context.Context, path string, params url.Values, out any) error {
	u := c.cfg.BaseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return err
	}
	if !env.Success {
		return fmt.Errorf("api error: %s", env.Message)
	}
	return json.Unmarshal(env.Result, out)
}
