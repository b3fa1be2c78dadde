// Package binance implements the exchange adapter for Binance's public REST
// API. Wallet facts come from a signed endpoint and are optional: without API
// credentials the venue still trades in the graph but grows no withdraw edges.
package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ehupin/marcobot/internal/domain"
)

const Name = "binance"

// Config holds the Binance client settings. BaseURL is overridable for tests.
type Config struct {
	BaseURL     string
	APIKey      string
	APISecret   string
	TradingFees float64
	HTTPTimeout time.Duration
}

// Client is the Binance adapter. It retains the wallet facts from the last
// successful FetchCurrencies call so fee application needs no network access.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger

	mu      sync.RWMutex
	wallets map[domain.Currency]domain.WalletStatus
}

// New creates a Binance client.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.binance.com"
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		logger:  logger.With(slog.String("component", "binance")),
		wallets: make(map[domain.Currency]domain.WalletStatus),
	}
}

func (c *Client) Name() string         { return Name }
func (c *Client) TradingFees() float64 { return c.cfg.TradingFees }

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol     string `json:"symbol"`
		Status     string `json:"status"`
		BaseAsset  string `json:"baseAsset"`
		QuoteAsset string `json:"quoteAsset"`
		Filters    []struct {
			FilterType string `json:"filterType"`
			MinQty     string `json:"minQty"`
			StepSize   string `json:"stepSize"`
		} `json:"filters"`
	} `json:"symbols"`
}

type ticker24h struct {
	Symbol      string `json:"symbol"`
	BidPrice    string `json:"bidPrice"`
	AskPrice    string `json:"askPrice"`
	Volume      string `json:"volume"`
	QuoteVolume string `json:"quoteVolume"`
}

// FetchMarkets joins the exchange's pair definitions with the 24h ticker so
// each market carries both its lot-size rules and top-of-book prices.
func (c *Client) FetchMarkets(ctx context.Context) ([]domain.Market, error) {
	var info exchangeInfoResponse
	if err := c.getJSON(ctx, "/api/v3/exchangeInfo", nil, &info); err != nil {
		return nil, fmt.Errorf("binance: exchange info: %w", err)
	}

	var tickers []ticker24h
	if err := c.getJSON(ctx, "/api/v3/ticker/24hr", nil, &tickers); err != nil {
		return nil, fmt.Errorf("binance: 24h ticker: %w", err)
	}
	bySymbol := make(map[string]ticker24h, len(tickers))
	for _, t := range tickers {
		bySymbol[t.Symbol] = t
	}

	now := time.Now().UTC()
	markets := make([]domain.Market, 0, len(info.Symbols))
	for _, sym := range info.Symbols {
		if sym.Status != "TRADING" {
			continue
		}
		m := domain.Market{
			Exchange:  Name,
			Base:      domain.Currency(strings.ToLower(sym.BaseAsset)),
			Quote:     domain.Currency(strings.ToLower(sym.QuoteAsset)),
			UpdatedAt: now,
		}
		for _, f := range sym.Filters {
			if f.FilterType == "LOT_SIZE" {
				m.MinTradeAmount = parseFloat(f.MinQty)
				m.MinTradeStep = parseFloat(f.StepSize)
			}
		}
		if t, ok := bySymbol[sym.Symbol]; ok {
			m.BidPrice = parseFloat(t.BidPrice)
			m.AskPrice = parseFloat(t.AskPrice)
			m.BaseVolume = parseFloat(t.Volume)
			m.QuoteVolume = parseFloat(t.QuoteVolume)
		}
		markets = append(markets, m)
	}
	return markets, nil
}

type capitalConfigEntry struct {
	Coin        string `json:"coin"`
	DepositAll  bool   `json:"depositAllEnable"`
	WithdrawAll bool   `json:"withdrawAllEnable"`
	NetworkList []struct {
		IsDefault      bool   `json:"isDefault"`
		WithdrawEnable bool   `json:"withdrawEnable"`
		DepositEnable  bool   `json:"depositEnable"`
		WithdrawFee    string `json:"withdrawFee"`
		WithdrawMin    string `json:"withdrawMin"`
	} `json:"networkList"`
}

// FetchCurrencies retrieves per-coin withdrawal facts from the signed capital
// config endpoint. Without credentials it returns an empty result so the
// venue simply offers no withdraw edges.
func (c *Client) FetchCurrencies(ctx context.Context) ([]domain.WalletStatus, error) {
	if c.cfg.APIKey == "" || c.cfg.APISecret == "" {
		c.logger.Debug("no api credentials, skipping wallet facts")
		return nil, nil
	}

	var entries []capitalConfigEntry
	if err := c.getSignedJSON(ctx, "/sapi/v1/capital/config/getall", &entries); err != nil {
		return nil, fmt.Errorf("binance: capital config: %w", err)
	}

	wallets := make([]domain.WalletStatus, 0, len(entries))
	for _, entry := range entries {
		network := entry.NetworkList
		var w domain.WalletStatus
		w.Exchange = Name
		w.Currency = domain.Currency(strings.ToLower(entry.Coin))
		for _, n := range network {
			if !n.IsDefault && len(network) > 1 {
				continue
			}
			w.WithdrawEnabled = n.WithdrawEnable
			w.DepositEnabled = n.DepositEnable
			w.WithdrawFee = parseFloat(n.WithdrawFee)
			w.WithdrawMin = parseFloat(n.WithdrawMin)
			break
		}
		wallets = append(wallets, w)
	}

	c.mu.Lock()
	c.wallets = make(map[domain.Currency]domain.WalletStatus, len(wallets))
	for _, w := range wallets {
		c.wallets[w.Currency] = w
	}
	c.mu.Unlock()

	return wallets, nil
}

type depthResponse struct {
	Bids [][2]string `json:"bids"`
	Asks [][2]string `json:"asks"`
}

// GetOrderBook fetches one side of a pair's depth, best price first as the
// API already orders it.
func (c *Client) GetOrderBook(ctx context.Context, symbol string, side domain.PriceType) (domain.OrderBook, error) {
	base, quote, ok := domain.ParseSymbol(symbol)
	if !ok {
		return nil, fmt.Errorf("binance: bad symbol %q: %w", symbol, domain.ErrOrderBookUnavailable)
	}

	var depth depthResponse
	params := url.Values{
		"symbol": {strings.ToUpper(string(base) + string(quote))},
		"limit":  {"100"},
	}
	if err := c.getJSON(ctx, "/api/v3/depth", params, &depth); err != nil {
		return nil, fmt.Errorf("binance: depth %s: %w: %w", symbol, domain.ErrOrderBookUnavailable, err)
	}

	raw := depth.Asks
	if side == domain.PriceBid {
		raw = depth.Bids
	}
	book := make(domain.OrderBook, 0, len(raw))
	for _, level := range raw {
		book = append(book, domain.PriceLevel{
			Price:  parseFloat(level[0]),
			Amount: parseFloat(level[1]),
		})
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
		return 0, fmt.Errorf("binance: no wallet facts for %s: %w", cur, domain.ErrNotFound)
	}
	if !w.WithdrawEnabled {
		return 0, fmt.Errorf("binance: %s withdrawals disabled: %w", cur, domain.ErrWithdrawalBlocked)
	}
	if amount < w.WithdrawMin {
		return 0, fmt.Errorf("binance: %s amount %v below minimum %v: %w", cur, amount, w.WithdrawMin, domain.ErrWithdrawalBlocked)
	}
	return amount - w.WithdrawFee, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
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
	return json.NewDecoder(resp.Body).Decode(out)
}

// getSignedJSON performs a signed GET: the query string (including timestamp)
// is HMAC-SHA256 signed with the API secret and the key travels in a header.
func (c *Client) getSignedJSON(ctx context.Context, path string, out any) error {
	params := url.Values{
		"timestamp":  {strconv.FormatInt(time.Now().UnixMilli(), 10)},
		"recvWindow": {"20000"},
	}
	query := params.Encode()

	mac := hmac.New(sha256.New, []byte(c.cfg.APISecret))
	mac.Write([]byte(query))
	signature := hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.cfg.BaseURL+path+"?"+query+"&signature="+signature, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-MBX-APIKEY", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
