package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vitos/crypto_signal_bot/internal/domain"
	"go.uber.org/zap"
)

const (
	BitgetBaseURL = "https://api.bitget.com"
	BitgetWSURL   = "wss://ws.bitget.com/v2/ws/public"

	productType = "USDT-FUTURES"
	marginCoin  = "USDT"

	// Cached WS prices older than this fall back to a REST fetch.
	priceCacheTTL = 5 * time.Second
)

type BitgetAdapter struct {
	apiKey     string
	apiSecret  string
	passphrase string
	baseURL    string
	wsURL      string
	client     *http.Client
	logger     *zap.Logger

	mu        sync.Mutex
	wsConn    *websocket.Conn
	prices    map[string]cachedPrice
	callbacks []func(symbol string, price float64)
}

type cachedPrice struct {
	price float64
	at    time.Time
}

func NewBitgetAdapter(apiKey, apiSecret, passphrase, baseURL, wsURL string, logger *zap.Logger) *BitgetAdapter {
	if baseURL == "" {
		baseURL = BitgetBaseURL
	}
	if wsURL == "" {
		wsURL = BitgetWSURL
	}
	return &BitgetAdapter{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		passphrase: passphrase,
		baseURL:    baseURL,
		wsURL:      wsURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		prices:     make(map[string]cachedPrice),
	}
}

// --- REST API ---

// sign builds the Bitget V2 request signature:
// base64(HMAC-SHA256(timestamp + method + requestPath + body)).
func (b *BitgetAdapter) sign(timestamp, method, path, body string) string {
	h := hmac.New(sha256.New, []byte(b.apiSecret))
	h.Write([]byte(timestamp + method + path + body))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func (b *BitgetAdapter) sendRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = jsonBody
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	req.Header.Set("ACCESS-KEY", b.apiKey)
	req.Header.Set("ACCESS-SIGN", b.sign(timestamp, method, path, string(body)))
	req.Header.Set("ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("ACCESS-PASSPHRASE", b.passphrase)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("bitget http %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// GetPrice returns the last traded price, preferring the websocket cache
// when it is fresh.
func (b *BitgetAdapter) GetPrice(ctx context.Context, symbol string) (float64, error) {
	b.mu.Lock()
	cached, ok := b.prices[symbol]
	b.mu.Unlock()
	if ok && time.Since(cached.at) < priceCacheTTL {
		return cached.price, nil
	}

	path := "/api/v2/mix/market/ticker?symbol=" + symbol + "&productType=" + productType
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, err
	}

	var result struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data []struct {
			LastPr string `json:"lastPr"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, err
	}
	if result.Code != "00000" || len(result.Data) == 0 {
		return 0, fmt.Errorf("bitget ticker error: code=%s msg=%s", result.Code, result.Msg)
	}

	price, err := strconv.ParseFloat(result.Data[0].LastPr, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("bitget ticker: bad price %q", result.Data[0].LastPr)
	}
	b.storePrice(symbol, price)
	return price, nil
}

// GetEquity fetches the USDT-margined futures account equity.
func (b *BitgetAdapter) GetEquity(ctx context.Context) (float64, error) {
	path := "/api/v2/mix/account/accounts?productType=" + productType
	resp, err := b.sendRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return 0, err
	}

	var result struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data []struct {
			MarginCoin    string `json:"marginCoin"`
			AccountEquity string `json:"accountEquity"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return 0, err
	}
	if result.Code != "00000" {
		return 0, fmt.Errorf("bitget account error: code=%s msg=%s", result.Code, result.Msg)
	}
	for _, acc := range result.Data {
		if acc.MarginCoin == marginCoin {
			return strconv.ParseFloat(acc.AccountEquity, 64)
		}
	}
	return 0, fmt.Errorf("bitget account: no %s account", marginCoin)
}

// GetPosition returns the exchange-side position for the symbol. A flat
// position comes back with Side NONE and zero size, not an error.
func (b *BitgetAdapter) GetPosition(ctx context.Context, symbol string) (*domain.Position, error) {
	path := "/api/v2/mix/position/single-position?symbol=" + symbol +
		"&marginCoin=" + marginCoin + "&productType=" + productType
	resp, err := b.sendRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data []struct {
			HoldSide     string `json:"holdSide"`
			Total        string `json:"total"`
			OpenPriceAvg string `json:"openPriceAvg"`
			Leverage     string `json:"leverage"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}
	if result.Code != "00000" {
		return nil, fmt.Errorf("bitget position error: code=%s msg=%s", result.Code, result.Msg)
	}
	if len(result.Data) == 0 {
		return &domain.Position{Symbol: symbol, Side: domain.SideNone}, nil
	}

	raw := result.Data[0]
	size, _ := strconv.ParseFloat(raw.Total, 64)
	entry, _ := strconv.ParseFloat(raw.OpenPriceAvg, 64)
	lev, _ := strconv.Atoi(raw.Leverage)
	if size == 0 {
		return &domain.Position{Symbol: symbol, Side: domain.SideNone}, nil
	}

	side := domain.SideLong
	if raw.HoldSide == "short" {
		side = domain.SideShort
	}
	return &domain.Position{
		Symbol:     symbol,
		Side:       side,
		Size:       size,
		EntryPrice: entry,
		Leverage:   lev,
	}, nil
}

// PlaceOrder submits a market order in one-way position mode. reduceOnly
// orders can only decrease the position, never reverse it.
func (b *BitgetAdapter) PlaceOrder(ctx context.Context, symbol string, intent domain.OrderIntent) (*domain.OrderResult, error) {
	reduceOnly := "NO"
	if intent.ReduceOnly {
		reduceOnly = "YES"
	}
	payload := map[string]any{
		"symbol":      symbol,
		"productType": productType,
		"marginCoin":  marginCoin,
		"marginMode":  "isolated",
		"orderType":   "market",
		"side":        string(intent.Side),
		"size":        strconv.FormatFloat(intent.Quantity, 'f', -1, 64),
		"reduceOnly":  reduceOnly,
		"clientOid":   uuid.NewString(),
	}

	resp, err := b.sendRequest(ctx, http.MethodPost, "/api/v2/mix/order/place-order", payload)
	if err != nil {
		return nil, err
	}

	var result struct {
		Code string `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			OrderID  string `json:"orderId"`
			PriceAvg string `json:"priceAvg"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, err
	}
	if result.Code != "00000" {
		return nil, fmt.Errorf("bitget order error: code=%s msg=%s", result.Code, result.Msg)
	}

	// Market orders do not always report an average fill price synchronously.
	fill, _ := strconv.ParseFloat(result.Data.PriceAvg, 64)
	b.logger.Info("Order placed",
		zap.String("symbol", symbol),
		zap.String("side", string(intent.Side)),
		zap.Float64("qty", intent.Quantity),
		zap.Bool("reduce_only", intent.ReduceOnly),
		zap.String("order_id", result.Data.OrderID))
	return &domain.OrderResult{OrderID: result.Data.OrderID, FilledPrice: fill}, nil
}

// --- WebSocket ---

// OnPriceUpdate registers a callback invoked on every ticker push.
func (b *BitgetAdapter) OnPriceUpdate(callback func(symbol string, price float64)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.callbacks = append(b.callbacks, callback)
}

// ConnectWS dials the public stream and subscribes to the ticker channel for
// the given symbols. Reconnects are the caller's concern; on read failure the
// connection is dropped and GetPrice falls back to REST.
func (b *BitgetAdapter) ConnectWS(symbols []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.wsConn == nil {
		c, _, err := websocket.DefaultDialer.Dial(b.wsURL, nil)
		if err != nil {
			return err
		}
		b.wsConn = c
		go b.readLoop(c)
		go b.pingLoop(c)
	}
	return b.subscribe(symbols)
}

func (b *BitgetAdapter) subscribe(symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}
	args := make([]map[string]string, 0, len(symbols))
	for _, s := range symbols {
		args = append(args, map[string]string{
			"instType": productType,
			"channel":  "ticker",
			"instId":   s,
		})
	}
	return b.wsConn.WriteJSON(map[string]any{"op": "subscribe", "args": args})
}

// pingLoop keeps the stream alive; Bitget drops connections idle for 30s.
func (b *BitgetAdapter) pingLoop(c *websocket.Conn) {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		b.mu.Lock()
		conn := b.wsConn
		b.mu.Unlock()
		if conn != c {
			return
		}
		if err := c.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
			return
		}
	}
}

func (b *BitgetAdapter) readLoop(c *websocket.Conn) {
	defer func() {
		c.Close()
		b.mu.Lock()
		if b.wsConn == c {
			b.wsConn = nil
		}
		b.mu.Unlock()
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			b.logger.Warn("WS read error, falling back to REST prices", zap.Error(err))
			return
		}
		if string(message) == "pong" {
			continue
		}

		var push struct {
			Arg struct {
				Channel string `json:"channel"`
				InstID  string `json:"instId"`
			} `json:"arg"`
			Data []struct {
				LastPr string `json:"lastPr"`
			} `json:"data"`
		}
		if err := json.Unmarshal(message, &push); err != nil {
			continue
		}
		if push.Arg.Channel != "ticker" || len(push.Data) == 0 {
			continue
		}
		price, err := strconv.ParseFloat(push.Data[0].LastPr, 64)
		if err != nil || price <= 0 {
			continue
		}

		b.storePrice(push.Arg.InstID, price)

		b.mu.Lock()
		callbacks := make([]func(string, float64), len(b.callbacks))
		copy(callbacks, b.callbacks)
		b.mu.Unlock()
		for _, cb := range callbacks {
			cb(push.Arg.InstID, price)
		}
	}
}

func (b *BitgetAdapter) storePrice(symbol string, price float64) {
	b.mu.Lock()
	b.prices[symbol] = cachedPrice{price: price, at: time.Now()}
	b.mu.Unlock()
}
