package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"tradepilot/internal/model"
)

// Client talks to a Binance-compatible REST API.
type Client struct {
	http *resty.Client
}

// NewClient creates a market data client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(10 * time.Second).
			SetRetryCount(1),
	}
}

// GetCandles fetches klines. The provider returns each bar as a positional
// JSON array: [openTime, open, high, low, close, volume, closeTime, ...],
// with prices encoded as strings.
func (c *Client) GetCandles(ctx context.Context, symbol, timeframe string, limit int) (model.Series, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   symbol,
			"interval": timeframe,
			"limit":    strconv.Itoa(limit),
		}).
		Get("/api/v3/klines")
	if err != nil {
		return nil, fmt.Errorf("marketdata: klines %s: %w", symbol, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("marketdata: klines %s: status %d", symbol, resp.StatusCode())
	}

	var raw [][]json.RawMessage
	if err := json.Unmarshal(resp.Body(), &raw); err != nil {
		return nil, fmt.Errorf("marketdata: klines %s: decode: %w", symbol, err)
	}

	series := make(model.Series, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			continue
		}
		var openMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			continue
		}
		candle := model.Candle{
			Symbol: symbol,
			TS:     time.UnixMilli(openMs).UTC(),
		}
		fields := []*float64{&candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume}
		ok := true
		for i, dst := range fields {
			v, err := parsePriceField(row[i+1])
			if err != nil {
				ok = false
				break
			}
			*dst = v
		}
		if ok {
			series = append(series, candle)
		}
	}
	return series, nil
}

// fundingResponse is the premium-index payload; the rate arrives as a string.
type fundingResponse struct {
	Symbol          string `json:"symbol"`
	LastFundingRate string `json:"lastFundingRate"`
}

// GetFundingRate returns the symbol's latest funding rate. A 4xx response
// means the symbol has no perpetual market: that is nil, not an error.
func (c *Client) GetFundingRate(ctx context.Context, symbol string) (*float64, error) {
	var body fundingResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&body).
		Get("/fapi/v1/premiumIndex")
	if err != nil {
		return nil, fmt.Errorf("marketdata: funding %s: %w", symbol, err)
	}
	if resp.StatusCode() >= 400 && resp.StatusCode() < 500 {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("marketdata: funding %s: status %d", symbol, resp.StatusCode())
	}
	rate, err := strconv.ParseFloat(body.LastFundingRate, 64)
	if err != nil {
		return nil, nil
	}
	return &rate, nil
}

// parsePriceField decodes a numeric field that may arrive as a JSON string.
func parsePriceField(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}
