package recordstore

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pquerna/otp/totp"

	"tradepilot/internal/model"
)

// Client implements Store against the record store's REST API.
// Authentication mirrors broker-style session login: the API key rides on
// every request, and a session token is minted from client code + a TOTP
// generated from the shared secret. On a 401 the client re-logs-in once
// and replays the request.
type Client struct {
	http       *resty.Client
	clientCode string
	totpSecret string

	mu    sync.Mutex
	token string
}

// Config for the record store client.
type Config struct {
	BaseURL    string
	APIKey     string
	ClientCode string
	TOTPSecret string
	Timeout    time.Duration // default 10s
}

// NewClient builds a record store client. It does not log in eagerly; the
// first request triggers the session handshake.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		clientCode: cfg.ClientCode,
		totpSecret: cfg.TOTPSecret,
	}
	c.http = resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("X-Api-Key", cfg.APIKey)
	return c
}

type sessionResponse struct {
	Token string `json:"token"`
}

// login mints a fresh session token using the current TOTP code.
func (c *Client) login(ctx context.Context) error {
	code, err := totp.GenerateCode(c.totpSecret, time.Now())
	if err != nil {
		return fmt.Errorf("recordstore: totp: %w", err)
	}

	var body sessionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"client_code": c.clientCode,
			"totp":        code,
		}).
		SetResult(&body).
		Post("/auth/session")
	if err != nil {
		return fmt.Errorf("recordstore: login: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("recordstore: login: status %d", resp.StatusCode())
	}
	if body.Token == "" {
		return fmt.Errorf("recordstore: login: empty token")
	}

	c.mu.Lock()
	c.token = body.Token
	c.mu.Unlock()
	log.Printf("[recordstore] session established for %s", c.clientCode)
	return nil
}

// do runs an authenticated request, logging in lazily and retrying exactly
// once after a 401.
func (c *Client) do(ctx context.Context, build func(*resty.Request) *resty.Request) (*resty.Response, error) {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token == "" {
		if err := c.login(ctx); err != nil {
			return nil, err
		}
		c.mu.Lock()
		token = c.token
		c.mu.Unlock()
	}

	req := build(c.http.R().SetContext(ctx)).SetAuthToken(token)
	resp, err := req.Execute(req.Method, req.URL)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode() == 401 {
		if err := c.login(ctx); err != nil {
			return nil, err
		}
		c.mu.Lock()
		token = c.token
		c.mu.Unlock()
		req = build(c.http.R().SetContext(ctx)).SetAuthToken(token)
		return req.Execute(req.Method, req.URL)
	}
	return resp, nil
}

func (c *Client) ListTrades(ctx context.Context, board string) ([]model.TradeRecord, error) {
	var trades []model.TradeRecord
	resp, err := c.do(ctx, func(r *resty.Request) *resty.Request {
		r.Method = "GET"
		r.URL = "/boards/" + board + "/trades"
		return r.SetResult(&trades)
	})
	if err != nil {
		return nil, fmt.Errorf("recordstore: list trades: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("recordstore: list trades: status %d", resp.StatusCode())
	}
	return trades, nil
}

func (c *Client) CreateTrade(ctx context.Context, trade model.TradeRecord) (model.TradeRecord, error) {
	var created model.TradeRecord
	resp, err := c.do(ctx, func(r *resty.Request) *resty.Request {
		r.Method = "POST"
		r.URL = "/boards/" + trade.Board + "/trades"
		return r.SetBody(trade).SetResult(&created)
	})
	if err != nil {
		return model.TradeRecord{}, fmt.Errorf("recordstore: create trade %s: %w", trade.Symbol, err)
	}
	if resp.IsError() {
		return model.TradeRecord{}, fmt.Errorf("recordstore: create trade %s: status %d", trade.Symbol, resp.StatusCode())
	}
	return created, nil
}

func (c *Client) PatchTrade(ctx context.Context, id string, patch TradePatch) error {
	resp, err := c.do(ctx, func(r *resty.Request) *resty.Request {
		r.Method = "PATCH"
		r.URL = "/trades/" + id
		return r.SetBody(patch)
	})
	if err != nil {
		return fmt.Errorf("recordstore: patch trade %s: %w", id, err)
	}
	if resp.IsError() {
		return fmt.Errorf("recordstore: patch trade %s: status %d", id, resp.StatusCode())
	}
	return nil
}

func (c *Client) ExitTrade(ctx context.Context, id string) error {
	resp, err := c.do(ctx, func(r *resty.Request) *resty.Request {
		r.Method = "POST"
		r.URL = "/trades/" + id + "/exit"
		return r
	})
	if err != nil {
		return fmt.Errorf("recordstore: exit trade %s: %w", id, err)
	}
	if resp.IsError() {
		return fmt.Errorf("recordstore: exit trade %s: status %d", id, resp.StatusCode())
	}
	return nil
}

func (c *Client) GetAccount(ctx context.Context, board string) (Account, error) {
	var acct Account
	resp, err := c.do(ctx, func(r *resty.Request) *resty.Request {
		r.Method = "GET"
		r.URL = "/boards/" + board + "/account"
		return r.SetResult(&acct)
	})
	if err != nil {
		return Account{}, fmt.Errorf("recordstore: account: %w", err)
	}
	if resp.IsError() {
		return Account{}, fmt.Errorf("recordstore: account: status %d", resp.StatusCode())
	}
	return acct, nil
}

func (c *Client) DeductBalance(ctx context.Context, board string, amount float64) error {
	resp, err := c.do(ctx, func(r *resty.Request) *resty.Request {
		r.Method = "POST"
		r.URL = "/boards/" + board + "/balance/deduct"
		return r.SetBody(map[string]float64{"amount": amount})
	})
	if err != nil {
		return fmt.Errorf("recordstore: deduct balance: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("recordstore: deduct balance: status %d", resp.StatusCode())
	}
	return nil
}

func (c *Client) AppendJournal(ctx context.Context, tradeID string, kind JournalType, text string) error {
	resp, err := c.do(ctx, func(r *resty.Request) *resty.Request {
		r.Method = "POST"
		r.URL = "/trades/" + tradeID + "/journal"
		return r.SetBody(map[string]string{"type": string(kind), "text": text})
	})
	if err != nil {
		return fmt.Errorf("recordstore: journal %s: %w", tradeID, err)
	}
	if resp.IsError() {
		return fmt.Errorf("recordstore: journal %s: status %d", tradeID, resp.StatusCode())
	}
	return nil
}
