package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type AuthResponse struct {
	Token string `json:"token"`
	ID    string `json:"id"`
}

func (c *Client) Signup(ctx context.Context, id, password, name string) (AuthResponse, error) {
	var out AuthResponse
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/signup", "", map[string]any{
		"id":       id,
		"password": password,
		"name":     name,
	}, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, id, password string) (AuthResponse, error) {
	var out AuthResponse
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"id":       id,
		"password": password,
	}, &out)
	return out, err
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.jsonRequest(ctx, http.MethodPost, "/v1/auth/logout", token, nil, nil)
}

func (c *Client) Dashboard(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/dashboard", token, nil, &out)
	return out, err
}

func (c *Client) Market(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/market", token, nil, &out)
	return out, err
}

func (c *Client) MarketHistory(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/market/history", token, nil, &out)
	return out, err
}

func (c *Client) Trade(ctx context.Context, token, side, code string, quantity int64) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/stocks/"+side, token, map[string]any{
		"code":     code,
		"quantity": quantity,
	}, &out)
	return out, err
}

func (c *Client) Shop(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/shop", token, nil, &out)
	return out, err
}

func (c *Client) ShopBuy(ctx context.Context, token, item string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/shop/buy", token, map[string]any{"item": item}, &out)
	return out, err
}

func (c *Client) ItemUse(ctx context.Context, token, item string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/items/use", token, map[string]any{"item": item}, &out)
	return out, err
}

func (c *Client) GateNew(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/games/gates/new", token, nil, &out)
	return out, err
}

func (c *Client) GateAnswer(ctx context.Context, token string, challenge map[string]any, answer bool) (map[string]any, error) {
	body := map[string]any{"answer": answer}
	for k, v := range challenge {
		body[k] = v
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/gates", token, body, &out)
	return out, err
}

func (c *Client) SortNew(ctx context.Context, token string, size int) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, fmt.Sprintf("/v1/games/sort/new?size=%d", size), token, nil, &out)
	return out, err
}

func (c *Client) SortResolve(ctx context.Context, token string, values []int, strikes []int) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/sort", token, map[string]any{
		"values":  values,
		"strikes": strikes,
	}, &out)
	return out, err
}

func (c *Client) HexNew(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/games/hex/new", token, nil, &out)
	return out, err
}

func (c *Client) HexAnswer(ctx context.Context, token, encoded, answer string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/hex", token, map[string]any{
		"encoded": encoded,
		"answer":  answer,
	}, &out)
	return out, err
}

func (c *Client) Malloc(ctx context.Context, token string, size int, actions []map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/games/malloc", token, map[string]any{
		"size":    size,
		"actions": actions,
	}, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, token string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
