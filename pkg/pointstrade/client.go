// Package pointstrade provides a Go SDK for the pointstrade-server API.
package pointstrade

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
)

// Client calls the pointstrade-server REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an API client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// SubmitRedemption submits a points redemption basket and returns the
// confirmation summary.
func (c *Client) SubmitRedemption(ctx context.Context, req RedemptionRequest) (*RedemptionResponse, error) {
	var resp RedemptionResponse
	if err := c.post(ctx, "/api/redemptions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetWallet retrieves a member's wallet balances.
func (c *Client) GetWallet(ctx context.Context, memberID string) (*Wallet, error) {
	var resp Wallet
	if err := c.get(ctx, "/api/wallet/"+url.PathEscape(memberID), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetBasketOrders retrieves the order lines of one basket.
func (c *Client) GetBasketOrders(ctx context.Context, basketID string) ([]OrderLine, error) {
	var resp ordersResponse
	if err := c.get(ctx, "/api/orders?basket_id="+url.QueryEscape(basketID), &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// ListMemberOrders retrieves a member's most recent order lines, up to limit.
func (c *Client) ListMemberOrders(ctx context.Context, memberID string, limit int) ([]OrderLine, error) {
	path := "/api/orders?member_id=" + url.QueryEscape(memberID)
	if limit > 0 {
		path += "&limit=" + strconv.Itoa(limit)
	}
	var resp ordersResponse
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

// ConfirmStage reports a completed broker processing stage for a basket.
func (c *Client) ConfirmStage(ctx context.Context, req ConfirmRequest) (*ConfirmResponse, error) {
	var resp ConfirmResponse
	if err := c.post(ctx, "/api/broker/confirm", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks whether the server is up.
func (c *Client) Health(ctx context.Context) error {
	var resp healthResponse
	return c.get(ctx, "/api/health", &resp)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", req.Method, req.URL.Path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: unexpected status %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
