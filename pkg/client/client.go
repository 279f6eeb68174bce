// Package client provides a Go client for the TraceRoot HTTP API: product
// registration, custody transfers, price reconciliation, and ledger
// verification.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotFound is returned when the server reports 404 for a resource.
var ErrNotFound = errors.New("not found")

// Product mirrors the server's product representation.
type Product struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	Category          string `json:"category,omitempty"`
	Origin            string `json:"origin,omitempty"`
	Owner             string `json:"owner"`
	Status            string `json:"status"`
	RegistrationPrice string `json:"registrationPrice"`
	CurrentPrice      string `json:"currentPrice"`
	LedgerTxID        string `json:"ledgerTxId"`
	LedgerSource      string `json:"ledgerSource"`
}

// RegisterProductRequest is the payload for RegisterProduct.
type RegisterProductRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Origin      string `json:"origin,omitempty"`
	Owner       string `json:"owner"`
	Price       string `json:"price,omitempty"`
}

// Confirmation mirrors the server's verification result.
type Confirmation struct {
	Verified  bool      `json:"verified"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source,omitempty"`
}

// TransactionRecord mirrors one normalized ledger record.
type TransactionRecord struct {
	TxID      string         `json:"txId"`
	Timestamp time.Time      `json:"timestamp"`
	Type      string         `json:"type"`
	Actor     string         `json:"actor"`
	Payload   map[string]any `json:"payload,omitempty"`
	Source    string         `json:"source"`
}

// PricePoint mirrors one reconciled price observation.
type PricePoint struct {
	ProductID string    `json:"productId"`
	Price     string    `json:"price"`
	Notes     string    `json:"notes,omitempty"`
	Actor     string    `json:"actor,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// PriceUpdateResult mirrors the server's price update outcome.
type PriceUpdateResult struct {
	Updated bool   `json:"updated"`
	TxHash  string `json:"txHash"`
	Source  string `json:"source"`
}

// ProbeResult mirrors the backend reachability probe.
type ProbeResult struct {
	Backend    string `json:"backend"`
	Reachable  bool   `json:"reachable"`
	HTTPStatus int    `json:"httpStatus,omitempty"`
	ErrorClass string `json:"errorClass,omitempty"`
}

// Client is the TraceRoot API entry point.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout (default 30s).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// New creates a Client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterProduct registers a new product.
func (c *Client) RegisterProduct(ctx context.Context, req RegisterProductRequest) (*Product, error) {
	var product Product
	if err := c.do(ctx, http.MethodPost, "/api/v1/products", req, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// GetProduct fetches one product by ID.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	var product Product
	if err := c.do(ctx, http.MethodGet, "/api/v1/products/"+id, nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts fetches a page of products.
func (c *Client) ListProducts(ctx context.Context, limit, offset int) ([]Product, error) {
	var resp struct {
		Products []Product `json:"products"`
	}
	path := fmt.Sprintf("/api/v1/products?limit=%d&offset=%d", limit, offset)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}

// Transfer records a change of custody for a product.
func (c *Client) Transfer(ctx context.Context, id, newOwner, location, notes, actor string) error {
	req := map[string]string{"newOwner": newOwner, "location": location, "notes": notes, "actor": actor}
	return c.do(ctx, http.MethodPost, "/api/v1/products/"+id+"/transfer", req, nil)
}

// UpdateStatus records a lifecycle status change for a product.
func (c *Client) UpdateStatus(ctx context.Context, id, status, notes, actor string) error {
	req := map[string]string{"status": status, "notes": notes, "actor": actor}
	return c.do(ctx, http.MethodPost, "/api/v1/products/"+id+"/status", req, nil)
}

// Trace returns a product's on-ledger history.
func (c *Client) Trace(ctx context.Context, id string) ([]TransactionRecord, error) {
	var resp struct {
		Ledger []TransactionRecord `json:"ledger"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/products/"+id+"/trace", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Ledger, nil
}

// Verify checks a transaction identifier against the ledger.
func (c *Client) Verify(ctx context.Context, txID string) (*Confirmation, error) {
	var conf Confirmation
	if err := c.do(ctx, http.MethodGet, "/api/v1/ledger/verify/"+txID, nil, &conf); err != nil {
		return nil, err
	}
	return &conf, nil
}

// LatestPrice returns the reconciled current price for a product.
func (c *Client) LatestPrice(ctx context.Context, id string) (*PricePoint, error) {
	var point PricePoint
	if err := c.do(ctx, http.MethodGet, "/api/v1/products/"+id+"/price", nil, &point); err != nil {
		return nil, err
	}
	return &point, nil
}

// PriceHistory returns the reconciled price history for a product.
func (c *Client) PriceHistory(ctx context.Context, id string) ([]PricePoint, error) {
	var resp struct {
		History []PricePoint `json:"history"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/products/"+id+"/price/history", nil, &resp); err != nil {
		return nil, err
	}
	return resp.History, nil
}

// UpdatePrice records a new price for a product.
func (c *Client) UpdatePrice(ctx context.Context, id, price, notes, actor string) (*PriceUpdateResult, error) {
	req := map[string]string{"price": price, "notes": notes, "actor": actor}
	var res PriceUpdateResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/products/"+id+"/price", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Probe reports the active ledger backend's reachability.
func (c *Client) Probe(ctx context.Context) (*ProbeResult, error) {
	var res ProbeResult
	if err := c.do(ctx, http.MethodGet, "/api/v1/ledger/probe", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// do sends one JSON request and decodes the JSON response into out.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
