package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dex_watch/internal/domain"
)

// Client talks to a running daemon's settings API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the daemon listening at addr
// (host:port or a full URL).
func NewClient(addr string) *Client {
	base := addr
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// List returns the watch-list.
func (c *Client) List(ctx context.Context) ([]domain.Item, error) {
	var out itemsBody
	if err := c.do(ctx, http.MethodGet, "/api/watchlist", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Add resolves and appends id.
func (c *Client) Add(ctx context.Context, id string) (domain.Item, error) {
	var out itemBody
	if err := c.do(ctx, http.MethodPost, "/api/watchlist", addBody{ID: id}, &out); err != nil {
		return domain.Item{}, err
	}
	return out.Item, nil
}

// Remove drops id.
func (c *Client) Remove(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/watchlist/"+url.PathEscape(id), nil, nil)
}

// Replace overwrites the watch-list.
func (c *Client) Replace(ctx context.Context, items []domain.Item) ([]domain.Item, error) {
	var out itemsBody
	if err := c.do(ctx, http.MethodPut, "/api/watchlist", itemsBody{Items: items}, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// Quotes returns the quote cache.
func (c *Client) Quotes(ctx context.Context) (domain.QuoteMap, error) {
	var out quotesBody
	if err := c.do(ctx, http.MethodGet, "/api/quotes", nil, &out); err != nil {
		return nil, err
	}
	return out.Quotes, nil
}

// Rows returns the display rows for the current state.
func (c *Client) Rows(ctx context.Context) ([]domain.Row, error) {
	var out rowsBody
	if err := c.do(ctx, http.MethodGet, "/api/rows", nil, &out); err != nil {
		return nil, err
	}
	return out.Rows, nil
}

// Widget reports the overlay flag.
func (c *Client) Widget(ctx context.Context) (bool, error) {
	var out widgetBody
	if err := c.do(ctx, http.MethodGet, "/api/widget", nil, &out); err != nil {
		return false, err
	}
	return out.Enabled != nil && *out.Enabled, nil
}

// SetWidget writes the overlay flag.
func (c *Client) SetWidget(ctx context.Context, enabled bool) error {
	return c.do(ctx, http.MethodPut, "/api/widget", widgetBody{Enabled: &enabled}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewNetworkError("settings", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e errorBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&e)
		return fromStatus(resp.StatusCode, e.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// APIError is a non-2xx settings API response. It unwraps to the domain
// error the status code stands for.
type APIError struct {
	Status  int
	Message string
	kind    error
}

func (e *APIError) Error() string {
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.kind
}

// fromStatus maps an API error response back to the domain error it came from.
func fromStatus(status int, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
	}
	e := &APIError{Status: status, Message: msg}
	switch status {
	case http.StatusConflict:
		e.kind = domain.ErrDuplicate
	case http.StatusUnprocessableEntity:
		e.kind = domain.ErrCapacityExceeded
	case http.StatusNotFound:
		e.kind = domain.ErrNotFound
	case http.StatusBadGateway:
		return domain.NewNetworkError("upstream", e)
	}
	return e
}
