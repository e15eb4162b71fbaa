// Package dexscreener is the quote source adapter for the DexScreener pairs
// API. It does not retry: a failed lookup becomes a stale quote and the next
// refresh cycle tries again.
package dexscreener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dex_watch/internal/domain"
	"dex_watch/internal/infra"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/ratelimit"
)

const (
	DefaultBaseURL = "https://api.dexscreener.com/latest/dex/pairs"
	DefaultChain   = "solana"

	maxBodyBytes = 1 << 20
	symbolPrefix = 6
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=dexscreener_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client fetches quotes and metadata for pair ids.
type Client struct {
	baseURL    string
	chain      string
	httpClient HTTPClient
	limiter    ratelimit.Limiter
	breaker    *gobreaker.CircuitBreaker
	metrics    *infra.Metrics
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the pairs endpoint base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithChain sets the chain segment of the lookup path.
func WithChain(chain string) Option {
	return func(c *Client) {
		c.chain = chain
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit paces outgoing requests to perMinute. Zero disables pacing.
func WithRateLimit(perMinute int) Option {
	return func(c *Client) {
		if perMinute <= 0 {
			c.limiter = ratelimit.NewUnlimited()
			return
		}
		c.limiter = ratelimit.New(perMinute, ratelimit.Per(time.Minute), ratelimit.WithoutSlack)
	}
}

// WithBreaker opens the circuit after maxFailures consecutive transport
// failures and probes again after openFor.
func WithBreaker(maxFailures uint32, openFor time.Duration) Option {
	return func(c *Client) {
		c.breaker = newBreaker(maxFailures, openFor, c)
	}
}

// WithMetrics records fetch latency, failures and circuit state.
func WithMetrics(m *infra.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new DexScreener client.
func NewClient(options ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		chain:   DefaultChain,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: ratelimit.NewUnlimited(),
		metrics: infra.GlobalMetrics,
		now:     time.Now,
	}
	for _, option := range options {
		option(c)
	}
	if c.breaker == nil {
		c.breaker = newBreaker(5, 30*time.Second, c)
	}
	return c
}

func newBreaker(maxFailures uint32, openFor time.Duration, c *Client) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "dexscreener",
		Timeout: openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				slog.Warn("Quote source seems down, stop allowing requests", slog.String("breaker", name))
			}
			if from == gobreaker.StateOpen && to == gobreaker.StateHalfOpen {
				slog.Info("Checking quote source status", slog.String("breaker", name))
			}
			if from == gobreaker.StateHalfOpen && to == gobreaker.StateClosed {
				slog.Info("Quote source seems ok, restart allowing requests", slog.String("breaker", name))
			}
			if c.metrics != nil {
				c.metrics.SetCircuitState(to == gobreaker.StateOpen)
			}
		},
	})
}

// FetchOne returns the current quote for id. Every failure, including an
// unknown id or an open circuit, yields a stale quote.
func (c *Client) FetchOne(ctx context.Context, id string) domain.Quote {
	start := c.now()
	p, err := c.lookup(ctx, id)
	if c.metrics != nil {
		c.metrics.RecordFetch(c.now().Sub(start).Nanoseconds())
	}
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordError()
		}
		slog.Warn("Quote fetch failed", slog.String("id", id), slog.Any("error", err))
		return domain.StaleQuote(c.now())
	}
	if p == nil {
		slog.Debug("Quote source has no pair", slog.String("id", id))
		return domain.StaleQuote(c.now())
	}
	return toQuote(p, c.now())
}

// ResolveMeta returns display fields for id. It fails with domain.ErrNotFound
// for unknown ids and with a *domain.NetworkError for transport failures.
func (c *Client) ResolveMeta(ctx context.Context, id string) (domain.ItemMeta, error) {
	p, err := c.lookup(ctx, id)
	if err != nil {
		return domain.ItemMeta{}, err
	}
	if p == nil {
		return domain.ItemMeta{}, fmt.Errorf("resolve %s: %w", id, domain.ErrNotFound)
	}

	meta := domain.ItemMeta{
		Symbol:      p.BaseToken.Symbol,
		BaseAddress: p.BaseToken.Address,
	}
	if meta.Symbol == "" {
		meta.Symbol = fallbackSymbol(id)
	}
	if p.Info != nil {
		meta.Icon = p.Info.ImageURL
	}
	return meta, nil
}

// unreached carries a failure that says nothing about upstream health.
type unreached struct{ err error }

// lookup returns the first pair for id, nil when the source has none, or a
// transport error. Only retriable transport errors count against the breaker.
func (c *Client) lookup(ctx context.Context, id string) (*pair, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrEmptyID
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		c.limiter.Take()
		p, err := c.doFetch(ctx, id)
		if err != nil && !domain.IsRetriable(err) {
			return unreached{err}, nil
		}
		return p, err
	})
	if u, ok := res.(unreached); ok {
		return nil, u.err
	}
	if err != nil {
		var ne *domain.NetworkError
		if errors.As(err, &ne) {
			return nil, ne
		}
		// gobreaker.ErrOpenState / ErrTooManyRequests
		return nil, domain.NewNetworkError("breaker", err)
	}
	p, _ := res.(*pair)
	return p, nil
}

func (c *Client) doFetch(ctx context.Context, id string) (*pair, error) {
	endpoint := fmt.Sprintf("%s/%s/%s", c.baseURL, url.PathEscape(c.chain), url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, domain.NewFatalNetworkError("request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", infra.DefaultUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// cancelled by the caller, not an upstream fault
			return nil, domain.NewFatalNetworkError("fetch", err)
		}
		return nil, domain.NewNetworkError("fetch", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewNetworkError("fetch", fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, domain.NewNetworkError("read", err)
	}

	var data pairsResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, domain.NewNetworkError("decode", err)
	}
	if len(data.Pairs) == 0 {
		return nil, nil
	}
	return &data.Pairs[0], nil
}

func toQuote(p *pair, now time.Time) domain.Quote {
	var price, change *decimal.Decimal
	if p.PriceUsd != "" {
		if d, err := decimal.NewFromString(p.PriceUsd); err == nil {
			price = &d
		}
	}
	if p.PriceChange != nil && p.PriceChange.H24 != nil {
		d := decimal.NewFromFloat(*p.PriceChange.H24)
		change = &d
	}
	return domain.NewQuote(price, change, now)
}

func fallbackSymbol(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > symbolPrefix {
		return id[:symbolPrefix]
	}
	return id
}
