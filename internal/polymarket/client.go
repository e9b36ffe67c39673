package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// APIError is a non-2xx response from Gamma or CLOB.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("polymarket api error %d: %s", e.StatusCode, e.Message)
}

// Client talks to the Gamma and CLOB APIs.
type Client struct {
	gammaURL   string
	clobURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	pageSize      int
	maxPages      int
	rateLimitWait time.Duration
	maxThrottled  int
}

// Option configures a Client.
type Option func(*Client)

// NewClient creates a client for the given API roots.
func NewClient(gammaURL, clobURL string, opts ...Option) *Client {
	c := &Client{
		gammaURL:      strings.TrimRight(gammaURL, "/"),
		clobURL:       strings.TrimRight(clobURL, "/"),
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		limiter:       rate.NewLimiter(rate.Limit(5), 10),
		logger:        slog.Default(),
		pageSize:      1000,
		maxPages:      30,
		rateLimitWait: 10 * time.Second,
		maxThrottled:  10,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit allows rps requests per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithPaging sets the Gamma page size and page cap.
func WithPaging(pageSize, maxPages int) Option {
	return func(c *Client) {
		c.pageSize = pageSize
		c.maxPages = maxPages
	}
}

// WithRateLimitWait sets how long to pause after a 429 before retrying.
func WithRateLimitWait(d time.Duration) Option {
	return func(c *Client) {
		c.rateLimitWait = d
	}
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}
	return body, nil
}

// GammaMarkets pages through the Gamma listing until an empty page or the
// page cap. A 429 pauses and retries the same page.
func (c *Client) GammaMarkets(ctx context.Context) ([]GammaMarket, error) {
	var (
		markets   []GammaMarket
		offset    int
		throttled int
	)

	for pages := 0; pages < c.maxPages; {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(c.pageSize))
		q.Set("offset", strconv.Itoa(offset))

		body, err := c.get(ctx, c.gammaURL+"/markets?"+q.Encode())
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			throttled++
			if throttled > c.maxThrottled {
				return nil, fmt.Errorf("gamma markets offset %d: rate limited %d times: %w", offset, throttled, err)
			}
			c.logger.Warn("gamma rate limited", "offset", offset, "wait", c.rateLimitWait)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.rateLimitWait):
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("gamma markets offset %d: %w", offset, err)
		}

		var batch []GammaMarket
		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal gamma markets: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		markets = append(markets, batch...)
		offset += c.pageSize
		pages++
		c.logger.Debug("gamma page fetched", "markets", len(batch), "offset", offset)
	}

	c.logger.Info("gamma markets fetched", "total", len(markets))
	return markets, nil
}

// CLOBMarket fetches CLOB prices for one market. A market the CLOB does
// not list returns nil, nil.
func (c *Client) CLOBMarket(ctx context.Context, id string) (*CLOBMarket, error) {
	body, err := c.get(ctx, c.clobURL+"/markets/"+url.PathEscape(id))
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("clob market %s: %w", id, err)
	}

	var m CLOBMarket
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("unmarshal clob market %s: %w", id, err)
	}
	return &m, nil
}
