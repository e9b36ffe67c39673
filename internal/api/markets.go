package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// MaxPageSize is the largest page the markets and events endpoints return.
const MaxPageSize = 1000

// GetMarkets fetches a page of markets.
func (c *Client) GetMarkets(ctx context.Context, opts GetMarketsOptions) (*MarketsResponse, error) {
	query := url.Values{}

	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		query.Set("cursor", opts.Cursor)
	}
	if opts.EventTicker != "" {
		query.Set("event_ticker", opts.EventTicker)
	}
	if opts.SeriesTicker != "" {
		query.Set("series_ticker", opts.SeriesTicker)
	}
	if len(opts.Tickers) > 0 {
		query.Set("tickers", strings.Join(opts.Tickers, ","))
	}
	if opts.Status != "" {
		query.Set("status", opts.Status)
	}

	var resp MarketsResponse
	if err := c.get(ctx, "/markets", query, &resp); err != nil {
		return nil, fmt.Errorf("get markets: %w", err)
	}

	return &resp, nil
}

// GetOpenMarkets fetches every market currently open for trading.
func (c *Client) GetOpenMarkets(ctx context.Context) ([]APIMarket, error) {
	return c.GetAllMarketsWithOptions(ctx, GetMarketsOptions{Status: StatusOpen})
}

// GetAllMarketsWithOptions fetches all markets matching the given options.
func (c *Client) GetAllMarketsWithOptions(ctx context.Context, opts GetMarketsOptions) ([]APIMarket, error) {
	ctx, cancel := withPaginationTimeout(ctx)
	defer cancel()

	var allMarkets []APIMarket
	opts.Limit = MaxPageSize

	for {
		resp, err := c.GetMarkets(ctx, opts)
		if err != nil {
			return nil, err
		}

		allMarkets = append(allMarkets, resp.Markets...)

		if resp.Cursor == "" || len(resp.Markets) == 0 {
			break
		}
		opts.Cursor = resp.Cursor
	}

	return allMarkets, nil
}

// GetMarket fetches a single market by ticker.
func (c *Client) GetMarket(ctx context.Context, ticker string) (*APIMarket, error) {
	var resp SingleMarketResponse
	if err := c.get(ctx, "/markets/"+url.PathEscape(ticker), nil, &resp); err != nil {
		return nil, fmt.Errorf("get market %s: %w", ticker, err)
	}
	return &resp.Market, nil
}
