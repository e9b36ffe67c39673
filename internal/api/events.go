package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// GetEvents fetches a page of events.
func (c *Client) GetEvents(ctx context.Context, opts GetEventsOptions) (*EventsResponse, error) {
	query := url.Values{}

	if opts.Limit > 0 {
		query.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Cursor != "" {
		query.Set("cursor", opts.Cursor)
	}
	if opts.SeriesTicker != "" {
		query.Set("series_ticker", opts.SeriesTicker)
	}
	if opts.Status != "" {
		query.Set("status", opts.Status)
	}

	var resp EventsResponse
	if err := c.get(ctx, "/events", query, &resp); err != nil {
		return nil, fmt.Errorf("get events: %w", err)
	}

	return &resp, nil
}

// GetAllEvents fetches all events with the given status ("" for any) by
// paginating through results.
// Uses DefaultPaginationTimeout (10m) if the context has no deadline.
func (c *Client) GetAllEvents(ctx context.Context, status string) ([]APIEvent, error) {
	ctx, cancel := withPaginationTimeout(ctx)
	defer cancel()

	var allEvents []APIEvent
	opts := GetEventsOptions{Limit: MaxPageSize, Status: status}

	for {
		resp, err := c.GetEvents(ctx, opts)
		if err != nil {
			return nil, err
		}

		allEvents = append(allEvents, resp.Events...)

		if resp.Cursor == "" || len(resp.Events) == 0 {
			break
		}
		opts.Cursor = resp.Cursor
	}

	return allEvents, nil
}

// GetEvent fetches a single event by ticker.
func (c *Client) GetEvent(ctx context.Context, eventTicker string) (*APIEvent, error) {
	var resp SingleEventResponse
	if err := c.get(ctx, "/events/"+url.PathEscape(eventTicker), nil, &resp); err != nil {
		return nil, fmt.Errorf("get event %s: %w", eventTicker, err)
	}
	return &resp.Event, nil
}
