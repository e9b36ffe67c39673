package api

import (
	"context"
	"fmt"
	"time"
)

// DefaultPaginationTimeout bounds a full cursor walk when the caller's
// context has no deadline.
const DefaultPaginationTimeout = 10 * time.Minute

// GetExchangeStatus reports whether the exchange is open for trading.
func (c *Client) GetExchangeStatus(ctx context.Context) (*ExchangeStatusResponse, error) {
	var resp ExchangeStatusResponse
	if err := c.get(ctx, "/exchange/status", nil, &resp); err != nil {
		return nil, fmt.Errorf("get exchange status: %w", err)
	}
	return &resp, nil
}

// withPaginationTimeout applies DefaultPaginationTimeout when ctx has no
// deadline.
func withPaginationTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, DefaultPaginationTimeout)
}
