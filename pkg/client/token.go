package client

import (
	"context"

	"github.com/larsfn/minterra/internal/api"
	"github.com/larsfn/minterra/internal/buildinfo"
)

// ExchangeToken exchanges a run's caller token for a short-lived cloud access
// token. Each call mints a fresh token.
func (c *Client) ExchangeToken(ctx context.Context, runID, callerToken string) (*api.ExchangeResponse, error) {
	payload := api.ExchangePayload{
		RunID: runID,
		Token: callerToken,
	}
	var resp api.ExchangeResponse
	if err := c.post(ctx, api.ExchangeTokenRoute, payload, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Info fetches service build information.
func (c *Client) Info(ctx context.Context) (*buildinfo.Info, error) {
	var info buildinfo.Info
	if err := c.get(ctx, api.InfoRoute, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
