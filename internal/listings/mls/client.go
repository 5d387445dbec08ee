// Package mls talks to the external listing authority. The authority is
// the source of truth for listing status; this client only reads.
package mls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sngor/bayon-backend/internal/listings/domain"
	"github.com/sngor/bayon-backend/platform/config"

	"github.com/cenkalti/backoff/v4"
)

// ErrAuthRejected marks a credential failure. It is terminal for the
// whole connection: retrying other listings on the same credentials
// would only burn quota.
var ErrAuthRejected = errors.New("listing authority rejected credentials")

// StatusResult is one listing's externally reported state.
type StatusResult struct {
	Status domain.ListingStatus `json:"status"`
	AsOf   time.Time            `json:"asOf"`
}

// Client fetches listing statuses with bounded retry. Transient errors
// and 429s back off exponentially; auth failures and other HTTP errors
// are permanent.
type Client struct {
	http *http.Client
}

func NewClient(cfg config.MLSConfig) *Client {
	return &Client{
		http: &http.Client{Timeout: cfg.GetMLSRequestTimeout()},
	}
}

// FetchStatus asks the connection's authority for one listing's status.
func (c *Client) FetchStatus(ctx context.Context, conn domain.Connection, externalID string) (StatusResult, error) {
	endpoint := fmt.Sprintf("%s/listings/%s/status", conn.APIBaseURL, externalID)

	var result StatusResult
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Bearer "+conn.AccessToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			// Network errors are retryable.
			return fmt.Errorf("fetch listing status: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return fmt.Errorf("rate limited by listing authority")
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return backoff.Permanent(ErrAuthRejected)
		case resp.StatusCode >= 500:
			return fmt.Errorf("listing authority returned %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return backoff.Permanent(fmt.Errorf("listing authority returned %d: %s", resp.StatusCode, body))
		}

		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return backoff.Permanent(fmt.Errorf("decode status response: %w", err))
		}
		if !result.Status.Valid() {
			return backoff.Permanent(fmt.Errorf("unknown listing status %q", result.Status))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return StatusResult{}, err
	}
	return result, nil
}
