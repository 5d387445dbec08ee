// Package social talks to the social platform gateway used to take
// down listing promotions.
package social

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sngor/bayon-backend/platform/config"
	"github.com/sngor/bayon-backend/platform/logger"
)

var ErrNotConfigured = errors.New("social gateway is not configured")

// Client deletes platform posts through the gateway. A nil-config
// client refuses every call instead of panicking, mirroring how the
// SMS sender degrades.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

func NewClient(cfg config.SocialConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL: cfg.GetSocialAPIBaseURL(),
		http:    &http.Client{Timeout: cfg.GetSocialRequestTimeout()},
		log:     log,
	}
}

// DeletePost removes one published post. Idempotent on the platform
// side: a 404 for an already-deleted post counts as success.
func (c *Client) DeletePost(ctx context.Context, platform, accessToken, platformPostID string) error {
	if c.baseURL == "" {
		return ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/%s/posts/%s", c.baseURL, platform, platformPostID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delete %s post: %w", platform, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		c.log.Info("post already gone on platform", "platform", platform, "post_id", platformPostID)
		return nil
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("delete %s post: status %d: %s", platform, resp.StatusCode, body)
	}
}
