package vincere

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/ignite/talent-bridge/internal/config"
	"github.com/ignite/talent-bridge/internal/pkg/httpretry"
)

// Client is the Vincere ATS API client. All requests go through the
// AuthGuard, which handles expired bearer tokens transparently.
type Client struct {
	baseURL    string
	guard      *AuthGuard
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new Vincere API client.
func NewClient(cfg config.VincereConfig, guard *AuthGuard) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		guard:   guard,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// FetchSlice retrieves one zero-indexed page of a talent pool's members.
// A 401/403 triggers a single token refresh-and-retry inside the guard;
// any remaining non-2xx surfaces as *APIError.
func (c *Client) FetchSlice(ctx context.Context, ownerKey, poolID string, index int) (*SlicePage, error) {
	reqURL := fmt.Sprintf("%s/api/v2/talentpool/%s/user?index=%d", c.baseURL, poolID, index)

	resp, err := c.guard.Do(ctx, ownerKey, func(accessToken string) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build slice request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+accessToken)
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch slice %d of pool %s: %w", index, poolID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read slice response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncateBody(body)}
	}

	var page SlicePage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("parse slice response: %w", err)
	}

	page.Total = page.TotalElements
	if page.Total == nil {
		if h := resp.Header.Get("X-Total-Count"); h != "" {
			if n, err := strconv.Atoi(h); err == nil {
				page.Total = &n
			}
		}
	}

	return &page, nil
}

// truncateBody keeps error messages readable when upstream returns HTML
// error pages.
func truncateBody(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
