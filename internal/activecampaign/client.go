package activecampaign

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ignite/talent-bridge/internal/config"
	"github.com/ignite/talent-bridge/internal/pkg/httpretry"
)

// Client is the ActiveCampaign API client
type Client struct {
	baseURL    string
	apiToken   string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new ActiveCampaign API client
func NewClient(cfg config.ActiveCampaignConfig) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		apiToken: cfg.APIToken,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// BulkImport forwards one chunk of contacts to the bulk-import endpoint.
// Tag and list ids are optional; automations are always excluded.
func (c *Client) BulkImport(ctx context.Context, contacts []Contact, tag string, listIDs []int) error {
	req := BulkImportRequest{
		Contacts:           contacts,
		ExcludeAutomations: true,
	}
	if tag != "" {
		req.Tags = []string{tag}
	}
	for _, id := range listIDs {
		req.Subscribe = append(req.Subscribe, SubscribeTo{ListID: id})
	}

	_, err := c.doRequest(ctx, http.MethodPost, "/api/3/import/bulk_import", req)
	return err
}

// doRequest performs an authenticated request to the ActiveCampaign API
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Token", c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}
