package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// NewClient creates a Client of the verification endpoint at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		url:    baseURL + "/verify-payment",
		client: &http.Client{Timeout: timeout},
	}
}

// Client calls the backend payment verification endpoint.
type Client struct {
	url    string
	client *http.Client
}

// Verify asks the backend to verify reference. A well-formed response is
// returned as-is, including unsuccessful verifications.
func (c Client) Verify(ctx context.Context, reference string) (*Verification, error) {
	b, err := json.Marshal(struct {
		Reference string `json:"reference"`
	}{Reference: reference})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("create verify request; error: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("verify payment; error: %w", err)
	}
	defer resp.Body.Close()

	var verification Verification
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&verification); err != nil {
		return nil, fmt.Errorf("decode verification; status: %d, error: %w", resp.StatusCode, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		verification.Success = false
	}
	return &verification, nil
}
