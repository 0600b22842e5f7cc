package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// GatewayClient talks to the mobile push gateway: one POST carrying the
// full recipient token list and the payload as its data object.
type GatewayClient struct {
	url    string
	apiKey string
	client *http.Client
}

// NewGatewayClient creates a gateway client authenticated by apiKey.
func NewGatewayClient(url, apiKey string, timeout time.Duration) *GatewayClient {
	return &GatewayClient{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

type gatewayRequest struct {
	RegistrationIDs []string        `json:"registration_ids"`
	Data            json.RawMessage `json:"data"`
}

// Send submits one batched notification addressed to all tokens.
func (g *GatewayClient) Send(ctx context.Context, tokens []string, data json.RawMessage) error {
	body, err := json.Marshal(gatewayRequest{RegistrationIDs: tokens, Data: data})
	if err != nil {
		return fmt.Errorf("encoding gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned %s", resp.Status)
	}
	return nil
}
