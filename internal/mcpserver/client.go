package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Config holds the connection settings for the scanning API.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
}

// ErrNotFound is returned by CheckLabel when the address has no known label.
var ErrNotFound = errors.New("not found")

// APIClient is a pure HTTP client for the scanning API. Wallet scans against
// large histories can take a while, so the timeout mirrors the server's write
// timeout rather than the usual 30 seconds.
type APIClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewAPIClient creates a client for the scanning API.
func NewAPIClient(cfg Config) *APIClient {
	return &APIClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the API and returns the response body.
func (c *APIClient) doRequest(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.APIURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// ScanWallet runs a full privacy scan of a wallet address.
func (c *APIClient) ScanWallet(ctx context.Context, address string) (json.RawMessage, error) {
	body := map[string]string{"address": address}
	return c.doRequest(ctx, http.MethodPost, "/v1/scan/wallet", body)
}

// ScanTransaction scans a single transaction by signature.
func (c *APIClient) ScanTransaction(ctx context.Context, signature string) (json.RawMessage, error) {
	body := map[string]string{"signature": signature}
	return c.doRequest(ctx, http.MethodPost, "/v1/scan/transaction", body)
}

// ScanProgram scans a program's recent interaction surface.
func (c *APIClient) ScanProgram(ctx context.Context, programID string) (json.RawMessage, error) {
	body := map[string]string{"programId": programID}
	return c.doRequest(ctx, http.MethodPost, "/v1/scan/program", body)
}

// CheckLabel looks up the known-entity label for an address. Returns
// ErrNotFound when the address is unlabeled.
func (c *APIClient) CheckLabel(ctx context.Context, address string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/labels/"+address, nil)
}
