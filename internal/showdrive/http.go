package showdrive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// registerClient obtains a stream token for the given client id.
func registerClient(ctx context.Context, client *HTTPClient, baseURL, clientID string) (string, error) {
	resp, err := client.Get(ctx, baseURL+"/register?sub="+clientID)
	if err != nil {
		return "", fmt.Errorf("register %s: %w", clientID, err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return "", fmt.Errorf("register %s: %w", clientID, err)
	}
	if resp.StatusCode != StatusOK {
		return "", fmt.Errorf("register %s: unexpected status %d: %s", clientID, resp.StatusCode, body)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("register %s: %w", clientID, err)
	}
	return out.Token, nil
}

// startSession asks the coordinator to launch the session run loop.
func startSession(ctx context.Context, client *HTTPClient, baseURL string, sessionID int) error {
	resp, err := client.Post(ctx, fmt.Sprintf("%s/sessions/%d/start", baseURL, sessionID), struct{}{})
	if err != nil {
		return fmt.Errorf("start session %d: %w", sessionID, err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("start session %d: %w", sessionID, err)
	}
	if resp.StatusCode != StatusAccepted {
		return fmt.Errorf("start session %d: unexpected status %d: %s", sessionID, resp.StatusCode, body)
	}
	return nil
}

// postResponse delivers a tag response to the coordinator.
func postResponse(ctx context.Context, client *HTTPClient, baseURL, tag string, payload any) error {
	req := struct {
		Tag     string `json:"tag"`
		Payload any    `json:"payload"`
	}{Tag: tag, Payload: payload}

	resp, err := client.Post(ctx, baseURL+"/response", req)
	if err != nil {
		return fmt.Errorf("response %s: %w", tag, err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("response %s: %w", tag, err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("response %s: unexpected status %d: %s", tag, resp.StatusCode, body)
	}
	return nil
}
