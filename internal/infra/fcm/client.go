package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"pushfan/internal/domain/dispatch"
)

const defaultEndpoint = "https://fcm.googleapis.com/fcm/send"

var _ dispatch.Sender = (*Client)(nil)

// Client sends mobile push messages through the FCM HTTP API.
// The recipient identifier is a device registration token.
type Client struct {
	serverKey  string
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a new FCM client.
func NewClient(serverKey string) *Client {
	return &Client{
		serverKey:  serverKey,
		endpoint:   defaultEndpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewClientWithEndpoint creates a client against a non-default endpoint.
// Used in tests against a local HTTP server.
func NewClientWithEndpoint(serverKey, endpoint string) *Client {
	c := NewClient(serverKey)
	c.endpoint = endpoint
	return c
}

// SendOne delivers one push message to a device token and returns the
// provider's message ID.
func (c *Client) SendOne(ctx context.Context, recipient string, meta dispatch.Metadata) (string, error) {
	payload := map[string]any{
		"to": recipient,
		"notification": map[string]string{
			"title": meta.Title,
			"body":  meta.Body,
		},
	}

	if len(meta.Data) > 0 {
		payload["data"] = meta.Data
	}
	if meta.DryRun {
		payload["dry_run"] = true
	}
	if meta.TTL > 0 {
		payload["time_to_live"] = int(meta.TTL.Seconds())
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling fcm payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.serverKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB max
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fcm: status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	var fcmResp struct {
		Results []struct {
			MessageID string `json:"message_id"`
			Error     string `json:"error"`
		} `json:"results"`
	}
	if err := json.Unmarshal(respBody, &fcmResp); err != nil {
		return "", fmt.Errorf("parsing fcm response: %w", err)
	}

	if len(fcmResp.Results) == 0 {
		return "", fmt.Errorf("fcm: empty result set")
	}
	if fcmResp.Results[0].Error != "" {
		return "", fmt.Errorf("fcm: %s", fcmResp.Results[0].Error)
	}

	return fcmResp.Results[0].MessageID, nil
}
