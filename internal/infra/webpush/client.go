package webpush

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"pushfan/internal/domain/dispatch"
)

var _ dispatch.Sender = (*Client)(nil)

// Subscription is a browser push subscription. The recipient identifier for
// the web push channel is this record serialized as JSON.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// Client sends web push messages directly to each subscription's endpoint.
// There is no batch API: every subscription is one HTTP request.
type Client struct {
	vapidPublicKey  string
	vapidPrivateKey string
	subscriber      string
	defaultTTL      time.Duration
	httpClient      *http.Client
}

// NewClient creates a new web push client. subscriber is the contact
// address advertised to push services, per the VAPID spec.
func NewClient(vapidPublicKey, vapidPrivateKey, subscriber string, defaultTTL time.Duration) *Client {
	if defaultTTL <= 0 {
		defaultTTL = 24 * time.Hour
	}
	return &Client{
		vapidPublicKey:  vapidPublicKey,
		vapidPrivateKey: vapidPrivateKey,
		subscriber:      subscriber,
		defaultTTL:      defaultTTL,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
	}
}

// SendOne decodes the subscription record and posts the payload to its
// endpoint. A recipient that fails to decode is reported as that
// recipient's own failure, never as a request-level one.
func (c *Client) SendOne(ctx context.Context, recipient string, meta dispatch.Metadata) (string, error) {
	var sub Subscription
	if err := json.Unmarshal([]byte(recipient), &sub); err != nil {
		return "", fmt.Errorf("decoding subscription: %w", err)
	}
	if sub.Endpoint == "" {
		return "", fmt.Errorf("decoding subscription: missing endpoint")
	}

	payload, err := json.Marshal(map[string]any{
		"title": meta.Title,
		"body":  meta.Body,
		"data":  meta.Data,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.Endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	ttl := meta.TTL
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("TTL", strconv.Itoa(int(ttl.Seconds())))
	// TODO: sign a VAPID JWT (ES256 over the endpoint origin) with the
	// private key instead of advertising the bare public key.
	req.Header.Set("Authorization", "vapid k="+c.vapidPublicKey)
	for k, v := range meta.Headers {
		req.Header.Set(k, v)
	}

	if meta.DryRun {
		// Push services have no dry-run mode; skip the network call.
		return "dry-run", nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)) // 64 KB max
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("push service: status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	// Push services reply 201 with an optional Location for the message.
	if loc := resp.Header.Get("Location"); loc != "" {
		return loc, nil
	}
	return strconv.Itoa(resp.StatusCode), nil
}
