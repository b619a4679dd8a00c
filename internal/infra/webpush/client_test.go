package webpush

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushfan/internal/domain/dispatch"
)

func subscriptionFor(t *testing.T, endpoint string) string {
	t.Helper()
	sub := map[string]any{
		"endpoint": endpoint,
		"keys":     map[string]string{"p256dh": "BPub", "auth": "secret"},
	}
	data, err := json.Marshal(sub)
	require.NoError(t, err)
	return string(data)
}

func TestClient_SendOne(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "120", r.Header.Get("TTL"))
		assert.Contains(t, r.Header.Get("Authorization"), "vapid k=pub-key")
		assert.Equal(t, "high", r.Header.Get("Urgency"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Hello", payload["title"])

		w.Header().Set("Location", "https://push.example.com/msg/abc")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewClient("pub-key", "priv-key", "mailto:ops@example.com", time.Hour)
	resp, err := client.SendOne(context.Background(), subscriptionFor(t, srv.URL), dispatch.Metadata{
		Title:   "Hello",
		Body:    "World",
		TTL:     2 * time.Minute,
		Headers: map[string]string{"Urgency": "high"},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://push.example.com/msg/abc", resp)
}

func TestClient_SendOneDefaultTTL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fmt.Sprint(3600), r.Header.Get("TTL"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewClient("pub-key", "priv-key", "mailto:ops@example.com", time.Hour)
	_, err := client.SendOne(context.Background(), subscriptionFor(t, srv.URL), dispatch.Metadata{})
	require.NoError(t, err)
}

func TestClient_SendOneDecodeFailure(t *testing.T) {
	client := NewClient("pub-key", "priv-key", "mailto:ops@example.com", time.Hour)

	_, err := client.SendOne(context.Background(), "not a subscription", dispatch.Metadata{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding subscription")

	// Valid JSON but not a usable subscription.
	_, err = client.SendOne(context.Background(), `{"keys":{}}`, dispatch.Metadata{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing endpoint")
}

func TestClient_SendOnePushServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "subscription expired", http.StatusGone)
	}))
	defer srv.Close()

	client := NewClient("pub-key", "priv-key", "mailto:ops@example.com", time.Hour)
	_, err := client.SendOne(context.Background(), subscriptionFor(t, srv.URL), dispatch.Metadata{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "410")
}

func TestClient_SendOneDryRunSkipsNetwork(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	client := NewClient("pub-key", "priv-key", "mailto:ops@example.com", time.Hour)
	resp, err := client.SendOne(context.Background(), subscriptionFor(t, srv.URL), dispatch.Metadata{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, "dry-run", resp)
	assert.False(t, called)
}
