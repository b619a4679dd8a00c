package dispatch

import (
	"context"
	"time"
)

// Status represents the outcome of a single delivery attempt.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// DefaultTitle is used when a recipient has no metadata entry or an empty title.
const DefaultTitle = "Notification"

// Metadata carries the transport-specific fields for one recipient.
// A zero value is valid: adapters substitute transport defaults.
type Metadata struct {
	Title   string            `json:"title,omitempty"`
	Body    string            `json:"body,omitempty"`
	Data    map[string]string `json:"data,omitempty"`
	DryRun  bool              `json:"dry_run,omitempty"`
	TTL     time.Duration     `json:"ttl,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Result is the per-recipient outcome of a dispatch. Every recipient in a
// request produces exactly one Result; transport failures are recorded here
// rather than aborting sibling sends.
type Result struct {
	Status    Status `json:"status"`
	Recipient string `json:"recipient"`
	Response  string `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Channel is a named, pluggable delivery strategy. Implementations live in
// this package (adapters) and are wired to concrete transports in infra/.
type Channel interface {
	// Send dispatches to all recipients and returns one Result per recipient.
	// metadata may be nil or shorter than recipients; missing entries fall
	// back to transport defaults. Send returns an error only for a
	// request-level failure that prevented any dispatch attempt.
	Send(ctx context.Context, recipients []string, metadata []Metadata) ([]Result, error)
}

// Sender delivers one rendered payload to one recipient. Implementations
// live in infra/ (e.g., FCM for device tokens, web push for subscriptions).
type Sender interface {
	// SendOne returns the transport's opaque response payload on success.
	SendOne(ctx context.Context, recipient string, meta Metadata) (string, error)
}

// metadataAt returns the metadata for recipient index i, falling back to
// transport defaults when the metadata slice is shorter than the recipient
// list. A mismatch is never an error.
func metadataAt(metadata []Metadata, i int) Metadata {
	var meta Metadata
	if i < len(metadata) {
		meta = metadata[i]
	}
	if meta.Title == "" {
		meta.Title = DefaultTitle
	}
	if meta.Data == nil {
		meta.Data = map[string]string{}
	}
	return meta
}

// sendOne performs a single delivery and converts its outcome into a Result.
// Errors are captured per recipient and never propagate to siblings.
func sendOne(ctx context.Context, sender Sender, recipient string, meta Metadata) Result {
	resp, err := sender.SendOne(ctx, recipient, meta)
	if err != nil {
		return Result{
			Status:    StatusFailed,
			Recipient: recipient,
			Error:     err.Error(),
		}
	}
	return Result{
		Status:    StatusSuccess,
		Recipient: recipient,
		Response:  resp,
	}
}
