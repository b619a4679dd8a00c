package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"pushfan/internal/common"
)

// Enqueuer defines the contract for enqueuing dispatch jobs.
// This allows the service to be decoupled from the specific queue implementation.
type Enqueuer interface {
	EnqueueDispatch(jobID string, req *DispatchRequest) error
}

// RecipientRateLimiter defines the contract for per-recipient rate limiting.
// Implementations live in infra/ratelimit/.
type RecipientRateLimiter interface {
	// Allow reports whether another notification may be sent to the given
	// recipient within the configured window.
	Allow(ctx context.Context, recipient string) (bool, error)
}

// TemplateRenderer defines the contract for rendering notification templates.
// Implementations live in infra/template/.
type TemplateRenderer interface {
	// Render produces a title and body for the given notification type.
	Render(notifType string, data map[string]any) (title, body string, err error)
}

// Service orchestrates dispatch business logic: validate, render templates,
// resolve the channel from the registry, filter per-recipient rate limits,
// fan out, aggregate.
type Service struct {
	registry    *Registry
	enqueuer    Enqueuer
	rateLimiter RecipientRateLimiter
	renderer    TemplateRenderer
}

// NewService creates a new dispatch service. enqueuer, rateLimiter, and
// renderer may be nil, in which case the corresponding step is skipped.
func NewService(registry *Registry, enqueuer Enqueuer, rateLimiter RecipientRateLimiter, renderer TemplateRenderer) *Service {
	return &Service{
		registry:    registry,
		enqueuer:    enqueuer,
		rateLimiter: rateLimiter,
		renderer:    renderer,
	}
}

// Dispatch validates the request, resolves the channel, and fans out
// synchronously. Every recipient in the request produces exactly one result
// — including recipients skipped by the per-recipient rate limit.
func (s *Service) Dispatch(ctx context.Context, req *DispatchRequest) (*DispatchResponse, error) {
	metadata, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	ch, err := s.registry.Get(req.Channel)
	if err != nil {
		return nil, err
	}

	// Partition out recipients that exceeded their personal cap. They are
	// folded back into the result set as failures afterwards.
	allowed, allowedMeta, denied := s.filterRecipients(ctx, req.Recipients, metadata)

	results, err := ch.Send(ctx, allowed, allowedMeta)
	if err != nil {
		return nil, fmt.Errorf("dispatching via channel %s: %w", req.Channel, err)
	}

	for _, recipient := range denied {
		results = append(results, Result{
			Status:    StatusFailed,
			Recipient: recipient,
			Error:     "recipient rate limit exceeded",
		})
	}

	resp := summarize(req.Channel, results)

	slog.Info("dispatch complete",
		"channel", req.Channel,
		"total", resp.Total,
		"succeeded", resp.Succeeded,
		"failed", resp.Failed,
		"rate_limited", len(denied),
	)

	return resp, nil
}

// Enqueue validates the request and hands it to the queue for async
// processing. The job payload is self-contained; no dispatch history is
// persisted.
func (s *Service) Enqueue(ctx context.Context, jobID string, req *DispatchRequest) (*EnqueueResponse, error) {
	if _, err := s.prepare(req); err != nil {
		return nil, err
	}

	// Fail fast on an unknown channel instead of letting the job bounce
	// through the queue's retry cycle.
	if _, err := s.registry.Get(req.Channel); err != nil {
		return nil, err
	}

	if s.enqueuer == nil {
		return nil, common.NewValidationError("async dispatch is not configured")
	}

	if err := s.enqueuer.EnqueueDispatch(jobID, req); err != nil {
		return nil, fmt.Errorf("enqueuing dispatch job: %w", err)
	}

	slog.Info("dispatch enqueued",
		"job_id", jobID,
		"channel", req.Channel,
		"recipients", len(req.Recipients),
	)

	return &EnqueueResponse{
		JobID:      jobID,
		Channel:    req.Channel,
		Recipients: len(req.Recipients),
		Status:     "queued",
	}, nil
}

// Channels lists the names of all registered channels.
func (s *Service) Channels() []string {
	return s.registry.Names()
}

// prepare validates the request and, for templated requests, renders the
// title and body into a shared metadata entry applied to every recipient.
func (s *Service) prepare(req *DispatchRequest) ([]Metadata, error) {
	if req.Channel == "" {
		return nil, common.NewValidationError("channel is required")
	}
	if len(req.Recipients) == 0 {
		return nil, common.NewValidationError("at least one recipient is required")
	}
	if len(req.Metadata) > len(req.Recipients) {
		return nil, common.NewValidationError(fmt.Sprintf(
			"metadata has %d entries for %d recipients", len(req.Metadata), len(req.Recipients)))
	}

	if req.Type == "" {
		return req.Metadata, nil
	}

	if len(req.Metadata) > 0 {
		return nil, common.NewValidationError("type and metadata are mutually exclusive")
	}
	if s.renderer == nil {
		return nil, common.NewValidationError("templated dispatch is not configured")
	}

	title, body, err := s.renderer.Render(req.Type, req.Data)
	if err != nil {
		return nil, common.NewValidationError(fmt.Sprintf("rendering template: %s", err.Error()))
	}

	metadata := make([]Metadata, len(req.Recipients))
	for i := range metadata {
		metadata[i] = Metadata{Title: title, Body: body}
	}
	return metadata, nil
}

// filterRecipients splits the recipient list by the per-recipient rate
// limiter, keeping each allowed recipient's metadata aligned. The check
// fails open: if the limiter backend is unreachable, dispatch proceeds.
func (s *Service) filterRecipients(ctx context.Context, recipients []string, metadata []Metadata) (allowed []string, allowedMeta []Metadata, denied []string) {
	if s.rateLimiter == nil {
		return recipients, metadata, nil
	}

	allowed = make([]string, 0, len(recipients))
	for i, recipient := range recipients {
		ok, err := s.rateLimiter.Allow(ctx, recipient)
		if err != nil {
			slog.Error("recipient rate limit check failed, proceeding without limit",
				"recipient", recipient, "error", err)
			ok = true
		}
		if !ok {
			denied = append(denied, recipient)
			continue
		}
		allowed = append(allowed, recipient)
		if i < len(metadata) {
			allowedMeta = append(allowedMeta, metadata[i])
		}
	}
	return allowed, allowedMeta, denied
}
