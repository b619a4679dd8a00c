package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Worker processes dispatch jobs from the queue. It resolves the channel
// through the service and fans out; per-recipient failures are part of the
// normal result set and do not fail the job.
type Worker struct {
	service *Service
}

// NewWorker creates a new dispatch worker.
func NewWorker(service *Service) *Worker {
	return &Worker{service: service}
}

// ProcessTask handles one dispatch job. Only request-level failures are
// returned, which signals the queue to retry with backoff.
func (w *Worker) ProcessTask(ctx context.Context, payload *DispatchPayload) error {
	start := time.Now()

	resp, err := w.service.Dispatch(ctx, payload.Request)
	if err != nil {
		slog.Error("dispatch job failed",
			"job_id", payload.JobID,
			"channel", payload.Request.Channel,
			"recipients", len(payload.Request.Recipients),
			"error", err,
			"duration", time.Since(start),
		)
		return fmt.Errorf("processing dispatch job %s: %w", payload.JobID, err)
	}

	slog.Info("dispatch job complete",
		"job_id", payload.JobID,
		"channel", resp.Channel,
		"total", resp.Total,
		"succeeded", resp.Succeeded,
		"failed", resp.Failed,
		"duration", time.Since(start),
	)

	return nil
}
