package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TaskTypeDispatch is the asynq task type for fan-out dispatch jobs.
const TaskTypeDispatch = "dispatch:fanout"

// DispatchPayload is the serialized payload for a dispatch job. It carries
// the whole request so the worker needs no lookup to process it.
type DispatchPayload struct {
	JobID   string           `json:"job_id"`
	Request *DispatchRequest `json:"request"`
}

// NewDispatchTask creates a new asynq task for a fan-out dispatch.
func NewDispatchTask(jobID string, req *DispatchRequest) (*asynq.Task, error) {
	payload, err := json.Marshal(DispatchPayload{JobID: jobID, Request: req})
	if err != nil {
		return nil, fmt.Errorf("marshaling task payload: %w", err)
	}
	return asynq.NewTask(TaskTypeDispatch, payload), nil
}

// ParseDispatchPayload deserializes the task payload.
func ParseDispatchPayload(data []byte) (*DispatchPayload, error) {
	var p DispatchPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshaling task payload: %w", err)
	}
	if p.Request == nil {
		return nil, fmt.Errorf("task payload has no request")
	}
	return &p, nil
}
