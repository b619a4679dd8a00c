package dispatch

// DispatchRequest is the API request payload for a fan-out dispatch.
// Recipients are opaque strings whose encoding is transport-specific: a
// device token for FCM, a serialized subscription record for web push.
// Metadata, when present, is index-aligned with Recipients and may be
// shorter; missing entries fall back to transport defaults.
//
// Alternatively a request may name a notification Type plus template Data,
// in which case the title and body are rendered server-side and applied to
// every recipient.
type DispatchRequest struct {
	Channel    string         `json:"channel" binding:"required"`
	Recipients []string       `json:"recipients" binding:"required,min=1"`
	Metadata   []Metadata     `json:"metadata"`
	Type       string         `json:"type"`
	Data       map[string]any `json:"data"`
}

// DispatchResponse aggregates the per-recipient results of one dispatch.
type DispatchResponse struct {
	Channel   string   `json:"channel"`
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Results   []Result `json:"results"`
}

// EnqueueResponse is returned when a dispatch is accepted for async
// processing.
type EnqueueResponse struct {
	JobID      string `json:"job_id"`
	Channel    string `json:"channel"`
	Recipients int    `json:"recipients"`
	Status     string `json:"status"`
}

// summarize builds a DispatchResponse from a completed result set.
func summarize(channel string, results []Result) *DispatchResponse {
	resp := &DispatchResponse{
		Channel: channel,
		Total:   len(results),
		Results: results,
	}
	for _, r := range results {
		if r.Status == StatusSuccess {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	return resp
}
