// internal/push/dispatch/models.go
package dispatch

// Status is the outcome of a send request as seen by the caller.
type Status string

const (
	// StatusSent means the hub accepted the send and reported a non-failure state.
	StatusSent Status = "sent"
	// StatusSentUnconfirmed means the hub accepted the send but the outcome
	// could not be confirmed within the polling budget.
	StatusSentUnconfirmed Status = "sent_unconfirmed"
	StatusFailed          Status = "failed"
	// StatusSkipped means there were no recipients; the hub was not called.
	StatusSkipped Status = "skipped"
)

type Result struct {
	Status          Status   `json:"status"`
	Reason          string   `json:"reason,omitempty"`
	NotificationIDs []string `json:"notificationIds,omitempty"`
	Recipients      int      `json:"recipients"`
	Dropped         int      `json:"dropped,omitempty"`
}

// OK reports whether the request should be treated as successful.
func (r *Result) OK() bool {
	return r != nil && r.Status != StatusFailed
}

type batchResult struct {
	status         Status
	reason         string
	notificationID string
}

func urgency(critical bool) string {
	if critical {
		return "critical"
	}
	return "normal"
}
