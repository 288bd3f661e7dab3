// internal/models/notification.go
package models

// NotificationRequest is the body of POST /api/notifications/send.
// Tags holds recipient user identifiers, not hub tags.
type NotificationRequest struct {
	Tags       []string `json:"tags"`
	Title      string   `json:"title"`
	Body       string   `json:"body"`
	Json       string   `json:"json"`
	Sound      string   `json:"sound,omitempty"`
	IsCritical bool     `json:"isCritical"`
}

// Recipients returns Tags with duplicates removed, keeping first-seen order.
func (r *NotificationRequest) Recipients() []string {
	seen := make(map[string]struct{}, len(r.Tags))
	out := make([]string, 0, len(r.Tags))
	for _, t := range r.Tags {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
