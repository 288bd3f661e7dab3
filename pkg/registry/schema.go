// pkg/registry/schema.go
package registry

// TemplateRegistry is the on-disk list of payload template overrides.
type TemplateRegistry struct {
	Version     string          `json:"version"`
	LastUpdated string          `json:"lastUpdated"`
	Templates   []TemplateEntry `json:"templates"`
}

// TemplateEntry overrides one (platform, kind) template body.
type TemplateEntry struct {
	Platform    string `json:"platform"` // apns | fcmv1
	Kind        string `json:"kind"`     // normal | critical | legacy
	Description string `json:"description,omitempty"`
	Body        string `json:"body"`
}
