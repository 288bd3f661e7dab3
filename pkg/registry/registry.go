// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

func LoadRegistry(path string) (*TemplateRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg TemplateRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse template registry %s: %w", path, err)
	}
	for i, t := range reg.Templates {
		if t.Platform == "" || t.Kind == "" {
			return nil, fmt.Errorf("template registry %s: entry %d needs platform and kind", path, i)
		}
	}
	return &reg, nil
}

// Lookup returns the body registered for platform and kind. Later entries win.
func (r *TemplateRegistry) Lookup(platform, kind string) (string, bool) {
	if r == nil {
		return "", false
	}
	body, found := "", false
	for _, t := range r.Templates {
		if strings.EqualFold(t.Platform, platform) && strings.EqualFold(t.Kind, kind) {
			body, found = t.Body, true
		}
	}
	return body, found
}
