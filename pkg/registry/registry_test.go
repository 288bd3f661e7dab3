package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "templates.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRegistry(t *testing.T) {
	path := writeRegistry(t, `{
		"version": "1.0",
		"lastUpdated": "2024-05-01",
		"templates": [
			{"platform": "apns", "kind": "normal", "body": "{\"aps\":{}}"},
			{"platform": "fcmv1", "kind": "critical", "body": "{\"first\":true}"},
			{"platform": "FCMV1", "kind": "Critical", "body": "{\"second\":true}"}
		]
	}`)

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0", reg.Version)
	require.Len(t, reg.Templates, 3)

	body, ok := reg.Lookup("apns", "normal")
	assert.True(t, ok)
	assert.Equal(t, `{"aps":{}}`, body)

	body, ok = reg.Lookup("fcmv1", "critical")
	assert.True(t, ok)
	assert.Equal(t, `{"second":true}`, body)

	_, ok = reg.Lookup("apns", "legacy")
	assert.False(t, ok)
}

func TestLoadRegistry_Errors(t *testing.T) {
	_, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadRegistry(writeRegistry(t, `{"templates": [`))
	assert.Error(t, err)

	_, err = LoadRegistry(writeRegistry(t, `{"templates": [{"platform": "apns", "body": "{}"}]}`))
	assert.Error(t, err)
}

func TestLookup_NilRegistry(t *testing.T) {
	var reg *TemplateRegistry
	_, ok := reg.Lookup("apns", "normal")
	assert.False(t, ok)
}
