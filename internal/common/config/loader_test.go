package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
hub:
  connection_string: "Endpoint=sb://ns.servicebus.windows.net/;SharedAccessKeyName=full;SharedAccessKey=c2VjcmV0"
  hub_name: push
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Notifications.MaxTagsPerExpression)
	assert.Equal(t, OverflowTruncate, cfg.Notifications.OnOverflow)
	assert.Equal(t, 500, cfg.Notifications.PollInterval)
	assert.Equal(t, 5000, cfg.Notifications.PollTimeout)
	assert.Equal(t, "alert", cfg.Notifications.DefaultSound)
	assert.Equal(t, ".wav", cfg.Notifications.IOSSoundExtension)
	assert.True(t, cfg.Notifications.ReportSendFailures)
	assert.Equal(t, ModeInstallation, cfg.Registration.Mode)
	assert.Equal(t, 8, cfg.Registration.TokenPrefixLength)
	assert.Equal(t, 1000, cfg.Registration.LookupLimit)
	assert.Equal(t, 100, cfg.Registration.LegacyLookupLimit)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile_ExplicitFalseReportSendFailures(t *testing.T) {
	path := writeConfig(t, `
hub:
  connection_string: "Endpoint=sb://ns.servicebus.windows.net/;SharedAccessKeyName=full;SharedAccessKey=c2VjcmV0"
  hub_name: push
notifications:
  report_send_failures: false
  on_overflow: chunk
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.False(t, cfg.Notifications.ReportSendFailures)
	assert.Equal(t, OverflowChunk, cfg.Notifications.OnOverflow)
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_HUB_NAME", "expanded-hub")
	path := writeConfig(t, `
hub:
  connection_string: "Endpoint=sb://ns.servicebus.windows.net/;SharedAccessKeyName=full;SharedAccessKey=c2VjcmV0"
  hub_name: ${TEST_HUB_NAME}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded-hub", cfg.Hub.HubName)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing connection string",
			body:    "hub:\n  hub_name: push\n",
			wantErr: "hub.connection_string is required",
		},
		{
			name:    "invalid overflow policy",
			body:    "hub:\n  connection_string: x\n  hub_name: push\nnotifications:\n  on_overflow: drop\n",
			wantErr: "notifications.on_overflow",
		},
		{
			name:    "too many tags per expression",
			body:    "hub:\n  connection_string: x\n  hub_name: push\nnotifications:\n  max_tags_per_expression: 21\n",
			wantErr: "max_tags_per_expression",
		},
		{
			name:    "invalid registration mode",
			body:    "hub:\n  connection_string: x\n  hub_name: push\nregistration:\n  mode: v3\n",
			wantErr: "registration.mode",
		},
		{
			name:    "redis enabled without address",
			body:    "hub:\n  connection_string: x\n  hub_name: push\ndatabase:\n  redis:\n    enabled: true\n",
			wantErr: "database.redis.address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("AZURE_HUB_CONNECTION_STRING", "")
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "legacy", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=legacy sslmode=disable", p.GetDSN())
}
