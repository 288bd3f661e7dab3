// internal/push/registration/manager_test.go
package registration

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"notification-gateway/internal/common/config"
	"notification-gateway/internal/common/logger"
	"notification-gateway/internal/hub"
	"notification-gateway/internal/hub/hubtest"
	"notification-gateway/internal/models"
	"notification-gateway/internal/push/templates"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockLocker struct {
	AcquireFunc func(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

func (m *MockLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	return m.AcquireFunc(ctx, key, ttl)
}

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig() *Config {
	return LoadConfig(config.RegistrationConfig{Mode: config.ModeInstallation})
}

func createTestRequest() *models.RegistrationRequest {
	return &models.RegistrationRequest{
		ClientID:   1,
		BuildingID: 2,
		UserID:     "U1",
		OS:         "ios",
		Token:      "ABCDEFGHIJ",
	}
}

func newTestManager(t *testing.T, cfg *Config, client hub.Client, opts ...Option) *Manager {
	return NewManager(cfg, client, templates.Default(), logger.NewTestLogger(t), opts...)
}

// ==========================
// Installation Mode Tests
// ==========================

func TestRegister_IOSScenario(t *testing.T) {
	var upserted *hub.Installation
	client := &hubtest.MockClient{
		CreateOrUpdateInstallationFunc: func(ctx context.Context, inst *hub.Installation) error {
			upserted = inst
			return nil
		},
	}

	m := newTestManager(t, createTestConfig(), client)
	require.True(t, m.Register(context.Background(), createTestRequest()))
	require.NotNil(t, upserted)

	assert.Equal(t, "U1_ABCDEFGH", upserted.InstallationID)
	assert.Equal(t, hub.PlatformApns, upserted.Platform)
	assert.Equal(t, "ABCDEFGHIJ", upserted.PushChannel)
	assert.Equal(t, []string{"c:1", "u:U1", "o:ios"}, upserted.Tags)

	require.Len(t, upserted.Templates, 3)
	legacy := upserted.Templates[templates.LegacyTemplateName]
	assert.Equal(t, templates.ApnsLegacy, legacy.Body)
	assert.Equal(t, []string{"U1", "iOS"}, legacy.Tags)

	critical := upserted.Templates[templates.CriticalTemplateName]
	assert.Equal(t, templates.ApnsCritical, critical.Body)
	assert.Equal(t, []string{"c:1:critical", "u:U1:critical", "o:ios:critical"}, critical.Tags)

	normal := upserted.Templates[templates.NormalTemplateName]
	assert.Equal(t, templates.ApnsNormal, normal.Body)
	assert.Equal(t, []string{"c:1:normal", "u:U1:normal", "o:ios:normal"}, normal.Tags)
}

func TestRegister_PlatformSelection(t *testing.T) {
	tests := []struct {
		name         string
		os           string
		wantPlatform hub.Platform
		wantOSTag    string
		wantLegacy   string
		wantNormal   string
	}{
		{"ios", "ios", hub.PlatformApns, "o:ios", "iOS", templates.ApnsNormal},
		{"upper case ios", "IOS", hub.PlatformApns, "o:ios", "iOS", templates.ApnsNormal},
		{"android", "android", hub.PlatformFcm, "o:android", "Android", templates.FcmNormal},
		{"unknown os", "tizen", hub.PlatformFcm, "o:tizen", "Android", templates.FcmNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := createTestRequest()
			req.OS = tt.os

			inst := newTestManager(t, createTestConfig(), &hubtest.MockClient{}).BuildInstallation(req)
			assert.Equal(t, tt.wantPlatform, inst.Platform)
			assert.Contains(t, inst.Tags, tt.wantOSTag)
			assert.Equal(t, tt.wantLegacy, inst.Templates[templates.LegacyTemplateName].Tags[1])
			assert.Equal(t, tt.wantNormal, inst.Templates[templates.NormalTemplateName].Body)
		})
	}
}

func TestRegister_Idempotent(t *testing.T) {
	var upserts []*hub.Installation
	exists := false
	client := &hubtest.MockClient{
		InstallationExistsFunc: func(ctx context.Context, id string) (bool, error) {
			return exists, nil
		},
		CreateOrUpdateInstallationFunc: func(ctx context.Context, inst *hub.Installation) error {
			upserts = append(upserts, inst)
			exists = true
			return nil
		},
	}

	m := newTestManager(t, createTestConfig(), client)
	require.True(t, m.Register(context.Background(), createTestRequest()))
	require.True(t, m.Register(context.Background(), createTestRequest()))

	require.Len(t, upserts, 2)
	assert.Equal(t, upserts[0], upserts[1])
	assert.Equal(t, 1, client.Calls("GetRegistrationsByChannel"))
}

func TestInstallationID(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		token  string
		want   string
	}{
		{"long token", "U1", "ABCDEFGHIJ", "U1_ABCDEFGH"},
		{"same prefix different tail", "U1", "ABCDEFGHZZZZ", "U1_ABCDEFGH"},
		{"exactly eight", "U1", "ABCDEFGH", "U1_ABCDEFGH"},
		{"short token", "U1", "ABC", "U1_ABC"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InstallationID(tt.userID, tt.token, DefaultTokenPrefixLength))
		})
	}
}

func TestRegister_ShortToken(t *testing.T) {
	var upserted *hub.Installation
	client := &hubtest.MockClient{
		CreateOrUpdateInstallationFunc: func(ctx context.Context, inst *hub.Installation) error {
			upserted = inst
			return nil
		},
	}

	req := createTestRequest()
	req.Token = "XY"
	require.True(t, newTestManager(t, createTestConfig(), client).Register(context.Background(), req))
	assert.Equal(t, "U1_XY", upserted.InstallationID)
}

// channelIndex answers channel lookups by exact match, as the hub filter does.
func channelIndex(regs []hub.Registration, queried *[]string) func(ctx context.Context, channel string, top int) ([]hub.Registration, error) {
	return func(ctx context.Context, channel string, top int) ([]hub.Registration, error) {
		*queried = append(*queried, channel)
		var out []hub.Registration
		for _, r := range regs {
			if r.PushChannel == channel {
				out = append(out, r)
			}
		}
		return out, nil
	}
}

func TestRegister_StaleCleanup(t *testing.T) {
	tests := []struct {
		name        string
		token       string
		stored      []hub.Registration
		wantQueried []string
		wantDeleted []string
	}{
		{
			name:  "upper-case token",
			token: "ABCDEFGHIJ",
			stored: []hub.Registration{
				{RegistrationID: "r1", PushChannel: "ABCDEFGHIJ"},
				{RegistrationID: "r2", PushChannel: "SOMEONE-ELSE"},
			},
			wantQueried: []string{"ABCDEFGHIJ"},
			wantDeleted: []string{"r1"},
		},
		{
			name:  "lower-case token finds upper-cased apns channel",
			token: "abcdef0123456789",
			stored: []hub.Registration{
				{RegistrationID: "r1", PushChannel: "ABCDEF0123456789"},
				{RegistrationID: "r2", PushChannel: "abcdef0123456789"},
				{RegistrationID: "r3", PushChannel: "FEDCBA"},
			},
			wantQueried: []string{"abcdef0123456789", "ABCDEF0123456789"},
			wantDeleted: []string{"r2", "r1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var queried, deleted []string
			client := &hubtest.MockClient{
				InstallationExistsFunc: func(ctx context.Context, id string) (bool, error) {
					return false, nil
				},
				GetRegistrationsByChannelFunc: channelIndex(tt.stored, &queried),
				DeleteRegistrationFunc: func(ctx context.Context, id string) error {
					deleted = append(deleted, id)
					return nil
				},
			}

			req := createTestRequest()
			req.Token = tt.token
			require.True(t, newTestManager(t, createTestConfig(), client).Register(context.Background(), req))
			assert.Equal(t, tt.wantQueried, queried)
			assert.Equal(t, tt.wantDeleted, deleted)
			assert.Equal(t, 1, client.Calls("CreateOrUpdateInstallation"))
		})
	}
}

func TestRegister_StaleCleanupDeletesEachRegistrationOnce(t *testing.T) {
	var deleted []string
	client := &hubtest.MockClient{
		// A case-insensitive hub returns the same registration for both spellings.
		GetRegistrationsByChannelFunc: func(ctx context.Context, channel string, top int) ([]hub.Registration, error) {
			assert.Equal(t, 100, top)
			return []hub.Registration{{RegistrationID: "r1", PushChannel: "ABCDEFGHIJ"}}, nil
		},
		DeleteRegistrationFunc: func(ctx context.Context, id string) error {
			deleted = append(deleted, id)
			return nil
		},
	}

	req := createTestRequest()
	req.Token = "abcdefghij"
	require.True(t, newTestManager(t, createTestConfig(), client).Register(context.Background(), req))
	assert.Equal(t, 2, client.Calls("GetRegistrationsByChannel"))
	assert.Equal(t, []string{"r1"}, deleted)
}

func TestChannelVariants(t *testing.T) {
	assert.Equal(t, []string{"ABC123"}, channelVariants("ABC123"))
	assert.Equal(t, []string{"abc123", "ABC123"}, channelVariants("abc123"))
}

func TestRegister_ExistingInstallationSkipsCleanup(t *testing.T) {
	client := &hubtest.MockClient{
		InstallationExistsFunc: func(ctx context.Context, id string) (bool, error) {
			assert.Equal(t, "U1_ABCDEFGH", id)
			return true, nil
		},
	}

	require.True(t, newTestManager(t, createTestConfig(), client).Register(context.Background(), createTestRequest()))
	assert.Equal(t, 0, client.Calls("GetRegistrationsByChannel"))
	assert.Equal(t, 0, client.Calls("DeleteRegistration"))
	assert.Equal(t, 1, client.Calls("CreateOrUpdateInstallation"))
}

func TestRegister_TagBuilding(t *testing.T) {
	cfg := LoadConfig(config.RegistrationConfig{TagBuilding: true})
	inst := newTestManager(t, cfg, &hubtest.MockClient{}).BuildInstallation(createTestRequest())

	assert.Equal(t, []string{"c:1", "u:U1", "o:ios", "b:2"}, inst.Tags)
	assert.Contains(t, inst.Templates[templates.CriticalTemplateName].Tags, "b:2:critical")
}

func TestRegister_Failures(t *testing.T) {
	hubErr := &hub.StatusError{Operation: "test", StatusCode: http.StatusInternalServerError}

	tests := []struct {
		name        string
		client      *hubtest.MockClient
		wantUpserts int
	}{
		{
			name: "installation lookup fails",
			client: &hubtest.MockClient{
				InstallationExistsFunc: func(ctx context.Context, id string) (bool, error) {
					return false, hubErr
				},
			},
		},
		{
			name: "channel lookup fails",
			client: &hubtest.MockClient{
				GetRegistrationsByChannelFunc: func(ctx context.Context, channel string, top int) ([]hub.Registration, error) {
					return nil, hubErr
				},
			},
		},
		{
			name: "stale delete fails",
			client: &hubtest.MockClient{
				GetRegistrationsByChannelFunc: func(ctx context.Context, channel string, top int) ([]hub.Registration, error) {
					return []hub.Registration{{RegistrationID: "r1", PushChannel: channel}}, nil
				},
				DeleteRegistrationFunc: func(ctx context.Context, id string) error {
					return hubErr
				},
			},
		},
		{
			name: "upsert fails",
			client: &hubtest.MockClient{
				CreateOrUpdateInstallationFunc: func(ctx context.Context, inst *hub.Installation) error {
					return errors.New("connection reset")
				},
			},
			wantUpserts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, createTestConfig(), tt.client)
			assert.False(t, m.Register(context.Background(), createTestRequest()))
			assert.Equal(t, tt.wantUpserts, tt.client.Calls("CreateOrUpdateInstallation"))
		})
	}
}

func TestRegister_DeleteNotFoundIsIgnored(t *testing.T) {
	client := &hubtest.MockClient{
		GetRegistrationsByChannelFunc: func(ctx context.Context, channel string, top int) ([]hub.Registration, error) {
			return []hub.Registration{{RegistrationID: "r1", PushChannel: channel}}, nil
		},
		DeleteRegistrationFunc: func(ctx context.Context, id string) error {
			return &hub.StatusError{Operation: "delete_registration", StatusCode: http.StatusNotFound}
		},
	}

	assert.True(t, newTestManager(t, createTestConfig(), client).Register(context.Background(), createTestRequest()))
}

func TestRegister_InvalidRequest(t *testing.T) {
	tests := []struct {
		name string
		req  *models.RegistrationRequest
	}{
		{"nil request", nil},
		{"empty token", &models.RegistrationRequest{UserID: "U1", OS: "ios"}},
		{"blank user", &models.RegistrationRequest{UserID: " ", OS: "ios", Token: "ABC"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &hubtest.MockClient{}
			m := newTestManager(t, createTestConfig(), client)

			err := m.RegisterDevice(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Equal(t, 0, client.TotalCalls())
		})
	}
}

// ==========================
// Locking Tests
// ==========================

func TestRegister_UsesLocker(t *testing.T) {
	released := false
	locker := &MockLocker{
		AcquireFunc: func(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
			assert.Equal(t, "U1_ABCDEFGH", key)
			assert.Equal(t, 10*time.Second, ttl)
			return func(context.Context) error {
				released = true
				return nil
			}, nil
		},
	}
	client := &hubtest.MockClient{}

	m := newTestManager(t, createTestConfig(), client, WithLocker(locker))
	require.True(t, m.Register(context.Background(), createTestRequest()))
	assert.True(t, released)
	assert.Equal(t, 1, client.Calls("CreateOrUpdateInstallation"))
}

func TestRegister_LockFailureProceeds(t *testing.T) {
	locker := &MockLocker{
		AcquireFunc: func(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
			return nil, errors.New("redis unavailable")
		},
	}
	client := &hubtest.MockClient{}

	m := newTestManager(t, createTestConfig(), client, WithLocker(locker))
	assert.True(t, m.Register(context.Background(), createTestRequest()))
	assert.Equal(t, 1, client.Calls("CreateOrUpdateInstallation"))
}

// ==========================
// Legacy Mode Tests
// ==========================

func TestRegister_LegacyMode(t *testing.T) {
	type created struct {
		platform hub.Platform
		channel  string
		body     string
		tags     []string
	}
	var deleted []string
	var regs []created

	client := &hubtest.MockClient{
		GetRegistrationsByTagFunc: func(ctx context.Context, tag string, top int) ([]hub.Registration, error) {
			assert.Equal(t, "U1", tag)
			assert.Equal(t, 100, top)
			return []hub.Registration{{RegistrationID: "old-1"}, {RegistrationID: "old-2"}}, nil
		},
		DeleteRegistrationFunc: func(ctx context.Context, id string) error {
			deleted = append(deleted, id)
			return nil
		},
		CreateTemplateRegistrationFunc: func(ctx context.Context, platform hub.Platform, channel, body string, tags []string) (*hub.Registration, error) {
			regs = append(regs, created{platform, channel, body, tags})
			return &hub.Registration{RegistrationID: "new"}, nil
		},
	}

	cfg := LoadConfig(config.RegistrationConfig{Mode: config.ModeLegacy})
	req := createTestRequest()
	req.OS = "android"

	require.True(t, newTestManager(t, cfg, client).Register(context.Background(), req))

	assert.Equal(t, []string{"old-1", "old-2"}, deleted)
	require.Len(t, regs, 2)

	assert.Equal(t, hub.PlatformFcm, regs[0].platform)
	assert.Equal(t, "ABCDEFGHIJ", regs[0].channel)
	assert.Equal(t, templates.FcmNormal, regs[0].body)
	assert.Equal(t, []string{"c:1:normal", "b:2:normal", "u:U1:normal", "o:android:normal"}, regs[0].tags)

	assert.Equal(t, templates.FcmCritical, regs[1].body)
	assert.Equal(t, []string{"c:1:critical", "b:2:critical", "u:U1:critical", "o:android:critical"}, regs[1].tags)

	assert.Equal(t, 0, client.Calls("CreateOrUpdateInstallation"))
	assert.Equal(t, 0, client.Calls("InstallationExists"))
}

func TestRegister_LegacyModeCreateFails(t *testing.T) {
	client := &hubtest.MockClient{
		CreateTemplateRegistrationFunc: func(ctx context.Context, platform hub.Platform, channel, body string, tags []string) (*hub.Registration, error) {
			return nil, &hub.StatusError{Operation: "create_registration", StatusCode: http.StatusBadRequest}
		},
	}

	cfg := LoadConfig(config.RegistrationConfig{Mode: config.ModeLegacy})
	assert.False(t, newTestManager(t, cfg, client).Register(context.Background(), createTestRequest()))
	assert.Equal(t, 1, client.Calls("CreateTemplateRegistration"))
}
