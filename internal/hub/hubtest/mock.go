// Package hubtest provides a function-field fake of hub.Client for tests.
package hubtest

import (
	"context"
	"sync"

	"notification-gateway/internal/hub"
)

// MockClient implements hub.Client. A nil func field returns zero values.
// Every call is recorded by operation name.
type MockClient struct {
	GetRegistrationsByTagFunc         func(ctx context.Context, tag string, top int) ([]hub.Registration, error)
	GetRegistrationsByChannelFunc     func(ctx context.Context, channel string, top int) ([]hub.Registration, error)
	DeleteRegistrationFunc            func(ctx context.Context, registrationID string) error
	InstallationExistsFunc            func(ctx context.Context, installationID string) (bool, error)
	CreateOrUpdateInstallationFunc    func(ctx context.Context, installation *hub.Installation) error
	SendTemplateNotificationFunc      func(ctx context.Context, properties map[string]string, tagExpression string) (*hub.SendResult, error)
	GetNotificationOutcomeDetailsFunc func(ctx context.Context, notificationID string) (*hub.NotificationOutcome, error)
	CreateTemplateRegistrationFunc    func(ctx context.Context, platform hub.Platform, channel, bodyTemplate string, tags []string) (*hub.Registration, error)

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockClient) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
}

// Calls returns how many times op was invoked, e.g. "SendTemplateNotification".
func (m *MockClient) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// TotalCalls returns the number of hub calls of any kind.
func (m *MockClient) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *MockClient) GetRegistrationsByTag(ctx context.Context, tag string, top int) ([]hub.Registration, error) {
	m.record("GetRegistrationsByTag")
	if m.GetRegistrationsByTagFunc == nil {
		return nil, nil
	}
	return m.GetRegistrationsByTagFunc(ctx, tag, top)
}

func (m *MockClient) GetRegistrationsByChannel(ctx context.Context, channel string, top int) ([]hub.Registration, error) {
	m.record("GetRegistrationsByChannel")
	if m.GetRegistrationsByChannelFunc == nil {
		return nil, nil
	}
	return m.GetRegistrationsByChannelFunc(ctx, channel, top)
}

func (m *MockClient) DeleteRegistration(ctx context.Context, registrationID string) error {
	m.record("DeleteRegistration")
	if m.DeleteRegistrationFunc == nil {
		return nil
	}
	return m.DeleteRegistrationFunc(ctx, registrationID)
}

func (m *MockClient) InstallationExists(ctx context.Context, installationID string) (bool, error) {
	m.record("InstallationExists")
	if m.InstallationExistsFunc == nil {
		return false, nil
	}
	return m.InstallationExistsFunc(ctx, installationID)
}

func (m *MockClient) CreateOrUpdateInstallation(ctx context.Context, installation *hub.Installation) error {
	m.record("CreateOrUpdateInstallation")
	if m.CreateOrUpdateInstallationFunc == nil {
		return nil
	}
	return m.CreateOrUpdateInstallationFunc(ctx, installation)
}

func (m *MockClient) SendTemplateNotification(ctx context.Context, properties map[string]string, tagExpression string) (*hub.SendResult, error) {
	m.record("SendTemplateNotification")
	if m.SendTemplateNotificationFunc == nil {
		return &hub.SendResult{}, nil
	}
	return m.SendTemplateNotificationFunc(ctx, properties, tagExpression)
}

func (m *MockClient) GetNotificationOutcomeDetails(ctx context.Context, notificationID string) (*hub.NotificationOutcome, error) {
	m.record("GetNotificationOutcomeDetails")
	if m.GetNotificationOutcomeDetailsFunc == nil {
		return &hub.NotificationOutcome{NotificationID: notificationID, State: hub.StateCompleted}, nil
	}
	return m.GetNotificationOutcomeDetailsFunc(ctx, notificationID)
}

func (m *MockClient) CreateTemplateRegistration(ctx context.Context, platform hub.Platform, channel, bodyTemplate string, tags []string) (*hub.Registration, error) {
	m.record("CreateTemplateRegistration")
	if m.CreateTemplateRegistrationFunc == nil {
		return &hub.Registration{Platform: platform, PushChannel: channel, Tags: tags, BodyTemplate: bodyTemplate}, nil
	}
	return m.CreateTemplateRegistrationFunc(ctx, platform, channel, bodyTemplate, tags)
}

var _ hub.Client = (*MockClient)(nil)
