package hub

import (
	"context"
	"strings"
)

// Platform is the push service an installation or registration targets.
type Platform string

const (
	PlatformApns Platform = "apns"
	PlatformFcm  Platform = "fcmv1"
)

// Name returns the platform's display name, e.g. "Apns".
func (p Platform) Name() string {
	switch p {
	case PlatformApns:
		return "Apns"
	case PlatformFcm:
		return "Fcm"
	}
	return string(p)
}

// InstallationTemplate is a named body template with its own tag set.
type InstallationTemplate struct {
	Body string   `json:"body"`
	Tags []string `json:"tags,omitempty"`
}

// Installation is the desired hub-side state for one device.
type Installation struct {
	InstallationID string                          `json:"installationId"`
	Platform       Platform                        `json:"platform"`
	PushChannel    string                          `json:"pushChannel"`
	Tags           []string                        `json:"tags,omitempty"`
	Templates      map[string]InstallationTemplate `json:"templates,omitempty"`
}

// Registration is a hub registration as returned by the registration feeds.
type Registration struct {
	RegistrationID string   `json:"registrationId"`
	ETag           string   `json:"etag,omitempty"`
	Platform       Platform `json:"platform,omitempty"`
	Type           string   `json:"type"`
	PushChannel    string   `json:"pushChannel"`
	Tags           []string `json:"tags"`
	BodyTemplate   string   `json:"bodyTemplate,omitempty"`
	ExpirationTime string   `json:"expirationTime,omitempty"`
}

// SendResult is returned by an accepted templated send.
type SendResult struct {
	NotificationID string `json:"notificationId"`
	TrackingID     string `json:"trackingId,omitempty"`
}

// OutcomeState mirrors the hub's NotificationOutcomeState.
type OutcomeState string

const (
	StateEnqueued               OutcomeState = "Enqueued"
	StateDetailedStateAvailable OutcomeState = "DetailedStateAvailable"
	StateProcessing             OutcomeState = "Processing"
	StateCompleted              OutcomeState = "Completed"
	StateAbandoned              OutcomeState = "Abandoned"
	StateUnknown                OutcomeState = "Unknown"
	StateNoTargetFound          OutcomeState = "NoTargetFound"
	StateCancelled              OutcomeState = "Cancelled"
)

// Failed reports whether the hub gave up on the notification.
func (s OutcomeState) Failed() bool {
	return s == StateAbandoned || s == StateCancelled
}

// NotificationOutcome is the delivery status of a sent notification.
type NotificationOutcome struct {
	NotificationID string       `json:"notificationId"`
	State          OutcomeState `json:"state"`
	EnqueueTime    string       `json:"enqueueTime,omitempty"`
	StartTime      string       `json:"startTime,omitempty"`
	EndTime        string       `json:"endTime,omitempty"`
}

// Client is the subset of the notification hub API the gateway consumes.
// Implementations must be safe for concurrent use.
type Client interface {
	GetRegistrationsByTag(ctx context.Context, tag string, top int) ([]Registration, error)
	GetRegistrationsByChannel(ctx context.Context, channel string, top int) ([]Registration, error)
	DeleteRegistration(ctx context.Context, registrationID string) error
	InstallationExists(ctx context.Context, installationID string) (bool, error)
	CreateOrUpdateInstallation(ctx context.Context, installation *Installation) error
	SendTemplateNotification(ctx context.Context, properties map[string]string, tagExpression string) (*SendResult, error)
	GetNotificationOutcomeDetails(ctx context.Context, notificationID string) (*NotificationOutcome, error)
	CreateTemplateRegistration(ctx context.Context, platform Platform, channel, bodyTemplate string, tags []string) (*Registration, error)
}

// PlatformFor maps a client OS string to a hub platform; only "ios"
// (any case) selects APNs.
func PlatformFor(os string) Platform {
	if strings.EqualFold(strings.TrimSpace(os), "ios") {
		return PlatformApns
	}
	return PlatformFcm
}
