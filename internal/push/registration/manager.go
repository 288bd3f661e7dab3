// internal/push/registration/manager.go
package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"notification-gateway/internal/common/config"
	"notification-gateway/internal/common/logger"
	"notification-gateway/internal/common/metrics"
	"notification-gateway/internal/hub"
	"notification-gateway/internal/models"
	"notification-gateway/internal/push/tags"
	"notification-gateway/internal/push/templates"
)

var ErrInvalidRequest = errors.New("invalid registration request")

// Locker serialises concurrent upserts of the same installation.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

type Manager struct {
	config  *Config
	hub     hub.Client
	catalog *templates.Catalog
	locker  Locker
	logger  logger.Logger
}

type Option func(*Manager)

func WithLocker(l Locker) Option {
	return func(m *Manager) {
		m.locker = l
	}
}

func NewManager(cfg *Config, client hub.Client, catalog *templates.Catalog, log logger.Logger, opts ...Option) *Manager {
	if catalog == nil {
		catalog = templates.Default()
	}
	m := &Manager{
		config:  cfg,
		hub:     client,
		catalog: catalog,
		logger:  log.WithFields(map[string]interface{}{"component": "registration"}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Register reconciles the device's hub state with req. Failures are logged
// and reported as false.
func (m *Manager) Register(ctx context.Context, req *models.RegistrationRequest) bool {
	err := m.RegisterDevice(ctx, req)
	return err == nil
}

// RegisterDevice is Register with the failure cause returned.
func (m *Manager) RegisterDevice(ctx context.Context, req *models.RegistrationRequest) error {
	if err := validate(req); err != nil {
		m.logger.Warn("Rejected registration request", map[string]interface{}{"error": err})
		return err
	}

	platform := hub.PlatformFor(req.OS)
	log := m.logger.WithFields(map[string]interface{}{
		"userId":   req.UserID,
		"clientId": req.ClientID,
		"platform": platform.Name(),
		"mode":     m.config.Mode,
	})

	var err error
	switch m.config.Mode {
	case config.ModeLegacy:
		err = m.registerLegacy(ctx, req, platform, log)
	default:
		err = m.registerInstallation(ctx, req, platform, log)
	}

	if err != nil {
		metrics.Registrations.WithLabelValues(platform.Name(), ResultFailed, m.config.Mode).Inc()
		log.Error("Device registration failed", map[string]interface{}{"error": err})
		return err
	}

	metrics.Registrations.WithLabelValues(platform.Name(), ResultSuccess, m.config.Mode).Inc()
	log.Info("Device registered", nil)
	return nil
}

func validate(req *models.RegistrationRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.Token) == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidRequest)
	}
	if strings.TrimSpace(req.UserID) == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}
	return nil
}

func (m *Manager) registerInstallation(ctx context.Context, req *models.RegistrationRequest, platform hub.Platform, log logger.Logger) error {
	installation := m.BuildInstallation(req)
	log = log.WithFields(map[string]interface{}{"installationId": installation.InstallationID})

	release := m.lock(ctx, installation.InstallationID, log)
	defer release()

	exists, err := m.hub.InstallationExists(ctx, installation.InstallationID)
	if err != nil {
		return fmt.Errorf("check installation %s: %w", installation.InstallationID, err)
	}

	if !exists {
		if err := m.deleteStaleRegistrations(ctx, req.Token, log); err != nil {
			return err
		}
	}

	if err := m.hub.CreateOrUpdateInstallation(ctx, installation); err != nil {
		return fmt.Errorf("upsert installation %s: %w", installation.InstallationID, err)
	}
	return nil
}

// deleteStaleRegistrations removes registrations left on the device token by
// the registration-based scheme. The hub filter on ChannelUri is exact and
// APNs channels are stored upper-cased, so both spellings are queried.
func (m *Manager) deleteStaleRegistrations(ctx context.Context, token string, log logger.Logger) error {
	seen := make(map[string]struct{})
	var stale []string

	for _, channel := range channelVariants(token) {
		regs, err := m.hub.GetRegistrationsByChannel(ctx, channel, m.config.LegacyLookupLimit)
		if err != nil {
			return fmt.Errorf("lookup registrations by channel: %w", err)
		}
		for _, reg := range regs {
			if !strings.EqualFold(reg.PushChannel, token) {
				continue
			}
			if _, dup := seen[reg.RegistrationID]; dup {
				continue
			}
			seen[reg.RegistrationID] = struct{}{}
			stale = append(stale, reg.RegistrationID)
		}
	}

	for _, id := range stale {
		if err := m.deleteRegistration(ctx, id); err != nil {
			return err
		}
		log.Debug("Deleted stale registration", map[string]interface{}{"registrationId": id})
	}
	return nil
}

// channelVariants returns token and, when different, its upper-cased form.
func channelVariants(token string) []string {
	upper := strings.ToUpper(token)
	if upper == token {
		return []string{token}
	}
	return []string{token, upper}
}

func (m *Manager) deleteRegistration(ctx context.Context, registrationID string) error {
	if err := m.hub.DeleteRegistration(ctx, registrationID); err != nil {
		if hub.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete registration %s: %w", registrationID, err)
	}
	metrics.StaleRegistrationsDeleted.Inc()
	return nil
}

// registerLegacy replaces every registration carrying the user's raw id tag
// with one normal and one critical template registration.
func (m *Manager) registerLegacy(ctx context.Context, req *models.RegistrationRequest, platform hub.Platform, log logger.Logger) error {
	regs, err := m.hub.GetRegistrationsByTag(ctx, req.UserID, m.config.LegacyLookupLimit)
	if err != nil {
		return fmt.Errorf("lookup registrations by tag: %w", err)
	}
	for _, reg := range regs {
		if err := m.deleteRegistration(ctx, reg.RegistrationID); err != nil {
			return err
		}
	}
	log.Debug("Cleared previous registrations", map[string]interface{}{"count": len(regs)})

	base := []string{
		tags.Client(req.ClientID),
		tags.Building(req.BuildingID),
		tags.User(req.UserID),
		tags.OS(req.OS),
	}

	for _, critical := range []bool{false, true} {
		body, _ := m.catalog.TemplateFor(platform, critical)
		if _, err := m.hub.CreateTemplateRegistration(ctx, platform, req.Token, body, tags.WithSuffix(base, critical)); err != nil {
			return fmt.Errorf("create %s registration: %w", strings.TrimPrefix(tags.Suffix(critical), ":"), err)
		}
	}
	return nil
}

// BuildInstallation derives the desired installation for req.
func (m *Manager) BuildInstallation(req *models.RegistrationRequest) *hub.Installation {
	platform := hub.PlatformFor(req.OS)

	base := []string{
		tags.Client(req.ClientID),
		tags.User(req.UserID),
		tags.OS(req.OS),
	}
	if m.config.TagBuilding {
		base = append(base, tags.Building(req.BuildingID))
	}

	critical, _ := m.catalog.TemplateFor(platform, true)
	normal, _ := m.catalog.TemplateFor(platform, false)

	return &hub.Installation{
		InstallationID: InstallationID(req.UserID, req.Token, m.config.TokenPrefixLength),
		Platform:       platform,
		PushChannel:    req.Token,
		Tags:           base,
		Templates: map[string]hub.InstallationTemplate{
			templates.LegacyTemplateName: {
				Body: m.catalog.LegacyTemplateFor(platform),
				Tags: []string{req.UserID, legacyPlatformTag(platform)},
			},
			templates.CriticalTemplateName: {
				Body: critical,
				Tags: tags.WithSuffix(base, true),
			},
			templates.NormalTemplateName: {
				Body: normal,
				Tags: tags.WithSuffix(base, false),
			},
		},
	}
}

// InstallationID is userId + "_" + the first prefixLen characters of the
// token, or the whole token when it is shorter.
func InstallationID(userID, token string, prefixLen int) string {
	runes := []rune(token)
	if prefixLen < len(runes) {
		runes = runes[:prefixLen]
	}
	return userID + "_" + string(runes)
}

// lock takes the per-installation lock when a locker is configured. Lock
// failures are logged and the registration proceeds unlocked.
func (m *Manager) lock(ctx context.Context, key string, log logger.Logger) func() {
	if m.locker == nil {
		return func() {}
	}

	lockCtx, cancel := context.WithTimeout(ctx, m.config.LockTTL)
	defer cancel()

	release, err := m.locker.Acquire(lockCtx, key, m.config.LockTTL)
	if err != nil {
		log.Warn("Proceeding without installation lock", map[string]interface{}{"error": err})
		return func() {}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			log.Warn("Failed to release installation lock", map[string]interface{}{"error": err})
		}
	}
}
