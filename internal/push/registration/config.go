// internal/push/registration/config.go
package registration

import (
	"time"

	"notification-gateway/internal/common/config"
)

type Config struct {
	Mode              string
	TokenPrefixLength int
	TagBuilding       bool
	LockTTL           time.Duration
	LookupLimit       int
	LegacyLookupLimit int
}

func LoadConfig(cfg config.RegistrationConfig) *Config {
	c := &Config{
		Mode:              cfg.Mode,
		TokenPrefixLength: cfg.TokenPrefixLength,
		TagBuilding:       cfg.TagBuilding,
		LockTTL:           config.GetDuration(cfg.LockTTL),
		LookupLimit:       cfg.LookupLimit,
		LegacyLookupLimit: cfg.LegacyLookupLimit,
	}
	if c.Mode == "" {
		c.Mode = config.ModeInstallation
	}
	if c.TokenPrefixLength <= 0 {
		c.TokenPrefixLength = DefaultTokenPrefixLength
	}
	if c.LockTTL <= 0 {
		c.LockTTL = 10 * time.Second
	}
	if c.LookupLimit <= 0 {
		c.LookupLimit = 1000
	}
	if c.LegacyLookupLimit <= 0 {
		c.LegacyLookupLimit = 100
	}
	return c
}
