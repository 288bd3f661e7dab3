// internal/push/dispatch/config.go
package dispatch

import (
	"time"

	"notification-gateway/internal/common/config"
	"notification-gateway/internal/push/tags"
)

type Config struct {
	MaxTags           int
	OnOverflow        string
	PollInterval      time.Duration
	PollTimeout       time.Duration
	DefaultSound      string
	IOSSoundExtension string
}

func LoadConfig(cfg config.NotificationConfig) *Config {
	c := &Config{
		MaxTags:           cfg.MaxTagsPerExpression,
		OnOverflow:        cfg.OnOverflow,
		PollInterval:      cfg.PollIntervalDuration(),
		PollTimeout:       cfg.PollTimeoutDuration(),
		DefaultSound:      cfg.DefaultSound,
		IOSSoundExtension: cfg.IOSSoundExtension,
	}
	if c.MaxTags <= 0 || c.MaxTags > tags.MaxExpressionTags {
		c.MaxTags = tags.MaxExpressionTags
	}
	if c.OnOverflow == "" {
		c.OnOverflow = config.OverflowTruncate
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 500 * time.Millisecond
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 5 * time.Second
	}
	if c.DefaultSound == "" {
		c.DefaultSound = "alert"
	}
	if c.IOSSoundExtension == "" {
		c.IOSSoundExtension = ".wav"
	}
	return c
}

// MaxPolls is ceil(PollTimeout / PollInterval), at least one.
func (c *Config) MaxPolls() int {
	if c.PollInterval <= 0 {
		return 1
	}
	n := int((c.PollTimeout + c.PollInterval - 1) / c.PollInterval)
	if n < 1 {
		n = 1
	}
	return n
}
