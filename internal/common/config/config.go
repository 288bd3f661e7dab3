// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Server        ServerConfig       `mapstructure:"server"`
	Hub           HubConfig          `mapstructure:"hub"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Registration  RegistrationConfig `mapstructure:"registration"`
	Templates     TemplateConfig     `mapstructure:"templates"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Metrics       MetricsConfig      `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// HubConfig points at the notification hub namespace.
type HubConfig struct {
	ConnectionString string  `mapstructure:"connection_string"`
	HubName          string  `mapstructure:"hub_name"`
	APIVersion       string  `mapstructure:"api_version"`
	Timeout          int     `mapstructure:"timeout"`    // milliseconds
	RateLimit        float64 `mapstructure:"rate_limit"` // requests per second, 0 disables
	RateBurst        int     `mapstructure:"rate_burst"`
}

// Overflow policies for recipient lists longer than MaxTagsPerExpression.
const (
	OverflowTruncate = "truncate"
	OverflowChunk    = "chunk"
	OverflowError    = "error"
)

// NotificationConfig holds settings for the notification dispatcher.
type NotificationConfig struct {
	MaxTagsPerExpression int    `mapstructure:"max_tags_per_expression"`
	OnOverflow           string `mapstructure:"on_overflow"`
	PollInterval         int    `mapstructure:"poll_interval"` // milliseconds
	PollTimeout          int    `mapstructure:"poll_timeout"`  // milliseconds
	DefaultSound         string `mapstructure:"default_sound"`
	IOSSoundExtension    string `mapstructure:"ios_sound_extension"`
	ReportSendFailures   bool   `mapstructure:"report_send_failures"`
}

// Registration modes.
const (
	ModeInstallation = "installation"
	ModeLegacy       = "legacy"
)

// RegistrationConfig holds settings for the registration manager.
type RegistrationConfig struct {
	Mode              string `mapstructure:"mode"`
	TokenPrefixLength int    `mapstructure:"token_prefix_length"`
	TagBuilding       bool   `mapstructure:"tag_building"`
	LockTTL           int    `mapstructure:"lock_ttl"` // milliseconds
	LookupLimit       int    `mapstructure:"lookup_limit"`
	LegacyLookupLimit int    `mapstructure:"legacy_lookup_limit"`
}

// TemplateConfig holds the payload template bodies. Empty entries fall back
// to the built-in catalog; RegistryPath points at an optional JSON override file.
type TemplateConfig struct {
	RegistryPath string `mapstructure:"registry_path"`
	FcmNormal    string `mapstructure:"fcm_normal"`
	FcmCritical  string `mapstructure:"fcm_critical"`
	FcmLegacy    string `mapstructure:"fcm_legacy"`
	ApnsNormal   string `mapstructure:"apns_normal"`
	ApnsCritical string `mapstructure:"apns_critical"`
	ApnsLegacy   string `mapstructure:"apns_legacy"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// PollIntervalDuration returns the outcome polling interval.
func (n NotificationConfig) PollIntervalDuration() time.Duration {
	return GetDuration(n.PollInterval)
}

// PollTimeoutDuration returns the wall-clock budget for outcome polling.
func (n NotificationConfig) PollTimeoutDuration() time.Duration {
	return GetDuration(n.PollTimeout)
}
