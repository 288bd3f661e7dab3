// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// HUB_CONNECTION_STRING overrides hub.connection_string
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // ignore error if not found

	expandEnvVars(v)

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(v)

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// report_send_failures defaults to true, so an absent key must not read as false
	if !v.IsSet("notifications.report_send_failures") {
		cfg.Notifications.ReportSendFailures = true
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// AutomaticEnv only resolves keys viper already knows about, so secrets that
// usually never appear in yaml are bound explicitly.
func bindEnvKeys(v *viper.Viper) {
	for _, key := range []string{
		"hub.connection_string",
		"hub.hub_name",
		"database.redis.address",
		"database.redis.password",
		"database.postgres.host",
		"database.postgres.user",
		"database.postgres.password",
		"database.postgres.database",
	} {
		_ = v.BindEnv(key)
	}
}

// Load .env from the working directory or the project root
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.Hub.ConnectionString == "" {
		if val := os.Getenv("AZURE_HUB_CONNECTION_STRING"); val != "" {
			cfg.Hub.ConnectionString = val
		}
	}
	if cfg.Hub.HubName == "" {
		if val := os.Getenv("AZURE_HUB_NAME"); val != "" {
			cfg.Hub.HubName = val
		}
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "notification-gateway"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}

	// Hub defaults
	if cfg.Hub.APIVersion == "" {
		cfg.Hub.APIVersion = "2020-06"
	}
	if cfg.Hub.Timeout == 0 {
		cfg.Hub.Timeout = 30000
	}
	if cfg.Hub.RateBurst == 0 && cfg.Hub.RateLimit > 0 {
		cfg.Hub.RateBurst = int(cfg.Hub.RateLimit)
		if cfg.Hub.RateBurst < 1 {
			cfg.Hub.RateBurst = 1
		}
	}

	// Notification defaults
	if cfg.Notifications.MaxTagsPerExpression == 0 {
		cfg.Notifications.MaxTagsPerExpression = 20
	}
	if cfg.Notifications.OnOverflow == "" {
		cfg.Notifications.OnOverflow = OverflowTruncate
	}
	if cfg.Notifications.PollInterval == 0 {
		cfg.Notifications.PollInterval = 500
	}
	if cfg.Notifications.PollTimeout == 0 {
		cfg.Notifications.PollTimeout = 5000
	}
	if cfg.Notifications.DefaultSound == "" {
		cfg.Notifications.DefaultSound = "alert"
	}
	if cfg.Notifications.IOSSoundExtension == "" {
		cfg.Notifications.IOSSoundExtension = ".wav"
	}

	// Registration defaults
	if cfg.Registration.Mode == "" {
		cfg.Registration.Mode = ModeInstallation
	}
	if cfg.Registration.TokenPrefixLength == 0 {
		cfg.Registration.TokenPrefixLength = 8
	}
	if cfg.Registration.LockTTL == 0 {
		cfg.Registration.LockTTL = 10000
	}
	if cfg.Registration.LookupLimit == 0 {
		cfg.Registration.LookupLimit = 1000
	}
	if cfg.Registration.LegacyLookupLimit == 0 {
		cfg.Registration.LegacyLookupLimit = 100
	}

	// Database defaults
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9090"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Hub.ConnectionString == "" {
		return fmt.Errorf("hub.connection_string is required")
	}
	if cfg.Hub.HubName == "" {
		return fmt.Errorf("hub.hub_name is required")
	}

	switch cfg.Notifications.OnOverflow {
	case OverflowTruncate, OverflowChunk, OverflowError:
	default:
		return fmt.Errorf("notifications.on_overflow must be one of truncate, chunk, error; got %q", cfg.Notifications.OnOverflow)
	}

	if cfg.Notifications.MaxTagsPerExpression < 1 || cfg.Notifications.MaxTagsPerExpression > 20 {
		return fmt.Errorf("notifications.max_tags_per_expression must be between 1 and 20")
	}
	if cfg.Notifications.PollInterval < 0 || cfg.Notifications.PollTimeout < 0 {
		return fmt.Errorf("notifications.poll_interval and poll_timeout must be positive")
	}

	switch cfg.Registration.Mode {
	case ModeInstallation, ModeLegacy:
	default:
		return fmt.Errorf("registration.mode must be installation or legacy; got %q", cfg.Registration.Mode)
	}

	if cfg.Database.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when redis is enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
