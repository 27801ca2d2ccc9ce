package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kindlight/protection-core/internal/domain"
)

// Config holds all configuration for the protection core.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Stores    StoresConfig    `yaml:"stores"`
	Redis     RedisConfig     `yaml:"redis"`
	Allowlist AllowlistConfig `yaml:"allowlist"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Blackout  BlackoutConfig  `yaml:"blackout"`
	Backfill  BackfillConfig  `yaml:"backfill"`
	Auth      AuthConfig      `yaml:"auth"`
	Archive   ArchiveConfig   `yaml:"archive"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// PartnerTimeoutSeconds bounds partner extend/release requests; on
	// timeout the blackout's prior state is retained unchanged.
	PartnerTimeoutSeconds int `yaml:"partner_timeout_seconds"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PartnerTimeout returns the partner request timeout as a duration.
func (c ServerConfig) PartnerTimeout() time.Duration {
	return time.Duration(c.PartnerTimeoutSeconds) * time.Second
}

// StoresConfig holds the two storage-domain DSNs. They must point at
// separate databases with separate credentials.
type StoresConfig struct {
	FamilyDSN string `yaml:"family_dsn"`
	SealedDSN string `yaml:"sealed_dsn"`
}

// RedisConfig holds cache/lock/queue settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AllowlistConfig holds protected-resource feed settings.
type AllowlistConfig struct {
	FeedURL                   string `yaml:"feed_url"`
	RefreshIntervalMinutes    int    `yaml:"refresh_interval_minutes"`
	StalenessThresholdMinutes int    `yaml:"staleness_threshold_minutes"`
}

// RefreshInterval returns the feed poll interval.
func (c AllowlistConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMinutes) * time.Minute
}

// StalenessThreshold returns the age past which the list is considered stale.
func (c AllowlistConfig) StalenessThreshold() time.Duration {
	return time.Duration(c.StalenessThresholdMinutes) * time.Minute
}

// ScheduleConfig holds gap-schedule generation settings.
type ScheduleConfig struct {
	// Waking-hours range in minutes-of-day; gaps are confined to it.
	WakingStartMinute int `yaml:"waking_start_minute"`
	WakingEndMinute   int `yaml:"waking_end_minute"`
	MinSpacingMinutes int `yaml:"min_spacing_minutes"`
	CacheTTLHours     int `yaml:"cache_ttl_hours"`
}

// MinSpacing returns the minimum distance between gap windows.
func (c ScheduleConfig) MinSpacing() time.Duration {
	return time.Duration(c.MinSpacingMinutes) * time.Minute
}

// CacheTTL returns how long a generated schedule may live in the cache.
func (c ScheduleConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}

// BlackoutConfig holds blackout sweep settings.
type BlackoutConfig struct {
	SweepIntervalMinutes int `yaml:"sweep_interval_minutes"`
	CacheTTLSeconds      int `yaml:"cache_ttl_seconds"`
}

// SweepInterval returns how often the expiry sweep runs.
func (c BlackoutConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMinutes) * time.Minute
}

// CacheTTL returns the active-blackout cache TTL on the decision path.
func (c BlackoutConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// BackfillConfig holds synthetic backfill settings.
type BackfillConfig struct {
	HistoryWindowDays  int `yaml:"history_window_days"`
	MinHistoryEntries  int `yaml:"min_history_entries"`
	WidenedWindowDays  int `yaml:"widened_window_days"`
	MaxRetries         int `yaml:"max_retries"`
	RetryBackoffSecond int `yaml:"retry_backoff_seconds"`
}

// RetryBackoff returns the base backoff between backfill retries.
func (c BackfillConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffSecond) * time.Second
}

// AuthConfig holds principal verification keys. Partner, compliance, and
// gate tokens are signed with different keys; there is no key under which
// a family-scoped credential validates.
type AuthConfig struct {
	PartnerSigningKey    string `yaml:"partner_signing_key"`
	ComplianceSigningKey string `yaml:"compliance_signing_key"`
	GateSigningKey       string `yaml:"gate_signing_key"`
	Issuer               string `yaml:"issuer"`
}

// ArchiveConfig holds S3 legal-hold export settings for the sealed log.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	S3Bucket  string `yaml:"s3_bucket"`
	S3Region  string `yaml:"s3_region"`
	S3Prefix  string `yaml:"s3_prefix"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.PartnerTimeoutSeconds == 0 {
		cfg.Server.PartnerTimeoutSeconds = 10
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Allowlist.RefreshIntervalMinutes == 0 {
		cfg.Allowlist.RefreshIntervalMinutes = 15
	}
	if cfg.Allowlist.StalenessThresholdMinutes == 0 {
		cfg.Allowlist.StalenessThresholdMinutes = 120
	}
	if cfg.Schedule.WakingStartMinute == 0 {
		cfg.Schedule.WakingStartMinute = 7 * 60
	}
	if cfg.Schedule.WakingEndMinute == 0 {
		cfg.Schedule.WakingEndMinute = 22 * 60
	}
	if cfg.Schedule.MinSpacingMinutes == 0 {
		cfg.Schedule.MinSpacingMinutes = int(domain.MinGapSpacing.Minutes())
	}
	if cfg.Schedule.CacheTTLHours == 0 {
		cfg.Schedule.CacheTTLHours = 26
	}
	if cfg.Blackout.SweepIntervalMinutes == 0 {
		cfg.Blackout.SweepIntervalMinutes = 5
	}
	if cfg.Blackout.CacheTTLSeconds == 0 {
		cfg.Blackout.CacheTTLSeconds = 30
	}
	if cfg.Backfill.HistoryWindowDays == 0 {
		cfg.Backfill.HistoryWindowDays = 14
	}
	if cfg.Backfill.MinHistoryEntries == 0 {
		cfg.Backfill.MinHistoryEntries = 40
	}
	if cfg.Backfill.WidenedWindowDays == 0 {
		cfg.Backfill.WidenedWindowDays = 60
	}
	if cfg.Backfill.MaxRetries == 0 {
		cfg.Backfill.MaxRetries = 5
	}
	if cfg.Backfill.RetryBackoffSecond == 0 {
		cfg.Backfill.RetryBackoffSecond = 30
	}
	if cfg.Auth.Issuer == "" {
		cfg.Auth.Issuer = "kindlight-protection-core"
	}
	if cfg.Archive.S3Region == "" {
		cfg.Archive.S3Region = "us-east-1"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// A .env file (if present) is loaded first, so secrets can live in .env
// locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FAMILY_DATABASE_URL"); v != "" {
		cfg.Stores.FamilyDSN = v
	}
	if v := os.Getenv("SEALED_DATABASE_URL"); v != "" {
		cfg.Stores.SealedDSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("ALLOWLIST_FEED_URL"); v != "" {
		cfg.Allowlist.FeedURL = v
	}
	if v := os.Getenv("PARTNER_SIGNING_KEY"); v != "" {
		cfg.Auth.PartnerSigningKey = v
	}
	if v := os.Getenv("COMPLIANCE_SIGNING_KEY"); v != "" {
		cfg.Auth.ComplianceSigningKey = v
	}
	if v := os.Getenv("GATE_SIGNING_KEY"); v != "" {
		cfg.Auth.GateSigningKey = v
	}
	if v := os.Getenv("ARCHIVE_S3_BUCKET"); v != "" {
		cfg.Archive.S3Bucket = v
		cfg.Archive.Enabled = true
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.Archive.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.Archive.SecretKey = v
	}

	return cfg, nil
}

// Validate checks invariants that must hold before the process starts.
// The two stores must be distinct: a shared database would collapse the
// isolation boundary the whole system exists to maintain.
func (c *Config) Validate() error {
	if c.Stores.FamilyDSN == "" || c.Stores.SealedDSN == "" {
		return fmt.Errorf("both family and sealed store DSNs are required")
	}
	if c.Stores.FamilyDSN == c.Stores.SealedDSN {
		return fmt.Errorf("family and sealed stores must not share a DSN")
	}
	if c.Schedule.WakingStartMinute >= c.Schedule.WakingEndMinute {
		return fmt.Errorf("waking hours range is empty")
	}
	return nil
}
