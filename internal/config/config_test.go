package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kindlight/protection-core/internal/domain"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeTempConfig(t, `
stores:
  family_dsn: "postgres://family@localhost/family"
  sealed_dsn: "postgres://sealed@localhost/sealed"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Schedule.WakingStartMinute != 420 || cfg.Schedule.WakingEndMinute != 1320 {
		t.Errorf("unexpected waking hours: %d-%d", cfg.Schedule.WakingStartMinute, cfg.Schedule.WakingEndMinute)
	}
	if cfg.Schedule.MinSpacingMinutes != int(domain.MinGapSpacing.Minutes()) {
		t.Errorf("expected %s default spacing, got %d min", domain.MinGapSpacing, cfg.Schedule.MinSpacingMinutes)
	}
	if cfg.Blackout.SweepIntervalMinutes != 5 {
		t.Errorf("expected 5m sweep interval, got %d", cfg.Blackout.SweepIntervalMinutes)
	}
}

func TestLoad_ExplicitValues(t *testing.T) {
	path := writeTempConfig(t, `
server:
  port: 9090
  partner_timeout_seconds: 3
schedule:
  waking_start_minute: 480
  waking_end_minute: 1260
allowlist:
  feed_url: "https://feeds.example.org/protected.json"
  staleness_threshold_minutes: 60
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port: got %d", cfg.Server.Port)
	}
	if cfg.Server.PartnerTimeout().Seconds() != 3 {
		t.Errorf("partner timeout: got %s", cfg.Server.PartnerTimeout())
	}
	if cfg.Allowlist.FeedURL != "https://feeds.example.org/protected.json" {
		t.Errorf("feed url: got %q", cfg.Allowlist.FeedURL)
	}
	if cfg.Allowlist.StalenessThreshold().Minutes() != 60 {
		t.Errorf("staleness: got %s", cfg.Allowlist.StalenessThreshold())
	}
}

func TestValidate_RejectsSharedDSN(t *testing.T) {
	cfg := &Config{
		Stores: StoresConfig{
			FamilyDSN: "postgres://same@localhost/db",
			SealedDSN: "postgres://same@localhost/db",
		},
		Schedule: ScheduleConfig{WakingStartMinute: 420, WakingEndMinute: 1320},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when family and sealed stores share a DSN")
	}
}

func TestValidate_RejectsEmptyWakingRange(t *testing.T) {
	cfg := &Config{
		Stores: StoresConfig{
			FamilyDSN: "postgres://a@localhost/family",
			SealedDSN: "postgres://b@localhost/sealed",
		},
		Schedule: ScheduleConfig{WakingStartMinute: 1320, WakingEndMinute: 420},
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for inverted waking-hours range")
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	path := writeTempConfig(t, `
stores:
  family_dsn: "postgres://family@localhost/family"
  sealed_dsn: "postgres://sealed@localhost/sealed"
`)

	t.Setenv("SEALED_DATABASE_URL", "postgres://sealed@db.internal/sealed")
	t.Setenv("PARTNER_SIGNING_KEY", "partner-key")

	cfg, err := LoadFromEnv(path)
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Stores.SealedDSN != "postgres://sealed@db.internal/sealed" {
		t.Errorf("sealed DSN not overridden: %q", cfg.Stores.SealedDSN)
	}
	if cfg.Auth.PartnerSigningKey != "partner-key" {
		t.Errorf("partner key not overridden")
	}
}
