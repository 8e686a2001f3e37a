package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"beachbookings/internal/models"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("BEACH_TEST_BASE_URL", "https://beach.example.com/")

	yamlContent := `
app:
  base_url: "${BEACH_TEST_BASE_URL}"
database:
  path: "test.db"
facilities:
  - id: "nordre"
    name: "Nordre Beach"
    courts: ["A", "B"]
    durations: ["60", "90"]
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.App.BaseURL != "https://beach.example.com" {
		t.Errorf("expected expanded base_url without trailing slash, got %s", cfg.App.BaseURL)
	}
	if len(cfg.Facilities) != 1 || cfg.Facilities[0].ID != "nordre" {
		t.Fatalf("expected 1 facility with ID nordre")
	}
	if len(cfg.Facilities[0].Courts) != 2 {
		t.Errorf("expected 2 courts, got %d", len(cfg.Facilities[0].Courts))
	}
	if cfg.Mail.Provider != MailProviderLog {
		t.Errorf("expected log mail provider without api key, got %s", cfg.Mail.Provider)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateConfig(t *testing.T) {
	base := func() Config {
		return Config{
			App:      AppConfig{BaseURL: "https://beach.example.com"},
			Database: DatabaseConfig{Path: "path"},
			Mail:     MailConfig{Provider: MailProviderLog},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing database path", mutate: func(c *Config) { c.Database.Path = "" }, wantErr: true},
		{name: "missing base url", mutate: func(c *Config) { c.App.BaseURL = "" }, wantErr: true},
		{name: "unknown mail provider", mutate: func(c *Config) { c.Mail.Provider = "smtp" }, wantErr: true},
		{
			name: "resend without from",
			mutate: func(c *Config) {
				c.Mail.Provider = MailProviderResend
				c.Mail.APIKey = "key"
			},
			wantErr: true,
		},
		{
			name: "telegram without chat",
			mutate: func(c *Config) {
				c.Telegram.BotToken = "token"
			},
			wantErr: true,
		},
		{
			name: "duplicate facility id",
			mutate: func(c *Config) {
				c.Facilities = []*models.Facility{{ID: "a", Name: "A"}, {ID: "a", Name: "B"}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.API.GRPC.Port != 8081 {
		t.Errorf("expected default gRPC port 8081, got %d", cfg.API.GRPC.Port)
	}
	if cfg.PollInterval() != 15*time.Second {
		t.Errorf("expected default poll interval 15s, got %s", cfg.PollInterval())
	}
	if cfg.DraftTTL() != 24*time.Hour {
		t.Errorf("expected default draft ttl 24h, got %s", cfg.DraftTTL())
	}
	if cfg.SendTimeout() != time.Duration(models.DefaultSendTimeout)*time.Second {
		t.Errorf("unexpected send timeout %s", cfg.SendTimeout())
	}
	if cfg.API.Identity.HeaderUserID != "X-Auth-User-Id" {
		t.Errorf("unexpected identity header %s", cfg.API.Identity.HeaderUserID)
	}

	withKey := &Config{Mail: MailConfig{APIKey: "re_123"}}
	withKey.applyDefaults()
	if withKey.Mail.Provider != MailProviderResend {
		t.Errorf("expected resend provider when api key set, got %s", withKey.Mail.Provider)
	}
}

func TestAppConfigLocation(t *testing.T) {
	if (AppConfig{}).Location() != time.UTC {
		t.Error("expected UTC for empty timezone")
	}
	if (AppConfig{Timezone: "Not/AZone"}).Location() != time.UTC {
		t.Error("expected UTC fallback for invalid timezone")
	}
}

func TestValidateFacilities(t *testing.T) {
	tests := []struct {
		name       string
		facilities []*models.Facility
		wantErr    bool
	}{
		{
			name:       "Valid facilities",
			facilities: []*models.Facility{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
		},
		{
			name:       "Duplicate ID",
			facilities: []*models.Facility{{ID: "a", Name: "A"}, {ID: "a", Name: "B"}},
			wantErr:    true,
		},
		{
			name:       "Empty ID",
			facilities: []*models.Facility{{ID: " ", Name: "A"}},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFacilities(tt.facilities)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFacilities() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
