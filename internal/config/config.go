package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"beachbookings/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig          `yaml:"app"`
	Database   DatabaseConfig     `yaml:"database"`
	Redis      RedisConfig        `yaml:"redis"`
	Backup     BackupConfig       `yaml:"backup"`
	Monitoring MonitoringConfig   `yaml:"monitoring"`
	Logging    LoggingConfig      `yaml:"logging"`
	API        APIConfig          `yaml:"api"`
	Mail       MailConfig         `yaml:"mail"`
	Notify     NotifyConfig       `yaml:"notify"`
	Telegram   TelegramConfig     `yaml:"telegram"`
	Google     GoogleConfig       `yaml:"google"`
	Drafts     DraftsConfig       `yaml:"drafts"`
	Facilities []*models.Facility `yaml:"facilities"`
}

type AppConfig struct {
	Name         string `yaml:"name"`
	Environment  string `yaml:"environment"`
	Version      string `yaml:"version"`
	BaseURL      string `yaml:"base_url"`
	PollInterval int    `yaml:"poll_interval"`
	Timezone     string `yaml:"timezone"`
}

// Location resolves the configured timezone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	if a.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	GRPC      APIGRPCConfig      `yaml:"grpc"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	CORS      APICORSConfig      `yaml:"cors"`
	Identity  APIIdentityConfig  `yaml:"identity"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIGRPCConfig struct {
	Enabled    bool         `yaml:"enabled"`
	Port       int          `yaml:"port"`
	Reflection bool         `yaml:"reflection"`
	TLS        APITLSConfig `yaml:"tls"`
}

type APITLSConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CertFile          string `yaml:"cert_file"`
	KeyFile           string `yaml:"key_file"`
	ClientCAFile      string `yaml:"client_ca_file"`
	RequireClientCert bool   `yaml:"require_client_cert"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type APICORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials bool     `yaml:"allow_credentials"`
}

// APIIdentityConfig names the headers the auth proxy sets on every request.
type APIIdentityConfig struct {
	HeaderUserID string `yaml:"header_user_id"`
	HeaderEmail  string `yaml:"header_email"`
	HeaderName   string `yaml:"header_name"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Interval      string `yaml:"interval"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MailConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	From     string `yaml:"from"`
	Endpoint string `yaml:"endpoint"`
}

type NotifyConfig struct {
	SendTimeout int `yaml:"send_timeout"`
}

type TelegramConfig struct {
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
	Debug    bool   `yaml:"debug"`
}

type GoogleConfig struct {
	GoogleCredentialsFile string `yaml:"credentials_file"`
	BookingSpreadSheetID  string `yaml:"bookings_spreadsheet_id"`
}

type DraftsConfig struct {
	TTL int `yaml:"ttl"`
}

const (
	MailProviderResend = "resend"
	MailProviderLog    = "log"
)

func Load(configPath string) (*Config, error) {
	// Загружаем .env файл если существует
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.App.BaseURL == "" {
		return errors.New("app base_url is required")
	}

	switch c.Mail.Provider {
	case MailProviderResend:
		if c.Mail.From == "" {
			return errors.New("mail from address is required for resend provider")
		}
	case MailProviderLog:
	default:
		return fmt.Errorf("unknown mail provider %q", c.Mail.Provider)
	}

	if c.Telegram.BotToken != "" && c.Telegram.ChatID == 0 {
		return errors.New("telegram chat_id is required when bot_token is set")
	}

	return ValidateFacilities(c.Facilities)
}

func ValidateFacilities(facilities []*models.Facility) error {
	ids := make(map[string]bool)
	for _, f := range facilities {
		if f == nil {
			continue
		}
		if strings.TrimSpace(f.ID) == "" {
			return fmt.Errorf("facility '%s' has empty ID", f.Name)
		}
		if ids[f.ID] {
			return fmt.Errorf("duplicate facility ID found: %s", f.ID)
		}
		ids[f.ID] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "beachbookings"
	}
	if c.App.PollInterval == 0 {
		c.App.PollInterval = models.DefaultPollInterval
	}
	c.App.BaseURL = strings.TrimRight(c.App.BaseURL, "/")

	if c.API.GRPC.Port == 0 {
		c.API.GRPC.Port = 8081
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Identity.HeaderUserID == "" {
		c.API.Identity.HeaderUserID = "X-Auth-User-Id"
	}
	if c.API.Identity.HeaderEmail == "" {
		c.API.Identity.HeaderEmail = "X-Auth-User-Email"
	}
	if c.API.Identity.HeaderName == "" {
		c.API.Identity.HeaderName = "X-Auth-User-Name"
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	// почта: без ключа письма только пишутся в лог
	if c.Mail.Provider == "" {
		if c.Mail.APIKey != "" {
			c.Mail.Provider = MailProviderResend
		} else {
			c.Mail.Provider = MailProviderLog
		}
	}
	if c.Mail.Endpoint == "" {
		c.Mail.Endpoint = "https://api.resend.com/emails"
	}
	if c.Notify.SendTimeout == 0 {
		c.Notify.SendTimeout = models.DefaultSendTimeout
	}
	if c.Drafts.TTL == 0 {
		c.Drafts.TTL = models.DefaultDraftTTL
	}
	if c.Backup.Interval == "" {
		c.Backup.Interval = "24h"
	}
	if c.Backup.RetentionDays == 0 {
		c.Backup.RetentionDays = 7
	}
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.App.PollInterval) * time.Second
}

func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.Notify.SendTimeout) * time.Second
}

func (c *Config) DraftTTL() time.Duration {
	return time.Duration(c.Drafts.TTL) * time.Second
}
