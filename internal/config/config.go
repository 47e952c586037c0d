package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "CLOUDVAULT"

type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	History HistoryConfig `mapstructure:"history"`
	Notify  NotifyConfig  `mapstructure:"notify"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadMB     int64         `mapstructure:"max_upload_mb"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

type StorageConfig struct {
	Type     string `mapstructure:"type"`
	Bucket   string `mapstructure:"bucket"`
	Compress bool   `mapstructure:"compress"`

	// AWS S3 and S3-compatible services (IBM COS, MinIO)
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	PathStyle bool   `mapstructure:"path_style"`

	// Google Drive
	CredentialsFile   string `mapstructure:"credentials_file"`
	FolderID          string `mapstructure:"folder_id"`
	OAuthClientSecret string `mapstructure:"oauth_client_secret"`
	OAuthRefreshToken string `mapstructure:"oauth_refresh_token"`

	// Local
	LocalPath string `mapstructure:"local_path"`
}

type HistoryConfig struct {
	RetentionDays   int    `mapstructure:"retention_days"`
	CleanupSchedule string `mapstructure:"cleanup_schedule"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// Load reads the YAML file at path, if it exists, and applies CLOUDVAULT_*
// environment overrides on top of it.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !isNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// Every key gets a default so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "cloudvault")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_file", "")

	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", 5*time.Minute)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.idle_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_upload_mb", 0)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("storage.type", "s3")
	v.SetDefault("storage.bucket", "databackupandstoragesystem")
	v.SetDefault("storage.compress", false)
	v.SetDefault("storage.region", "us-south")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.access_key", "")
	v.SetDefault("storage.secret_key", "")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.path_style", false)
	v.SetDefault("storage.credentials_file", "")
	v.SetDefault("storage.folder_id", "")
	v.SetDefault("storage.oauth_client_secret", "")
	v.SetDefault("storage.oauth_refresh_token", "")
	v.SetDefault("storage.local_path", "./data")

	v.SetDefault("history.retention_days", 0)
	v.SetDefault("history.cleanup_schedule", "0 0 3 * * *")

	v.SetDefault("notify.telegram.enabled", false)
	v.SetDefault("notify.telegram.bot_token", "")
	v.SetDefault("notify.telegram.chat_id", "")
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.MaxUploadMB < 0 {
		return fmt.Errorf("server.max_upload_mb must not be negative")
	}

	s := c.Storage
	switch s.Type {
	case "s3", "minio":
		if s.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for %s", s.Type)
		}
		if s.Type == "minio" && s.Endpoint == "" {
			return fmt.Errorf("storage.endpoint is required for minio")
		}
		if (s.AccessKey == "") != (s.SecretKey == "") {
			return fmt.Errorf("storage.access_key and storage.secret_key must be set together")
		}
	case "gdrive":
		if s.FolderID == "" {
			return fmt.Errorf("storage.folder_id is required for gdrive")
		}
		if s.CredentialsFile == "" && s.OAuthClientSecret == "" {
			return fmt.Errorf("storage.credentials_file or storage.oauth_client_secret is required for gdrive")
		}
		if s.OAuthClientSecret != "" && s.CredentialsFile == "" && s.OAuthRefreshToken == "" {
			return fmt.Errorf("storage.oauth_refresh_token is required with storage.oauth_client_secret")
		}
	case "local":
		if s.LocalPath == "" {
			return fmt.Errorf("storage.local_path is required for local")
		}
	default:
		return fmt.Errorf("unknown storage.type %q", s.Type)
	}

	if c.History.RetentionDays < 0 {
		return fmt.Errorf("history.retention_days must not be negative")
	}
	if c.History.RetentionDays > 0 && c.History.CleanupSchedule == "" {
		return fmt.Errorf("history.cleanup_schedule is required when retention is enabled")
	}

	t := c.Notify.Telegram
	if t.Enabled && (t.BotToken == "" || t.ChatID == "") {
		return fmt.Errorf("notify.telegram: bot_token and chat_id are required when enabled")
	}

	return nil
}

// MaxUploadBytes returns the request body limit for uploads, 0 meaning none.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}
