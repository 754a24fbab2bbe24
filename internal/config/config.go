package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrBackendURLMissing = errors.New("BACKEND_URL is not set")
	ErrBackendKeyMissing = errors.New("BACKEND_KEY is not set")
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string        `yaml:"listen_addr"`
	Port              string        `yaml:"port"`
	GinMode           string        `yaml:"gin_mode"`
	DatabaseDriver    string        `yaml:"database_driver"`
	DatabaseDSN       string        `yaml:"database_dsn"`
	BackendURL        string        `yaml:"backend_url"`
	BackendKey        string        `yaml:"backend_key"`
	SessionTTL        time.Duration `yaml:"session_ttl"`
	Storage           StorageConfig `yaml:"storage"`
	ThumbnailMaxWidth int           `yaml:"thumbnail_max_width"`
	ContactFormAction string        `yaml:"contact_form_action"`
	AdminEmail        string        `yaml:"admin_email"`
	AdminPassword     string        `yaml:"admin_password"`
}

// StorageConfig describes where thumbnails are kept.
type StorageConfig struct {
	Type      string `yaml:"type"` // local, s3
	Bucket    string `yaml:"bucket"`
	Dir       string `yaml:"dir"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PublicURL string `yaml:"public_url"`
}

// Load 从环境变量（以及可选的 CONFIG_FILE）读取应用配置，并为缺失项提供默认值。
// BACKEND_URL 与 BACKEND_KEY 为必填项，缺失时返回错误。
func Load() (AppConfig, error) {
	var cfg AppConfig

	if path := env("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	override(&cfg.Port, "PORT")
	override(&cfg.ListenAddr, "LISTEN_ADDR")
	override(&cfg.GinMode, "GIN_MODE")
	override(&cfg.DatabaseDriver, "DATABASE_DRIVER")
	override(&cfg.DatabaseDSN, "DATABASE_DSN")
	override(&cfg.BackendURL, "BACKEND_URL")
	override(&cfg.BackendKey, "BACKEND_KEY")
	override(&cfg.Storage.Type, "STORAGE_TYPE")
	override(&cfg.Storage.Bucket, "STORAGE_BUCKET")
	override(&cfg.Storage.Dir, "STORAGE_DIR")
	override(&cfg.Storage.Endpoint, "STORAGE_ENDPOINT")
	override(&cfg.Storage.Region, "STORAGE_REGION")
	override(&cfg.Storage.AccessKey, "STORAGE_ACCESS_KEY")
	override(&cfg.Storage.SecretKey, "STORAGE_SECRET_KEY")
	override(&cfg.Storage.PublicURL, "STORAGE_PUBLIC_URL")
	override(&cfg.ContactFormAction, "CONTACT_FORM_ACTION")
	override(&cfg.AdminEmail, "ADMIN_EMAIL")
	override(&cfg.AdminPassword, "ADMIN_PASSWORD")

	if raw := env("THUMBNAIL_MAX_WIDTH"); raw != "" {
		width, err := strconv.Atoi(raw)
		if err != nil {
			return cfg, fmt.Errorf("invalid THUMBNAIL_MAX_WIDTH %q: %w", raw, err)
		}
		cfg.ThumbnailMaxWidth = width
	}
	if raw := env("SESSION_TTL"); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil {
			return cfg, fmt.Errorf("invalid SESSION_TTL %q: %w", raw, err)
		}
		cfg.SessionTTL = ttl
	}

	applyDefaults(&cfg)

	if cfg.BackendURL == "" {
		return cfg, ErrBackendURLMissing
	}
	if cfg.BackendKey == "" {
		return cfg, ErrBackendKeyMissing
	}
	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")

	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = fmt.Sprintf(":%s", cfg.Port)
	}
	if cfg.GinMode == "" {
		cfg.GinMode = "release"
	}
	if cfg.DatabaseDriver == "" {
		cfg.DatabaseDriver = "sqlite"
	}
	if cfg.DatabaseDSN == "" {
		cfg.DatabaseDSN = "kaedefolio.db"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "portfolio-thumbnails"
	}
	if cfg.Storage.Dir == "" {
		cfg.Storage.Dir = "data/storage"
	}
	if cfg.ThumbnailMaxWidth == 0 {
		cfg.ThumbnailMaxWidth = 1600
	}
	if cfg.ContactFormAction == "" {
		cfg.ContactFormAction = "https://formspree.io/f/meogdwvl"
	}
}

// Debug reports whether the service runs in gin debug mode.
func (c AppConfig) Debug() bool {
	return c.GinMode == "debug"
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func override(dst *string, key string) {
	if value := env(key); value != "" {
		*dst = value
	}
	*dst = strings.TrimSpace(*dst)
}
