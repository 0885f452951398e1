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

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port          string `yaml:"port"`
	LogLevel      string `yaml:"logLevel"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	TimeServiceURL string `yaml:"timeServiceURL"`
	RoomServiceURL string `yaml:"roomServiceURL"`
	AuthServiceURL string `yaml:"authServiceURL"`

	// DatabaseURL is optional; without it submissions are kept in memory.
	DatabaseURL string `yaml:"databaseURL"`

	StorageRoot     string `yaml:"storageRoot"`
	GeneratorType   string `yaml:"generatorType"`
	RoomGeneratorID string `yaml:"roomGeneratorId"`

	FlowTokenSecret string `yaml:"flowTokenSecret"`
	HandoffTTL      string `yaml:"handoffTTL"`

	FlowRateLimitPerMinute   int   `yaml:"flowRateLimitPerMinute"`
	UploadRateLimitPerMinute int   `yaml:"uploadRateLimitPerMinute"`
	MaxUploadBytes           int64 `yaml:"maxUploadBytes"`
}

// Load reads config from path (defaults to config.yaml) and applies
// environment overrides.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("WIZARD_PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("WIZARD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.MinioUseSSL = b
		}
	}
	if v := os.Getenv("WIZARD_TIME_SERVICE_URL"); v != "" {
		cfg.TimeServiceURL = v
	}
	if v := os.Getenv("WIZARD_ROOM_SERVICE_URL"); v != "" {
		cfg.RoomServiceURL = v
	}
	if v := os.Getenv("WIZARD_AUTH_SERVICE_URL"); v != "" {
		cfg.AuthServiceURL = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("WIZARD_STORAGE_ROOT"); v != "" {
		cfg.StorageRoot = v
	}
	if v := os.Getenv("WIZARD_ROOM_GENERATOR_ID"); v != "" {
		cfg.RoomGeneratorID = v
	}
	if v := os.Getenv("WIZARD_FLOW_TOKEN_SECRET"); v != "" {
		cfg.FlowTokenSecret = v
	}
	if v := os.Getenv("WIZARD_HANDOFF_TTL"); v != "" {
		cfg.HandoffTTL = v
	}
	if v := os.Getenv("WIZARD_FLOW_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.FlowRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("WIZARD_UPLOAD_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.UploadRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("WIZARD_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required for the handoff store")
	}
	if strings.TrimSpace(cfg.MinioEndpoint) == "" || strings.TrimSpace(cfg.MinioBucket) == "" {
		return errors.New("config: minioEndpoint and minioBucket are required")
	}
	if cfg.TimeServiceURL == "" {
		return errors.New("config: timeServiceURL is required (set in config.yaml)")
	}
	if cfg.RoomServiceURL == "" {
		return errors.New("config: roomServiceURL is required (set in config.yaml)")
	}
	if cfg.AuthServiceURL == "" {
		return errors.New("config: authServiceURL is required (set in config.yaml)")
	}
	if strings.TrimSpace(cfg.RoomGeneratorID) == "" {
		return errors.New("config: roomGeneratorId is required (set in config.yaml)")
	}
	if strings.TrimSpace(cfg.FlowTokenSecret) == "" {
		return errors.New("config: flowTokenSecret is required (set in config.yaml or WIZARD_FLOW_TOKEN_SECRET)")
	}
	if cfg.FlowRateLimitPerMinute < 0 || cfg.UploadRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	return nil
}

// ParseHandoffTTL parses the optional handoff TTL duration string.
func ParseHandoffTTL(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid handoffTTL duration: %w", err)
	}
	return dur, nil
}
