package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		DSN string `yaml:"url"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // minutes
	} `yaml:"jwt"`

	Storage struct {
		Type      string `yaml:"type"`       // local, s3, cloudflare_r2
		BasePath  string `yaml:"base_path"`  // For local storage
		BaseURL   string `yaml:"base_url"`   // Public URL base
		Bucket    string `yaml:"bucket"`     // For S3/R2
		Region    string `yaml:"region"`     // For S3
		AccessKey string `yaml:"access_key"` // For S3/R2
		SecretKey string `yaml:"secret_key"` // For S3/R2
		Endpoint  string `yaml:"endpoint"`   // For R2 or custom S3
	} `yaml:"storage"`

	Upload struct {
		MaxSize      int64    `yaml:"max_size"`      // Max attachment size in bytes
		AllowedTypes []string `yaml:"allowed_types"` // Allowed MIME types
	} `yaml:"upload"`

	Chat struct {
		SendQueueSize     int `yaml:"send_queue_size"`     // per-session outbound buffer
		TypingTTLSeconds  int `yaml:"typing_ttl_seconds"`  // typing flag expiry
		BrokerGraceMillis int `yaml:"broker_grace_millis"` // idle broker teardown grace
		DefaultPageSize   int `yaml:"default_page_size"`   // message pagination
	} `yaml:"chat"`
}

// TypingTTL returns the typing indicator expiry as a duration.
func (c *Config) TypingTTL() time.Duration {
	return time.Duration(c.Chat.TypingTTLSeconds) * time.Second
}

// BrokerGrace returns how long an empty room broker lingers before teardown.
func (c *Config) BrokerGrace() time.Duration {
	return time.Duration(c.Chat.BrokerGraceMillis) * time.Millisecond
}

var AppConfig *Config

func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")
	serverEnv := os.Getenv("SERVER_ENV")
	portStr := os.Getenv("SERVER_PORT")
	jwtSecret := os.Getenv("JWT_SECRET")

	if dbURL == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyChatDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	// Env-only mode (tests, containers without a mounted config file).
	cfg.Database.DSN = dbURL
	cfg.Server.Env = serverEnv
	cfg.Server.Port, _ = strconv.Atoi(portStr)
	cfg.JWT.Secret = jwtSecret
	cfg.JWT.TTL = 60

	cfg.Storage.Type = "local"
	cfg.Storage.BasePath = "./uploads"

	cfg.Upload.MaxSize = 10 * 1024 * 1024 // 10MB
	cfg.Upload.AllowedTypes = []string{
		"image/jpeg", "image/png", "image/gif", "image/webp",
		"application/pdf", "text/plain",
	}

	applyChatDefaults(&cfg)
	AppConfig = &cfg
}

func applyChatDefaults(cfg *Config) {
	if cfg.Chat.SendQueueSize <= 0 {
		cfg.Chat.SendQueueSize = 256
	}
	if cfg.Chat.TypingTTLSeconds <= 0 {
		cfg.Chat.TypingTTLSeconds = 5
	}
	if cfg.Chat.BrokerGraceMillis <= 0 {
		cfg.Chat.BrokerGraceMillis = 30000
	}
	if cfg.Chat.DefaultPageSize <= 0 {
		cfg.Chat.DefaultPageSize = 50
	}
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
