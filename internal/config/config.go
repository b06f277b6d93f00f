package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server         ServerConfig         `yaml:"server"`
	Vincere        VincereConfig        `yaml:"vincere"`
	ActiveCampaign ActiveCampaignConfig `yaml:"activecampaign"`
	Redis          RedisConfig          `yaml:"redis"`
	Importer       ImporterConfig       `yaml:"importer"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the bind host, honoring container/env overrides.
func (c ServerConfig) GetHost() string {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	// Containers need to bind all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "0.0.0.0"
	}
	return c.Host
}

// VincereConfig holds the upstream ATS API settings.
// RefreshTokens seeds per-owner refresh tokens into the token store at boot;
// in multi-instance deployments tokens live in Redis instead.
type VincereConfig struct {
	BaseURL        string            `yaml:"base_url"`
	TokenURL       string            `yaml:"token_url"`
	ClientID       string            `yaml:"client_id"`
	ClientSecret   string            `yaml:"client_secret"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	RefreshTokens  map[string]string `yaml:"refresh_tokens"`
}

// Timeout returns the HTTP client timeout for Vincere calls.
func (c VincereConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ActiveCampaignConfig holds the downstream bulk-import API settings
type ActiveCampaignConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIToken       string `yaml:"api_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the HTTP client timeout for ActiveCampaign calls.
func (c ActiveCampaignConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RedisConfig holds the optional Redis backing for job and token stores.
// When disabled, in-process stores are used (single-instance deployment).
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ImporterConfig holds bulk-import pipeline tuning knobs
type ImporterConfig struct {
	ChunkSize       int `yaml:"chunk_size"`
	PauseMs         int `yaml:"pause_ms"`
	MaxPages        int `yaml:"max_pages"`
	MaxPayloadBytes int `yaml:"max_payload_bytes"`
}

// Pause returns the pacing delay between chunk sends.
func (c ImporterConfig) Pause() time.Duration {
	return time.Duration(c.PauseMs) * time.Millisecond
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
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

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Vincere.TimeoutSeconds == 0 {
		cfg.Vincere.TimeoutSeconds = 60
	}
	if cfg.ActiveCampaign.TimeoutSeconds == 0 {
		cfg.ActiveCampaign.TimeoutSeconds = 60
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Importer.ChunkSize == 0 {
		cfg.Importer.ChunkSize = 250
	}
	if cfg.Importer.PauseMs == 0 {
		cfg.Importer.PauseMs = 250
	}
	if cfg.Importer.MaxPages == 0 {
		cfg.Importer.MaxPages = 400
	}
	if cfg.Importer.MaxPayloadBytes == 0 {
		cfg.Importer.MaxPayloadBytes = 350 * 1024
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration from a YAML file, then overrides
// sensitive/deploy-specific values from the environment (.env honored).
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("VINCERE_BASE_URL"); v != "" {
		cfg.Vincere.BaseURL = v
	}
	if v := os.Getenv("VINCERE_TOKEN_URL"); v != "" {
		cfg.Vincere.TokenURL = v
	}
	if v := os.Getenv("VINCERE_CLIENT_ID"); v != "" {
		cfg.Vincere.ClientID = v
	}
	if v := os.Getenv("VINCERE_CLIENT_SECRET"); v != "" {
		cfg.Vincere.ClientSecret = v
	}
	if v := os.Getenv("ACTIVECAMPAIGN_BASE_URL"); v != "" {
		cfg.ActiveCampaign.BaseURL = v
	}
	if v := os.Getenv("ACTIVECAMPAIGN_API_TOKEN"); v != "" {
		cfg.ActiveCampaign.APIToken = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}
