// Package config handles loading and validation of service configuration.
// Supports both development (env vars, .env) and production (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// Config holds all service configuration.
// Environment determines whether secrets load from env vars (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string
	SecretID   string

	// Connection strings (loaded from secrets in production)
	Secrets Secrets

	// StoreLanguage is the fallback language for stores without one.
	StoreLanguage string

	Nuvemshop NuvemshopConfig

	// Per-store write throttle
	RateLimitRPS   float64
	RateLimitBurst int

	// Per-store plan lock
	LockTTL  time.Duration
	LockWait time.Duration
}

// Secrets contains the connection strings.
// In production, this is loaded from Secret Manager as JSON.
type Secrets struct {
	DatabaseURL string `json:"database_url"`
	RedisURL    string `json:"redis_url,omitempty"`
}

// NuvemshopConfig contains settings shared by every store client.
type NuvemshopConfig struct {
	APIURL    string `json:"api_url,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

const (
	defaultRPS      = 2.0
	defaultBurst    = 4
	defaultLockTTL  = 10 * time.Minute
	defaultLanguage = "pt"
)

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Outside production a .env file in the working directory is loaded first;
// variables already set in the environment win.
func Load(ctx context.Context) (*Config, error) {
	if os.Getenv("ENVIRONMENT") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading .env: %w", err)
		}
	}

	// If CONFIG_FILE is set, load everything from the JSON file
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:          envOrDefault("PORT", "8080"),
		Environment:   envOrDefault("ENVIRONMENT", "development"),
		LogLevel:      envOrDefault("LOG_LEVEL", "info"),
		GCPProject:    os.Getenv("GCP_PROJECT"),
		SecretID:      envOrDefault("SECRET_ID", "storepilot"),
		StoreLanguage: envOrDefault("STORE_LANGUAGE", defaultLanguage),
		Nuvemshop: NuvemshopConfig{
			APIURL:    os.Getenv("NUVEMSHOP_API_URL"),
			UserAgent: os.Getenv("NUVEMSHOP_USER_AGENT"),
		},
	}

	var err error
	if cfg.RateLimitRPS, err = floatEnv("RATE_LIMIT_RPS", defaultRPS); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = intEnv("RATE_LIMIT_BURST", defaultBurst); err != nil {
		return nil, err
	}
	if cfg.LockTTL, err = durationEnv("LOCK_TTL", defaultLockTTL); err != nil {
		return nil, err
	}
	if cfg.LockWait, err = durationEnv("LOCK_WAIT", 0); err != nil {
		return nil, err
	}

	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		cfg.Secrets = Secrets{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			RedisURL:    os.Getenv("REDIS_URL"),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("loading secrets: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig struct {
		Port           string          `json:"port"`
		Environment    string          `json:"environment"`
		LogLevel       string          `json:"log_level"`
		StoreLanguage  string          `json:"store_language"`
		Secrets        Secrets         `json:"secrets"`
		Nuvemshop      NuvemshopConfig `json:"nuvemshop"`
		RateLimitRPS   float64         `json:"rate_limit_rps"`
		RateLimitBurst int             `json:"rate_limit_burst"`
		LockTTL        string          `json:"lock_ttl"`
		LockWait       string          `json:"lock_wait"`
	}

	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:           withDefault(fileConfig.Port, "8080"),
		Environment:    withDefault(fileConfig.Environment, "development"),
		LogLevel:       withDefault(fileConfig.LogLevel, "info"),
		StoreLanguage:  withDefault(fileConfig.StoreLanguage, defaultLanguage),
		Secrets:        fileConfig.Secrets,
		Nuvemshop:      fileConfig.Nuvemshop,
		RateLimitRPS:   fileConfig.RateLimitRPS,
		RateLimitBurst: fileConfig.RateLimitBurst,
		LockTTL:        defaultLockTTL,
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = defaultRPS
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = defaultBurst
	}
	if fileConfig.LockTTL != "" {
		if cfg.LockTTL, err = time.ParseDuration(fileConfig.LockTTL); err != nil {
			return nil, fmt.Errorf("invalid lock_ttl: %w", err)
		}
	}
	if fileConfig.LockWait != "" {
		if cfg.LockWait, err = time.ParseDuration(fileConfig.LockWait); err != nil {
			return nil, fmt.Errorf("invalid lock_wait: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadFromSecretManager fetches the connection strings from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{secret_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.SecretID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Secrets); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}
	return nil
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.Secrets.DatabaseURL == "" {
		return fmt.Errorf("database_url is required")
	}
	u, err := url.Parse(c.Secrets.DatabaseURL)
	if err != nil {
		return fmt.Errorf("invalid database_url: %w", err)
	}
	switch u.Scheme {
	case "sqlite", "postgres", "postgresql":
	default:
		return fmt.Errorf("database_url scheme %q not supported (sqlite or postgres)", u.Scheme)
	}

	if c.Secrets.RedisURL != "" {
		if _, err := url.Parse(c.Secrets.RedisURL); err != nil {
			return fmt.Errorf("invalid redis_url: %w", err)
		}
	}
	if c.Nuvemshop.APIURL != "" {
		if u, err := url.Parse(c.Nuvemshop.APIURL); err != nil || u.Host == "" {
			return fmt.Errorf("invalid nuvemshop api_url %q", c.Nuvemshop.APIURL)
		}
	}
	if _, err := language.Parse(c.StoreLanguage); err != nil {
		return fmt.Errorf("invalid store language %q: %w", c.StoreLanguage, err)
	}
	if c.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit rps must be positive")
	}
	if c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit burst must be at least 1")
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("lock ttl must be positive")
	}
	if c.LockWait < 0 {
		return fmt.Errorf("lock wait must not be negative")
	}
	return nil
}

// Language returns the fallback store language as a tag.
func (c *Config) Language() language.Tag {
	return language.Make(c.StoreLanguage)
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func floatEnv(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func intEnv(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func durationEnv(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
