package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable Load reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"CONFIG_FILE", "PORT", "ENVIRONMENT", "LOG_LEVEL", "GCP_PROJECT", "SECRET_ID",
		"DATABASE_URL", "REDIS_URL", "STORE_LANGUAGE", "NUVEMSHOP_API_URL",
		"NUVEMSHOP_USER_AGENT", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "LOCK_TTL", "LOCK_WAIT",
	} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("DATABASE_URL", "postgres://sp:sp@localhost:5432/storepilot?sslmode=disable")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("STORE_LANGUAGE", "es")
	t.Setenv("NUVEMSHOP_API_URL", "https://api.nuvemshop.com.br/v1")
	t.Setenv("RATE_LIMIT_RPS", "1.5")
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("LOCK_TTL", "2m")
	t.Setenv("LOCK_WAIT", "5s")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %s, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	if cfg.Secrets.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %s", cfg.Secrets.RedisURL)
	}
	if cfg.Language().String() != "es" {
		t.Errorf("Language = %s, want es", cfg.Language())
	}
	if cfg.RateLimitRPS != 1.5 || cfg.RateLimitBurst != 3 {
		t.Errorf("rate limit = %v/%d, want 1.5/3", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.LockTTL != 2*time.Minute || cfg.LockWait != 5*time.Second {
		t.Errorf("lock = %v/%v", cfg.LockTTL, cfg.LockWait)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "sqlite://storepilot.db")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8080" || cfg.Environment != "development" || cfg.LogLevel != "info" {
		t.Errorf("server defaults = %s/%s/%s", cfg.Port, cfg.Environment, cfg.LogLevel)
	}
	if cfg.StoreLanguage != "pt" {
		t.Errorf("StoreLanguage = %s, want pt", cfg.StoreLanguage)
	}
	if cfg.RateLimitRPS != defaultRPS || cfg.RateLimitBurst != defaultBurst {
		t.Errorf("rate limit = %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.LockTTL != defaultLockTTL || cfg.LockWait != 0 {
		t.Errorf("lock = %v/%v", cfg.LockTTL, cfg.LockWait)
	}
	if cfg.Secrets.RedisURL != "" {
		t.Errorf("RedisURL = %s, want empty", cfg.Secrets.RedisURL)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("DATABASE_URL")
	os.Unsetenv("PORT")
	env := "DATABASE_URL=sqlite://from-dotenv.db\nPORT=7070\n"
	if err := os.WriteFile(".env", []byte(env), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Secrets.DatabaseURL != "sqlite://from-dotenv.db" {
		t.Errorf("DatabaseURL = %s", cfg.Secrets.DatabaseURL)
	}
	if cfg.Port != "7070" {
		t.Errorf("Port = %s, want 7070", cfg.Port)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing database url",
			env:     map[string]string{},
			wantErr: "database_url is required",
		},
		{
			name:    "unsupported scheme",
			env:     map[string]string{"DATABASE_URL": "mysql://localhost/db"},
			wantErr: "not supported",
		},
		{
			name:    "bad rps",
			env:     map[string]string{"DATABASE_URL": "sqlite://x.db", "RATE_LIMIT_RPS": "fast"},
			wantErr: "RATE_LIMIT_RPS",
		},
		{
			name:    "zero rps",
			env:     map[string]string{"DATABASE_URL": "sqlite://x.db", "RATE_LIMIT_RPS": "0"},
			wantErr: "rps must be positive",
		},
		{
			name:    "zero burst",
			env:     map[string]string{"DATABASE_URL": "sqlite://x.db", "RATE_LIMIT_BURST": "0"},
			wantErr: "burst",
		},
		{
			name:    "bad lock ttl",
			env:     map[string]string{"DATABASE_URL": "sqlite://x.db", "LOCK_TTL": "soon"},
			wantErr: "LOCK_TTL",
		},
		{
			name:    "bad language",
			env:     map[string]string{"DATABASE_URL": "sqlite://x.db", "STORE_LANGUAGE": "not a language"},
			wantErr: "store language",
		},
		{
			name:    "bad api url",
			env:     map[string]string{"DATABASE_URL": "sqlite://x.db", "NUVEMSHOP_API_URL": "no-host"},
			wantErr: "api_url",
		},
		{
			name:    "production without project",
			env:     map[string]string{"ENVIRONMENT": "production"},
			wantErr: "GCP_PROJECT required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(context.Background())
			if err == nil {
				t.Fatal("Load() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"port": "3000",
		"log_level": "warn",
		"store_language": "en",
		"secrets": {"database_url": "sqlite://dev.db", "redis_url": "redis://cache:6379"},
		"nuvemshop": {"user_agent": "Test (t@example.com)"},
		"rate_limit_burst": 8,
		"lock_wait": "3s"
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "3000" || cfg.LogLevel != "warn" || cfg.Environment != "development" {
		t.Errorf("server = %s/%s/%s", cfg.Port, cfg.LogLevel, cfg.Environment)
	}
	if cfg.Secrets.DatabaseURL != "sqlite://dev.db" || cfg.Secrets.RedisURL != "redis://cache:6379" {
		t.Errorf("secrets = %+v", cfg.Secrets)
	}
	if cfg.Nuvemshop.UserAgent != "Test (t@example.com)" {
		t.Errorf("UserAgent = %s", cfg.Nuvemshop.UserAgent)
	}
	if cfg.RateLimitRPS != defaultRPS || cfg.RateLimitBurst != 8 {
		t.Errorf("rate limit = %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.LockTTL != defaultLockTTL || cfg.LockWait != 3*time.Second {
		t.Errorf("lock = %v/%v", cfg.LockTTL, cfg.LockWait)
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"invalid json", `{not json}`, "parsing config file"},
		{"missing database", `{"port": "1"}`, "database_url is required"},
		{"bad lock ttl", `{"secrets": {"database_url": "sqlite://x.db"}, "lock_ttl": "later"}`, "lock_ttl"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := loadFromFile(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("case %d: error = %v, want containing %q", i, err, tt.wantErr)
			}
		})
	}

	if _, err := loadFromFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("missing file should fail")
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("SP_TEST_SET", "value")
	t.Setenv("SP_TEST_EMPTY", "")

	if got := envOrDefault("SP_TEST_SET", "default"); got != "value" {
		t.Errorf("envOrDefault(set) = %s, want value", got)
	}
	if got := envOrDefault("SP_TEST_EMPTY", "default"); got != "default" {
		t.Errorf("envOrDefault(empty) = %s, want default", got)
	}
}

func TestWithDefault(t *testing.T) {
	if got := withDefault("", "x"); got != "x" {
		t.Errorf("withDefault empty = %s", got)
	}
	if got := withDefault("y", "x"); got != "y" {
		t.Errorf("withDefault set = %s", got)
	}
}
