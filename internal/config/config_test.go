package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		App:  AppConfig{Env: "local", Port: 8080},
		Auth: AuthConfig{JWTSecret: "secret"},
		PBX: PBXConfig{
			ServerURL:       "http://pbx.local:5060",
			OutboundContext: "default",
			OutboundTrunk:   "office.trunk",
			SecretKey:       "s3cret",
		},
	}
}

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "local")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("REDIS_HOST", "")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("JWT_ACCESS_TTL", "")
	t.Setenv("JWT_REFRESH_TTL", "")
	t.Setenv("PBX_SERVER_URL", "http://pbx.local:5060/")
	t.Setenv("PBX_OUTBOUND_CONTEXT", "default")
	t.Setenv("PBX_OUTBOUND_TRUNK", "office.trunk")
	t.Setenv("PBX_SECRET_KEY", "s3cret")
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, key := range []string{"APP_ENV", "JWT_SECRET", "PBX_SERVER_URL", "PBX_OUTBOUND_CONTEXT", "PBX_OUTBOUND_TRUNK", "PBX_SECRET_KEY"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("expected %s in error, got %v", key, err)
		}
	}
}

func TestValidate_MemoryModeNeedsNoDatabase(t *testing.T) {
	c := validConfig()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.HasDatabase() || c.HasRedis() {
		t.Fatalf("expected memory mode")
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validConfig()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "pbx-connector"
	c.Auth.JWTAudience = "crm"
	c.DB = DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "pbx"}
	err := c.Validate()
	if err == nil || !strings.Contains(err.Error(), "DB_SSLMODE") {
		t.Fatalf("expected error for production without DB_SSLMODE, got %v", err)
	}
}

func TestValidate_RejectsNonHTTPServerURL(t *testing.T) {
	c := validConfig()
	c.PBX.ServerURL = "ftp://pbx.local"
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "PBX_SERVER_URL") {
		t.Fatalf("expected server url error, got %v", err)
	}
}

func TestValidate_RejectsUnknownLogLevel(t *testing.T) {
	c := validConfig()
	c.App.LogLevel = "verbose"
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "LOG_LEVEL") {
		t.Fatalf("expected log level error, got %v", err)
	}
	c.App.LogLevel = "warn"
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
}

func TestFromEnv_AppliesDefaults(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("DB_NAME", "pbx")
	t.Setenv("DB_SSLMODE", "")

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Auth.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("expected default access ttl, got %v", c.Auth.AccessTokenTTL)
	}
	if c.PBX.ServerURL != "http://pbx.local:5060" {
		t.Fatalf("expected trailing slash trimmed, got %q", c.PBX.ServerURL)
	}
}

func TestFromEnv_BadPort(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_PORT", "eighty")
	if _, err := FromEnv(); err == nil || !strings.Contains(err.Error(), "APP_PORT") {
		t.Fatalf("expected APP_PORT error, got %v", err)
	}
}

func TestLoadFiles_ReadsDotEnv(t *testing.T) {
	setBaseEnv(t)
	// godotenv does not override variables already present.
	os.Unsetenv("PBX_OUTBOUND_TRUNK")
	t.Cleanup(func() { os.Unsetenv("PBX_OUTBOUND_TRUNK") })

	path := filepath.Join(t.TempDir(), "test.env")
	if err := os.WriteFile(path, []byte("PBX_OUTBOUND_TRUNK=branch.trunk\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	c, err := LoadFiles(path)
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	if c.PBX.OutboundTrunk != "branch.trunk" {
		t.Fatalf("expected trunk from env file, got %q", c.PBX.OutboundTrunk)
	}
}
