package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func clearStorageEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvRegion, EnvAccessKeyID, EnvSecretAccessKey, EnvBucket} {
		t.Setenv(name, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return cfgPath
}

func TestLoad(t *testing.T) {
	clearStorageEnv(t)

	cfgPath := writeConfig(t, `
server:
  listen_addr: ":9000"
  admin_allowed_ips: ["10.0.0.0/8"]

database:
  path: "/tmp/test.db"

storage:
  region: "us-east-1"
  access_key_id: "AKIA"
  secret_access_key: "secret"
  bucket: "orange-hats"
  url_expiry: 30m

content:
  dir: "/tmp/research"

applications:
  rate_limit:
    enabled: true
    per_hour: 2
    per_kind:
      per_hour: 1

logging:
  level: "debug"
  format: "console"
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddr != ":9000" {
		t.Errorf("ListenAddr = %v, want :9000", cfg.Server.ListenAddr)
	}
	if len(cfg.Server.AdminAllowedIPs) != 1 {
		t.Errorf("AdminAllowedIPs = %v, want 1 entry", cfg.Server.AdminAllowedIPs)
	}
	if cfg.Storage.Bucket != "orange-hats" {
		t.Errorf("Bucket = %v, want orange-hats", cfg.Storage.Bucket)
	}
	if cfg.Storage.URLExpiry != 30*time.Minute {
		t.Errorf("URLExpiry = %v, want 30m", cfg.Storage.URLExpiry)
	}
	if cfg.Content.Dir != "/tmp/research" {
		t.Errorf("Content.Dir = %v, want /tmp/research", cfg.Content.Dir)
	}
	if cfg.Applications.RateLimit.PerHour != 2 {
		t.Errorf("PerHour = %v, want 2", cfg.Applications.RateLimit.PerHour)
	}
	if cfg.Applications.RateLimit.PerDay != 20 {
		t.Errorf("PerDay = %v, want default 20", cfg.Applications.RateLimit.PerDay)
	}
	if !cfg.Applications.RateLimit.PerKind.Enforced() || cfg.Applications.RateLimit.PerKind.PerHour != 1 {
		t.Errorf("PerKind = %+v, want per_hour 1", cfg.Applications.RateLimit.PerKind)
	}
	if cfg.Applications.RateLimit.Global.Enforced() {
		t.Errorf("Global = %+v, want unset", cfg.Applications.RateLimit.Global)
	}
	if cfg.Logging.Format != "console" {
		t.Errorf("Logging.Format = %v, want console", cfg.Logging.Format)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearStorageEnv(t)

	cfgPath := writeConfig(t, `
storage:
  region: "eu-west-1"
  access_key_id: "AKIA"
  secret_access_key: "secret"
  bucket: "b"
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %v, want :8080", cfg.Server.ListenAddr)
	}
	if cfg.Storage.URLExpiry != time.Hour {
		t.Errorf("URLExpiry = %v, want 1h", cfg.Storage.URLExpiry)
	}
	if cfg.Content.Dir != "./content/research" {
		t.Errorf("Content.Dir = %v, want ./content/research", cfg.Content.Dir)
	}
	if cfg.Auth.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", cfg.Auth.SessionTTL)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %v, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %v, want json", cfg.Logging.Format)
	}
	if cfg.Notify.SMTP.Enabled() {
		t.Error("Notify.SMTP.Enabled() = true, want false without host")
	}
	if cfg.Notify.SMTP.StartTLS != StartTLSAuto {
		t.Errorf("Notify.SMTP.StartTLS = %q, want %q", cfg.Notify.SMTP.StartTLS, StartTLSAuto)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvRegion, "ap-south-1")
	t.Setenv(EnvAccessKeyID, "ENVKEY")
	t.Setenv(EnvSecretAccessKey, "ENVSECRET")
	t.Setenv(EnvBucket, "env-bucket")

	cfgPath := writeConfig(t, `
storage:
  region: "us-east-1"
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Storage.Region != "ap-south-1" {
		t.Errorf("Region = %v, want ap-south-1", cfg.Storage.Region)
	}
	if cfg.Storage.AccessKeyID != "ENVKEY" || cfg.Storage.SecretAccessKey != "ENVSECRET" {
		t.Errorf("credentials not taken from environment: %+v", cfg.Storage)
	}
	if cfg.Storage.Bucket != "env-bucket" {
		t.Errorf("Bucket = %v, want env-bucket", cfg.Storage.Bucket)
	}
}

func TestLoadMissingStorage(t *testing.T) {
	clearStorageEnv(t)

	cfgPath := writeConfig(t, `
storage:
  region: "us-east-1"
  access_key_id: "AKIA"
  secret_access_key: "secret"
`)

	_, err := Load(cfgPath)
	if err == nil {
		t.Fatal("Load() expected error without bucket")
	}
	if !strings.Contains(err.Error(), EnvBucket) {
		t.Errorf("error %q should name %s", err, EnvBucket)
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearStorageEnv(t)
	os.Unsetenv(EnvBucket)

	envPath := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envPath, []byte(EnvBucket+"=dotenv-bucket\n"), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	if err := LoadDotEnv(envPath); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv(EnvBucket); got != "dotenv-bucket" {
		t.Errorf("%s = %q, want dotenv-bucket", EnvBucket, got)
	}

	if err := LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("LoadDotEnv() missing file error = %v, want nil", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Storage: StorageConfig{Region: "r", AccessKeyID: "k", SecretAccessKey: "s", Bucket: "b"},
			Logging: LoggingConfig{Level: "info", Format: "json"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid config", func(*Config) {}, false},
		{"missing region", func(c *Config) { c.Storage.Region = "" }, true},
		{"missing secret", func(c *Config) { c.Storage.SecretAccessKey = "" }, true},
		{"tls without files", func(c *Config) { c.Server.TLS.Enabled = true }, true},
		{"tls with acme", func(c *Config) {
			c.Server.TLS.Enabled = true
			c.Server.TLS.ACME = ACMEConfig{Enabled: true, Domains: []string{"orangehats.example.com"}}
		}, false},
		{"acme without domains", func(c *Config) {
			c.Server.TLS.Enabled = true
			c.Server.TLS.ACME.Enabled = true
		}, true},
		{"acme and cert files", func(c *Config) {
			c.Server.TLS = TLSConfig{Enabled: true, CertFile: "c.pem", KeyFile: "k.pem",
				ACME: ACMEConfig{Enabled: true, Domains: []string{"orangehats.example.com"}}}
		}, true},
		{"oidc without client", func(c *Config) {
			c.Auth.OIDC.Enabled = true
			c.Auth.OIDC.ProviderURL = "https://sso.example.com"
		}, true},
		{"smtp without from", func(c *Config) { c.Notify.SMTP.Host = "smtp.example.com" }, true},
		{"negative rate limit", func(c *Config) { c.Applications.RateLimit.PerDay = -1 }, true},
		{"smtp starttls required", func(c *Config) { c.Notify.SMTP.StartTLS = StartTLSRequired }, false},
		{"unknown smtp starttls mode", func(c *Config) { c.Notify.SMTP.StartTLS = "opportunistic" }, true},
		{"negative global rate limit", func(c *Config) { c.Applications.RateLimit.Global.PerHour = -1 }, true},
		{"invalid log level", func(c *Config) { c.Logging.Level = "invalid" }, true},
		{"invalid log format", func(c *Config) { c.Logging.Format = "invalid" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	if err == nil {
		t.Error("Load() expected error for nonexistent file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	cfgPath := writeConfig(t, `invalid: yaml: content: [`)

	_, err := Load(cfgPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML")
	}
}
