package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the storage section
const (
	EnvRegion          = "AWS_REGION"
	EnvAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	EnvBucket          = "AWS_S3_BUCKET_NAME"
)

// Config represents the main configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Storage      StorageConfig      `yaml:"storage"`
	Content      ContentConfig      `yaml:"content"`
	Auth         AuthConfig         `yaml:"auth"`
	Applications ApplicationsConfig `yaml:"applications"`
	Notify       NotifyConfig       `yaml:"notify"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	ListenAddr      string        `yaml:"listen_addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	TLS             TLSConfig     `yaml:"tls"`
	// AdminAllowedIPs restricts /api/admin to these IPs or CIDRs (empty = any)
	AdminAllowedIPs []string `yaml:"admin_allowed_ips"`
}

// TLSConfig selects manual PEM files or ACME. Exactly one source may be set.
type TLSConfig struct {
	Enabled  bool       `yaml:"enabled"`
	CertFile string     `yaml:"cert_file"`
	KeyFile  string     `yaml:"key_file"`
	ACME     ACMEConfig `yaml:"acme"`
}

// ACMEConfig contains Let's Encrypt ACME settings
type ACMEConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Email    string   `yaml:"email"`
	Domains  []string `yaml:"domains"`
	CacheDir string   `yaml:"cache_dir"`
	// ChallengeAddr serves HTTP-01 challenges and redirects to HTTPS (empty = TLS-ALPN only)
	ChallengeAddr string `yaml:"challenge_addr"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// StorageConfig contains S3-compatible blob store settings
type StorageConfig struct {
	Region          string        `yaml:"region"`
	AccessKeyID     string        `yaml:"access_key_id"`
	SecretAccessKey string        `yaml:"secret_access_key"`
	Bucket          string        `yaml:"bucket"`
	Endpoint        string        `yaml:"endpoint"`       // optional, for S3-compatible stores
	UsePathStyle    bool          `yaml:"use_path_style"` // required by most S3-compatible stores
	URLExpiry       time.Duration `yaml:"url_expiry"`
}

// ContentConfig contains the research mirror settings
type ContentConfig struct {
	Dir       string `yaml:"dir"`
	IndexPath string `yaml:"index_path"`
}

type AuthConfig struct {
	SessionTTL   time.Duration `yaml:"session_ttl"`
	CookieName   string        `yaml:"cookie_name"`
	SecureCookie bool          `yaml:"secure_cookie"`
	OIDC         OIDCConfig    `yaml:"oidc"`
}

type OIDCConfig struct {
	Enabled       bool     `yaml:"enabled"`
	ProviderURL   string   `yaml:"provider_url"`
	ClientID      string   `yaml:"client_id"`
	ClientSecret  string   `yaml:"client_secret"`
	RedirectURL   string   `yaml:"redirect_url"`
	Scopes        []string `yaml:"scopes"`
	AllowedGroups []string `yaml:"allowed_groups"`
}

type ApplicationsConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig limits public application submissions. PerHour and
// PerDay apply per client IP.
type RateLimitConfig struct {
	Enabled bool            `yaml:"enabled"`
	PerHour int             `yaml:"per_hour"`
	PerDay  int             `yaml:"per_day"`
	PerKind RateLimitWindow `yaml:"per_kind"`
	Global  RateLimitWindow `yaml:"global"`
	DBPath  string          `yaml:"db_path"`
}

// RateLimitWindow is an optional pair of limits; zero disables a window
type RateLimitWindow struct {
	PerHour int `yaml:"per_hour"`
	PerDay  int `yaml:"per_day"`
}

// Enforced reports whether any window is set
func (w RateLimitWindow) Enforced() bool {
	return w.PerHour > 0 || w.PerDay > 0
}

func (w RateLimitWindow) negative() bool {
	return w.PerHour < 0 || w.PerDay < 0
}

type NotifyConfig struct {
	SMTP SMTPConfig `yaml:"smtp"`
}

// SMTPConfig configures new-application notification mail (disabled when Host is empty)
type SMTPConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Username string        `yaml:"username"`
	Password string        `yaml:"password"`
	From     string        `yaml:"from"`
	To       []string      `yaml:"to"`
	Timeout  time.Duration `yaml:"timeout"`
	// StartTLS is "auto" (upgrade when offered), "required" or "disabled"
	StartTLS string `yaml:"starttls"`
}

const (
	StartTLSAuto     = "auto"
	StartTLSRequired = "required"
	StartTLSDisabled = "disabled"
)

// Enabled reports whether notification mail is configured
func (s SMTPConfig) Enabled() bool {
	return s.Host != "" && len(s.To) > 0
}

type MetricsConfig struct {
	Enabled    bool     `yaml:"enabled"`
	ListenAddr string   `yaml:"listen_addr"`
	Path       string   `yaml:"path"`
	AllowedIPs []string `yaml:"allowed_ips"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text, console
}

// LoadDotEnv loads variables from a .env file without overriding ones already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env string
		dst *string
	}{
		{EnvRegion, &c.Storage.Region},
		{EnvAccessKeyID, &c.Storage.AccessKeyID},
		{EnvSecretAccessKey, &c.Storage.SecretAccessKey},
		{EnvBucket, &c.Storage.Bucket},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

func (c *Config) setDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Server.TLS.ACME.CacheDir == "" {
		c.Server.TLS.ACME.CacheDir = "./data/certs"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/orangehats.db"
	}
	if c.Storage.URLExpiry == 0 {
		c.Storage.URLExpiry = time.Hour
	}
	if c.Content.Dir == "" {
		c.Content.Dir = "./content/research"
	}
	if c.Content.IndexPath == "" {
		c.Content.IndexPath = "./data/content-index.db"
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 24 * time.Hour
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "orangehats_session"
	}
	if len(c.Auth.OIDC.Scopes) == 0 {
		c.Auth.OIDC.Scopes = []string{"openid", "profile", "email"}
	}
	if c.Applications.RateLimit.PerHour == 0 {
		c.Applications.RateLimit.PerHour = 5
	}
	if c.Applications.RateLimit.PerDay == 0 {
		c.Applications.RateLimit.PerDay = 20
	}
	if c.Applications.RateLimit.DBPath == "" {
		c.Applications.RateLimit.DBPath = "./data/ratelimit.db"
	}
	if c.Notify.SMTP.Port == 0 {
		c.Notify.SMTP.Port = 587
	}
	if c.Notify.SMTP.Timeout == 0 {
		c.Notify.SMTP.Timeout = 10 * time.Second
	}
	if c.Notify.SMTP.StartTLS == "" {
		c.Notify.SMTP.StartTLS = StartTLSAuto
	}
	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = "127.0.0.1:9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Storage.Region == "" {
		return fmt.Errorf("storage.region is required (or %s)", EnvRegion)
	}
	if c.Storage.AccessKeyID == "" {
		return fmt.Errorf("storage.access_key_id is required (or %s)", EnvAccessKeyID)
	}
	if c.Storage.SecretAccessKey == "" {
		return fmt.Errorf("storage.secret_access_key is required (or %s)", EnvSecretAccessKey)
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket is required (or %s)", EnvBucket)
	}

	if err := c.validateTLS(); err != nil {
		return err
	}

	if c.Auth.OIDC.Enabled {
		if c.Auth.OIDC.ProviderURL == "" {
			return fmt.Errorf("auth.oidc.provider_url is required when OIDC is enabled")
		}
		if c.Auth.OIDC.ClientID == "" {
			return fmt.Errorf("auth.oidc.client_id is required when OIDC is enabled")
		}
		if c.Auth.OIDC.ClientSecret == "" {
			return fmt.Errorf("auth.oidc.client_secret is required when OIDC is enabled")
		}
	}

	rl := c.Applications.RateLimit
	if rl.PerHour < 0 || rl.PerDay < 0 || rl.PerKind.negative() || rl.Global.negative() {
		return fmt.Errorf("applications.rate_limit limits must not be negative")
	}

	if c.Notify.SMTP.Host != "" && c.Notify.SMTP.From == "" {
		return fmt.Errorf("notify.smtp.from is required when notify.smtp.host is set")
	}
	switch c.Notify.SMTP.StartTLS {
	case "", StartTLSAuto, StartTLSRequired, StartTLSDisabled:
	default:
		return fmt.Errorf("notify.smtp.starttls must be auto, required or disabled, got %q", c.Notify.SMTP.StartTLS)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format: %s (must be json, text, or console)", c.Logging.Format)
	}

	return nil
}

func (c *Config) validateTLS() error {
	tls := c.Server.TLS
	if !tls.Enabled {
		return nil
	}

	hasCerts := tls.CertFile != "" || tls.KeyFile != ""
	if hasCerts && tls.ACME.Enabled {
		return fmt.Errorf("server.tls: cannot use both manual certificates and ACME")
	}
	if tls.ACME.Enabled {
		if len(tls.ACME.Domains) == 0 {
			return fmt.Errorf("server.tls.acme.domains is required when ACME is enabled")
		}
		return nil
	}
	if tls.CertFile == "" || tls.KeyFile == "" {
		return fmt.Errorf("server.tls.cert_file and server.tls.key_file are required when TLS is enabled")
	}
	return nil
}
