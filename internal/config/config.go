// Package config loads settings from config*.yml files and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const insecureDefaultSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	JWTSecret      string `mapstructure:"JWT_SECRET"`
	Port           string `mapstructure:"PORT"`
	DBHost         string `mapstructure:"DB_HOST"`
	DBPort         string `mapstructure:"DB_PORT"`
	DBUser         string `mapstructure:"DB_USER"`
	DBPassword     string `mapstructure:"DB_PASSWORD"`
	DBName         string `mapstructure:"DB_NAME"`
	DBSSLMode      string `mapstructure:"DB_SSLMODE"`
	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`
	// RequestsPerMinute caps requests per client address across the API.
	RequestsPerMinute int    `mapstructure:"REQUESTS_PER_MINUTE"`
	Env               string `mapstructure:"APP_ENV"`

	DBMaxOpenConns                int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns                int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes      int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSchemaMode                  string `mapstructure:"DB_SCHEMA_MODE"`
	DBAutoMigrateAllowDestructive bool   `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`

	// Bulk update request workflow.
	BulkForumCategoryID int           `mapstructure:"BULK_FORUM_CATEGORY_ID"`
	NotifyAllAdmins     bool          `mapstructure:"NOTIFY_ALL_ADMINS"`
	ApprovalLockTTL     time.Duration `mapstructure:"APPROVAL_LOCK_TTL"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	OTLPEndpoint        string  `mapstructure:"OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`

	DevBootstrapRoot        bool   `mapstructure:"DEV_BOOTSTRAP_ROOT"`
	DevRootUsername         string `mapstructure:"DEV_ROOT_USERNAME"`
	DevRootEmail            string `mapstructure:"DEV_ROOT_EMAIL"`
	DevRootPassword         string `mapstructure:"DEV_ROOT_PASSWORD"`
	DevRootForceCredentials bool   `mapstructure:"DEV_ROOT_FORCE_CREDENTIALS"`
}

var defaults = map[string]any{
	"PORT":                             "8375",
	"APP_ENV":                          "development",
	"JWT_SECRET":                       insecureDefaultSecret,
	"ALLOWED_ORIGINS":                  "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173",
	"FEATURE_FLAGS":                    "",
	"REQUESTS_PER_MINUTE":              100,
	"REDIS_URL":                        "localhost:6379",
	"DB_HOST":                          "localhost",
	"DB_PORT":                          "5432",
	"DB_USER":                          "user",
	"DB_PASSWORD":                      "password",
	"DB_NAME":                          "tagboard",
	"DB_SSLMODE":                       "disable",
	"DB_MAX_OPEN_CONNS":                25,
	"DB_MAX_IDLE_CONNS":                5,
	"DB_CONN_MAX_LIFETIME_MINUTES":     30,
	"DB_SCHEMA_MODE":                   "",
	"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE": false,
	"BULK_FORUM_CATEGORY_ID":           1,
	"NOTIFY_ALL_ADMINS":                false,
	"APPROVAL_LOCK_TTL":                "10m",
	"TRACING_ENABLED":                  false,
	"TRACING_EXPORTER":                 "stdout",
	"OTLP_ENDPOINT":                    "localhost:4318",
	"TRACING_SAMPLER_RATIO":            1.0,
	"DEV_BOOTSTRAP_ROOT":               false,
	"DEV_ROOT_USERNAME":                "tagboard_root",
	"DEV_ROOT_EMAIL":                   "root@tagboard.local",
	"DEV_ROOT_PASSWORD":                "",
	"DEV_ROOT_FORCE_CREDENTIALS":       false,
}

// LoadConfig reads config.yml when present, then config.<APP_ENV>.yml for
// environments other than development and test (that file is required),
// then the environment, which wins over both.
func LoadConfig() (*Config, error) {
	v := viper.New()
	for _, dir := range []string{".", "..", "../.."} {
		v.AddConfigPath(dir)
	}
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AutomaticEnv()
	// Keys are only known to AutomaticEnv once something mentions them.
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	_ = v.ReadInConfig()

	env := strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV")))
	if env != "development" && env != "test" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		slog.Info("loaded profile configuration", slog.String("file", "config."+env+".yml"))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	for _, w := range cfg.Warnings() {
		slog.Warn(w)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	for _, s := range []*string{&c.Env, &c.DBSSLMode, &c.DBSchemaMode, &c.TracingExporter} {
		*s = strings.ToLower(strings.TrimSpace(*s))
	}
}

// IsProduction reports whether the config targets a production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// Validate reports every setting that is out of range. Production also
// refuses development shortcuts.
func (c *Config) Validate() error {
	var errs []error
	check := func(bad bool, msg string) {
		if bad {
			errs = append(errs, errors.New(msg))
		}
	}

	check(c.Port == "", "PORT is required")
	check(c.JWTSecret == "", "JWT_SECRET is required")
	check(c.DBConnMaxLifetimeMinutes < 0, "DB_CONN_MAX_LIFETIME_MINUTES cannot be negative")
	check(c.RequestsPerMinute < 0, "REQUESTS_PER_MINUTE cannot be negative")
	check(c.BulkForumCategoryID < 0, "BULK_FORUM_CATEGORY_ID cannot be negative")
	check(c.ApprovalLockTTL < 0, "APPROVAL_LOCK_TTL cannot be negative")
	check(c.TracingSamplerRatio < 0 || c.TracingSamplerRatio > 1, "TRACING_SAMPLER_RATIO must be between 0 and 1")

	if c.IsProduction() {
		check(c.JWTSecret == insecureDefaultSecret, "JWT_SECRET must be changed from the default value in production")
		check(len(c.JWTSecret) < 32, "JWT_SECRET must be at least 32 characters in production")
		check(c.DBPassword == "password" || c.DBPassword == "", "a strong DB_PASSWORD is required in production")
		check(c.DBSSLMode == "disable" || c.DBSSLMode == "", "DB_SSLMODE must enable SSL in production")
		check(c.DevBootstrapRoot, "DEV_BOOTSTRAP_ROOT cannot be enabled in production")
	}
	return errors.Join(errs...)
}

// Warnings lists settings that are legal but unwise.
func (c *Config) Warnings() []string {
	var out []string
	if c.IsProduction() && c.AllowedOrigins == "*" {
		out = append(out, "ALLOWED_ORIGINS is '*' in production")
	}
	if !c.IsProduction() && len(c.JWTSecret) < 32 {
		out = append(out, "JWT_SECRET is shorter than 32 characters")
	}
	if c.RedisURL == "" {
		out = append(out, "REDIS_URL is empty: rate limits, event streams and token revocation are off")
	}
	return out
}
