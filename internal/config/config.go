// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage locations, token and session settings, the bootstrap admin
// account and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "places-market")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// AuthConfig defines access-token and password hashing settings.
type AuthConfig struct {
	JWTSecret  string        // JWT_SECRET (HS256 key, >= 32 bytes)
	JWTIssuer  string        // JWT_ISSUER
	TokenTTL   time.Duration // JWT_TTL
	BcryptCost int           // BCRYPT_COST
}

// RedisConfig points at the session revocation store. An empty Addr selects
// the in-process store.
type RedisConfig struct {
	Addr     string // REDIS_ADDR (host:port)
	Password string // REDIS_PASSWORD
	DB       int    // REDIS_DB
}

// AdminConfig is the account ensured at startup. Both fields empty disables it.
type AdminConfig struct {
	Username string // ADMIN_USERNAME
	Password string // ADMIN_PASSWORD
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBPath         string // SQLite path
	UploadDir      string // directory for avatars and listing images
	MaxUploadBytes int64  // per-file upload cap

	// Identity
	Auth  AuthConfig
	Redis RedisConfig
	Admin AdminConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// minSecretBytes is the shortest accepted HS256 key.
const minSecretBytes = 32

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string { return ":" + c.Port }

// Load reads configuration from environment variables, applies defaults,
// normalizes values and validates the result. Every validation problem is
// reported, not just the first.
func Load() (Config, error) {
	cfg := Config{
		Port:              envString("PORT", "8080"),
		ReadTimeout:       envDuration("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: envDuration("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      envDuration("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       envDuration("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    envInt("MAX_HEADER_BYTES", 1<<20),
		GinMode:           ginMode(envString("GIN_MODE", "release")),

		LogLevel:       logLevel(envString("LOG_LEVEL", "info")),
		LogPretty:      envBool("LOG_PRETTY", false),
		SwaggerEnabled: envBool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(envString("API_BASE_PATH", "/api/v1")),

		DBPath:         envString("DB_PATH", "market.db"),
		UploadDir:      envString("UPLOAD_DIR", "static/uploads"),
		MaxUploadBytes: int64(envInt("MAX_UPLOAD_BYTES", 2<<20)),

		Auth: AuthConfig{
			JWTSecret:  envString("JWT_SECRET", ""),
			JWTIssuer:  envString("JWT_ISSUER", "places-market"),
			TokenTTL:   envDuration("JWT_TTL", 24*time.Hour),
			BcryptCost: envInt("BCRYPT_COST", 12),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(envString("REDIS_ADDR", "")),
			Password: envString("REDIS_PASSWORD", ""),
			DB:       envInt("REDIS_DB", 0),
		},
		Admin: AdminConfig{
			Username: strings.TrimSpace(envString("ADMIN_USERNAME", "")),
			Password: envString("ADMIN_PASSWORD", ""),
		},

		CORS:     CORSConfig{AllowedOrigins: splitCSV(envString("CORS_ALLOWED_ORIGINS", ""))},
		Security: SecurityConfig{EnableHSTS: envBool("ENABLE_HSTS", false), HSTSMaxAge: envDuration("HSTS_MAX_AGE", 180*24*time.Hour)},

		IdempotencyTTL: envDuration("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     envBool("OTEL_ENABLED", false),
			Endpoint:    envString("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    envBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: envString("OTEL_SERVICE_NAME", "places-market"),
			SampleRatio: envFloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid setting, joined into one error.
func (c Config) Validate() error {
	var errs []error
	check := func(bad bool, format string, args ...any) {
		if bad {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		errs = append(errs, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic"))
	}
	check(strings.TrimSpace(c.Port) == "", "PORT must not be empty")
	check(c.ReadTimeout <= 0 || c.ReadHeaderTimeout <= 0 || c.WriteTimeout <= 0 || c.IdleTimeout <= 0,
		"timeouts must be positive durations")
	check(c.MaxHeaderBytes <= 0, "MAX_HEADER_BYTES must be > 0")

	check(strings.TrimSpace(c.DBPath) == "", "DB_PATH must not be empty")
	check(strings.TrimSpace(c.UploadDir) == "", "UPLOAD_DIR must not be empty")
	check(c.MaxUploadBytes <= 0, "MAX_UPLOAD_BYTES must be > 0")

	check(len(c.Auth.JWTSecret) < minSecretBytes, "JWT_SECRET must be at least %d bytes", minSecretBytes)
	check(c.Auth.TokenTTL <= 0, "JWT_TTL must be > 0")
	check(c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost,
		"BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	check(c.Redis.DB < 0, "REDIS_DB must be >= 0")
	check((c.Admin.Username == "") != (c.Admin.Password == ""), "ADMIN_USERNAME and ADMIN_PASSWORD must be set together")

	check(c.Security.HSTSMaxAge < 0, "HSTS_MAX_AGE must be >= 0")
	check(c.IdempotencyTTL <= 0, "IDEMPOTENCY_TTL must be > 0")
	check(c.OTEL.SampleRatio < 0 || c.OTEL.SampleRatio > 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	return errors.Join(errs...)
}

func ginMode(v string) string {
	switch v = strings.ToLower(v); v {
	case "debug", "release", "test":
		return v
	}
	return "release"
}

func logLevel(v string) string {
	if v = strings.ToLower(v); v == "warning" {
		return "warn"
	}
	return v
}

// envParse returns def when k is unset, empty or does not parse.
func envParse[T any](k string, def T, parse func(string) (T, error)) T {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	out, err := parse(v)
	if err != nil {
		return def
	}
	return out
}

func envString(k, def string) string {
	return envParse(k, def, func(v string) (string, error) { return v, nil })
}

func envInt(k string, def int) int { return envParse(k, def, strconv.Atoi) }

func envDuration(k string, def time.Duration) time.Duration {
	return envParse(k, def, time.ParseDuration)
}

func envFloat(k string, def float64) float64 {
	return envParse(k, def, func(v string) (float64, error) { return strconv.ParseFloat(v, 64) })
}

func envBool(k string, def bool) bool {
	return envParse(k, def, func(v string) (bool, error) {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true, nil
		case "0", "false", "no", "n", "off":
			return false, nil
		}
		return false, fmt.Errorf("not a boolean: %q", v)
	})
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures a leading '/' and strips trailing ones; "" is root.
func normalizeBasePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	return "/" + p
}
