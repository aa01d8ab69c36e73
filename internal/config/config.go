package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Engine   EngineConfig
	Notify   NotifyConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	AutoMigrate       bool
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	// AttemptRateLimit is the number of attempts and enrollments allowed per
	// client IP per minute.
	AttemptRateLimit int
}

// AuthConfig covers the admin API. Subjects of access decisions never hold
// credentials here.
type AuthConfig struct {
	AdminJWTSecret string
	TokenExpiry    time.Duration
}

// EngineConfig tunes the decision engine.
type EngineConfig struct {
	Nu                  float64
	Gamma               float64
	AlertCap            int
	LedgerFlushInterval time.Duration
	AttemptRetention    time.Duration
	CleanupInterval     time.Duration
	ModelIntegrityKey   string
}

// NotifyConfig controls where critical alerts are fanned out to.
type NotifyConfig struct {
	Enabled      bool
	AWSRegion    string
	FromAddress  string
	Recipients   []string
	RedisURL     string
	RedisChannel string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	adminSecret := getEnv("ADMIN_JWT_SECRET", "")
	if adminSecret == "" {
		return nil, fmt.Errorf("ADMIN_JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "attune"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			Port:             getEnv("PORT", "8080"),
			Env:              env,
			LogLevel:         getEnv("LOG_LEVEL", "info"),
			AllowedOrigins:   parseAllowedOrigins(env),
			TrustedProxies:   splitList(getEnv("TRUSTED_PROXIES", "")),
			ReadTimeout:      getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:     getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:      getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			AttemptRateLimit: getEnvAsInt("ATTEMPT_RATE_LIMIT", 30),
		},
		Auth: AuthConfig{
			AdminJWTSecret: adminSecret,
			TokenExpiry:    getEnvAsDuration("ADMIN_TOKEN_EXPIRY", 1*time.Hour),
		},
		Engine: EngineConfig{
			Nu:                  getEnvAsFloat("MODEL_NU", 0.3),
			Gamma:               getEnvAsFloat("MODEL_GAMMA", 0.01),
			AlertCap:            getEnvAsInt("ALERT_CAP", 1000),
			LedgerFlushInterval: getEnvAsDuration("LEDGER_FLUSH_INTERVAL", 10*time.Second),
			AttemptRetention:    getEnvAsDuration("ATTEMPT_RETENTION", 30*24*time.Hour),
			CleanupInterval:     getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
			ModelIntegrityKey:   getEnv("MODEL_INTEGRITY_KEY", ""),
		},
		Notify: NotifyConfig{
			Enabled:      getEnvAsBool("ALERT_NOTIFY_ENABLED", false),
			AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
			FromAddress:  getEnv("ALERT_FROM_ADDRESS", ""),
			Recipients:   splitList(getEnv("ALERT_RECIPIENTS", "")),
			RedisURL:     getEnv("REDIS_URL", ""),
			RedisChannel: getEnv("REDIS_ALERT_CHANNEL", "attune:alerts"),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateSecret("ADMIN_JWT_SECRET", adminSecret, env); err != nil {
		return nil, err
	}

	if len(cfg.Engine.ModelIntegrityKey) > 64 {
		return nil, fmt.Errorf("MODEL_INTEGRITY_KEY must be at most 64 bytes")
	}
	if env == "production" && cfg.Engine.ModelIntegrityKey == "" {
		return nil, fmt.Errorf("MODEL_INTEGRITY_KEY is required in production")
	}

	if cfg.Engine.Nu <= 0 || cfg.Engine.Nu >= 1 {
		return nil, fmt.Errorf("MODEL_NU must be in (0, 1), got %v", cfg.Engine.Nu)
	}
	if cfg.Engine.Gamma <= 0 {
		return nil, fmt.Errorf("MODEL_GAMMA must be positive, got %v", cfg.Engine.Gamma)
	}

	if cfg.Notify.Enabled && cfg.Notify.FromAddress != "" && len(cfg.Notify.Recipients) == 0 {
		return nil, fmt.Errorf("ALERT_RECIPIENTS is required when ALERT_FROM_ADDRESS is set")
	}

	return cfg, nil
}

// validateSecret enforces minimum security standards for signing secrets
func validateSecret(name, secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("%s must be at least %d characters in %s environment (got %d)",
			name, minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("%s cannot be a common weak value", name)
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		return splitList(getEnv("ALLOWED_ORIGINS", ""))
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:8080",
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:5173",
	}
}
