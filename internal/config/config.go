package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port           string
	StorageDriver  string
	DatabaseURL    string
	SQLitePath     string
	JWTSecret      string
	JWTIssuer      string
	JWTTTL         time.Duration
	BcryptCost     int
	CORSOrigins    []string
	StaticDir      string
	AuthRateLimit  string
	RedisURL       string
	MetricsEnabled bool
	LogLevel       string
	LogFormat      string
	Development    bool
}

// Load reads configuration from the environment (and CONFIG_FILE, if set) and validates it.
// A missing JWT_SECRET is an error; there is no built-in fallback secret.
func Load() (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "5000")
	v.SetDefault("STORAGE_DRIVER", DriverPostgres)
	v.SetDefault("SQLITE_PATH", "timecard.db")
	v.SetDefault("JWT_ISSUER", "timecard-backend")
	v.SetDefault("JWT_TTL_MINUTES", 7*24*60)
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("AUTH_RATE_LIMIT", "20-M")
	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("APP_ENV", "production")

	if p := strings.TrimSpace(os.Getenv("CONFIG_FILE")); p != "" {
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Port:           fallback(v.GetString("PORT"), "5000"),
		StorageDriver:  strings.ToLower(fallback(v.GetString("STORAGE_DRIVER"), DriverPostgres)),
		DatabaseURL:    strings.TrimSpace(v.GetString("DATABASE_URL")),
		SQLitePath:     fallback(v.GetString("SQLITE_PATH"), "timecard.db"),
		JWTSecret:      strings.TrimSpace(v.GetString("JWT_SECRET")),
		JWTIssuer:      fallback(v.GetString("JWT_ISSUER"), "timecard-backend"),
		BcryptCost:     v.GetInt("BCRYPT_COST"),
		CORSOrigins:    parseCSV(v.GetString("CORS_ALLOWED_ORIGINS")),
		StaticDir:      strings.TrimSpace(v.GetString("STATIC_DIR")),
		AuthRateLimit:  strings.TrimSpace(v.GetString("AUTH_RATE_LIMIT")),
		RedisURL:       strings.TrimSpace(v.GetString("REDIS_URL")),
		MetricsEnabled: v.GetBool("METRICS_ENABLED"),
		LogLevel:       fallback(v.GetString("LOG_LEVEL"), "info"),
		LogFormat:      fallback(v.GetString("LOG_FORMAT"), "console"),
		Development:    strings.EqualFold(strings.TrimSpace(v.GetString("APP_ENV")), "development"),
	}

	if ttlMinutes := v.GetInt("JWT_TTL_MINUTES"); ttlMinutes > 0 {
		cfg.JWTTTL = time.Duration(ttlMinutes) * time.Minute
	} else {
		cfg.JWTTTL = 7 * 24 * time.Hour
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
	case DriverSQLite, DriverMemory:
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	return nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
