package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv   string
	Port      string
	JWTSecret string
	BaseURL   string // public URL; QR labels link to BaseURL/jobs/<row key>
	Database  DatabaseConfig
	Log       LogConfig
	Session   SessionConfig
	Jobs      JobsConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Type         string // postgres | sqlite
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	SQLitePath   string
	MaxOpenConns int
	Quiet        bool
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string // console | json
}

// SessionConfig holds the auth cookie / token settings
type SessionConfig struct {
	TTL          time.Duration
	CookieSecure bool
}

// JobsConfig holds serial job policy switches
type JobsConfig struct {
	// LinearChains rejects a second successor for the same predecessor
	LinearChains bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	nodeEnv := getEnv("NODE_ENV", "development")

	cfg := &Config{
		NodeEnv:   nodeEnv,
		Port:      getEnv("PORT", "3210"),
		JWTSecret: jwtSecret,
		BaseURL:   os.Getenv("BASE_URL"),
		Database: DatabaseConfig{
			Type:         getEnv("DB_TYPE", "postgres"),
			Host:         getEnv("PG_HOST", "localhost"),
			Port:         getEnv("PG_PORT", "5432"),
			Username:     getEnv("PG_USERNAME", "postgres"),
			Password:     os.Getenv("PG_PASSWORD"),
			Database:     getEnv("PG_DATABASE", "eckclaims"),
			SQLitePath:   getEnv("SQLITE_PATH", "eckclaims.db"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			Quiet:        getEnvAsBool("DB_QUIET", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Session: SessionConfig{
			TTL:          time.Duration(getEnvAsInt("SESSION_TTL_HOURS", 24*30)) * time.Hour,
			CookieSecure: getEnvAsBool("COOKIE_SECURE", nodeEnv == "production"),
		},
		Jobs: JobsConfig{
			LinearChains: getEnvAsBool("LINEAR_REPLACEMENT_CHAINS", false),
		},
	}

	switch cfg.Database.Type {
	case "postgres", "postgresql", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE: %s", cfg.Database.Type)
	}

	return cfg, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
