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
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Admin    AdminConfig
	Passkey  PasskeyConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	SessionSecret    string // HMAC key for admin cookies and passkey challenges
	SessionTTL       time.Duration
	RefreshThreshold time.Duration
	TokenLimit       int
	SecureCookies    bool
}

type AdminConfig struct {
	Password string
	TTL      time.Duration
}

type PasskeyConfig struct {
	RPID         string
	RPName       string
	RPOrigins    []string
	ChallengeTTL time.Duration
}

func Load() (*Config, error) {
	// Best effort; a missing .env just means env vars are set elsewhere.
	_ = godotenv.Load()

	port, err := getEnvInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	tokenLimit, err := getEnvInt("API_TOKEN_LIMIT", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid API_TOKEN_LIMIT: %w", err)
	}

	sessionTTL, err := getEnvDuration("SESSION_TTL", 168*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	refreshThreshold, err := getEnvDuration("SESSION_REFRESH_THRESHOLD", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_REFRESH_THRESHOLD: %w", err)
	}

	adminTTL, err := getEnvDuration("ADMIN_SESSION_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_SESSION_TTL: %w", err)
	}

	challengeTTL, err := getEnvDuration("PASSKEY_CHALLENGE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid PASSKEY_CHALLENGE_TTL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: port,
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			SessionSecret:    getEnv("SESSION_SECRET", ""),
			SessionTTL:       sessionTTL,
			RefreshThreshold: refreshThreshold,
			TokenLimit:       tokenLimit,
			SecureCookies:    getEnv("SECURE_COOKIES", "true") == "true",
		},
		Admin: AdminConfig{
			Password: getEnv("ADMIN_PASSWORD", ""),
			TTL:      adminTTL,
		},
		Passkey: PasskeyConfig{
			RPID:         getEnv("PASSKEY_RP_ID", "localhost"),
			RPName:       getEnv("PASSKEY_RP_NAME", "Capturedeck"),
			RPOrigins:    strings.Split(getEnv("PASSKEY_RP_ORIGINS", "http://localhost:8080"), ","),
			ChallengeTTL: challengeTTL,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) Validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.Auth.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if c.Admin.Password == "" {
		missing = append(missing, "ADMIN_PASSWORD")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if len(c.Auth.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 bytes, got %d", len(c.Auth.SessionSecret))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
