package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every section the server needs. All values come
// from the environment; Load applies defaults suitable for local
// development.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	MinIO    MinIOConfig
	JWT      JWTConfig
	Media    MediaConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port        int
	Environment string // development, staging, production
	ServiceName string
	CORSOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
	Timeout  time.Duration
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// MediaConfig controls media URL composition. BaseURL is joined with
// relative storage paths (avatars, attachments) to produce the
// absolute URLs sent to clients.
type MediaConfig struct {
	BaseURL string
}

type LogConfig struct {
	Level    string // debug, info, warn, error
	Format   string // json, text
	Output   string // stdout, file
	FilePath string
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        envInt("PORT", 8080),
			Environment: envString("ENV", "development"),
			ServiceName: envString("SERVICE_NAME", "telecare"),
			CORSOrigins: splitList(envString("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080")),
		},
		Database: DatabaseConfig{
			Host:     envString("DB_HOST", "localhost"),
			Port:     envInt("DB_PORT", 5432),
			User:     envString("DB_USER", "postgres"),
			Password: envString("DB_PASSWORD", ""),
			Database: envString("DB_NAME", "telecare"),
			SSLMode:  envString("DB_SSL_MODE", "disable"),
			MaxConns: envInt("DB_MAX_CONNS", 25),
			MinConns: envInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     envString("REDIS_HOST", "localhost"),
			Port:     envInt("REDIS_PORT", 6379),
			Password: envString("REDIS_PASSWORD", ""),
			DB:       envInt("REDIS_DB", 0),
			PoolSize: envInt("REDIS_POOL_SIZE", 10),
			Timeout:  time.Duration(envInt("REDIS_TIMEOUT_SECONDS", 5)) * time.Second,
		},
		MinIO: MinIOConfig{
			Endpoint:  envString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: envString("MINIO_ACCESS_KEY", ""),
			SecretKey: envString("MINIO_SECRET_KEY", ""),
			UseSSL:    envBool("MINIO_USE_SSL", false),
			Bucket:    envString("MINIO_BUCKET", "telecare-attachments"),
		},
		JWT: JWTConfig{
			Secret:            envString("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(envInt("JWT_ACCESS_EXPIRY_MINUTES", 15)) * time.Minute,
		},
		Media: MediaConfig{
			BaseURL: strings.TrimRight(envString("MEDIA_BASE_URL", "http://localhost:8080/media"), "/"),
		},
		Log: LogConfig{
			Level:    envString("LOG_LEVEL", "info"),
			Format:   envString("LOG_FORMAT", "json"),
			Output:   envString("LOG_OUTPUT", "stdout"),
			FilePath: envString("LOG_FILE_PATH", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d", c.Server.Port)
	}
	return nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
