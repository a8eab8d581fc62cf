package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Chain    ChainConfig
	Cache    CacheConfig
	Refresh  RefreshConfig
	Demo     DemoConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
	NonceTTL      time.Duration
}

// ChainConfig points at the multisig factory and the node that serves it
type ChainConfig struct {
	RPCURL         string
	ChainID        int64
	FactoryAddress string
	// OperatorKey signs actions. Empty means read-only.
	OperatorKey    string
	PollInterval   time.Duration
	BatchSize      int
	MaxConcurrency int
	RetryAttempts  uint
	RetryDelay     time.Duration
	ReceiptTimeout time.Duration
}

// CacheConfig holds snapshot cache settings
type CacheConfig struct {
	SnapshotTTL      time.Duration
	TokenLRUCapacity int
}

// RefreshConfig holds the background refresh settings
type RefreshConfig struct {
	Interval time.Duration
}

// DemoConfig switches the chain reader to built-in fixtures
type DemoConfig struct {
	Enabled bool
	Viewer  string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "multisig"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", "change-this-in-production"),
			AccessExpiry:  getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry: getEnvAsDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),
			NonceTTL:      getEnvAsDuration("AUTH_NONCE_TTL", 5*time.Minute),
		},
		Chain: ChainConfig{
			RPCURL:         getEnv("CHAIN_RPC_URL", "http://localhost:8545"),
			ChainID:        int64(getEnvAsInt("CHAIN_ID", 31337)),
			FactoryAddress: getEnv("MULTISIG_FACTORY_ADDRESS", ""),
			OperatorKey:    getEnvFirst("OPERATOR_PRIVATE_KEY", "PRIVATE_KEY"),
			PollInterval:   getEnvAsDuration("CHAIN_POLL_INTERVAL", 4*time.Second),
			BatchSize:      getEnvAsInt("CHAIN_BATCH_SIZE", 100),
			MaxConcurrency: getEnvAsInt("CHAIN_MAX_CONCURRENCY", 8),
			RetryAttempts:  uint(getEnvAsInt("CHAIN_RETRY_ATTEMPTS", 3)),
			RetryDelay:     getEnvAsDuration("CHAIN_RETRY_DELAY", 250*time.Millisecond),
			ReceiptTimeout: getEnvAsDuration("CHAIN_RECEIPT_TIMEOUT", 3*time.Minute),
		},
		Cache: CacheConfig{
			SnapshotTTL:      getEnvAsDuration("SNAPSHOT_CACHE_TTL", 15*time.Second),
			TokenLRUCapacity: getEnvAsInt("TOKEN_CACHE_SIZE", 512),
		},
		Refresh: RefreshConfig{
			Interval: getEnvAsDuration("REFRESH_INTERVAL", time.Minute),
		},
		Demo: DemoConfig{
			Enabled: getEnvAsBool("DEMO_MODE", false),
			Viewer:  getEnv("DEMO_VIEWER_ADDRESS", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFirst returns the first non-empty variable among keys.
func getEnvFirst(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
