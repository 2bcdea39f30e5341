package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// State persistence. "memory" keeps call state in-process (the default,
	// sufficient for the single-instance contract); "redis" survives restarts.
	StateBackend  string
	CallStateTTL  time.Duration
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Client directory. "memory" uses the seeded in-process directory;
	// "postgres" talks to the clients schema managed by cmd/migrate.
	DirectoryBackend string
	DatabaseURL      string

	// Per-turn execution deadline. A turn that exceeds it is treated as a
	// collaborator failure, not a crash.
	TurnTimeout time.Duration

	// Websocket keepalive window before the connection is considered dead.
	KeepaliveTimeout time.Duration
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StateBackend:  strings.ToLower(strings.TrimSpace(getEnv("STATE_BACKEND", "memory"))),
		CallStateTTL:  getEnvAsDuration("CALL_STATE_TTL", 24*time.Hour),
		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		DirectoryBackend: strings.ToLower(strings.TrimSpace(getEnv("DIRECTORY_BACKEND", "memory"))),
		DatabaseURL:      getEnv("DATABASE_URL", ""),

		TurnTimeout:      getEnvAsDuration("TURN_TIMEOUT", 30*time.Second),
		KeepaliveTimeout: getEnvAsDuration("KEEPALIVE_TIMEOUT", 90*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
