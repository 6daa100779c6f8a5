// Package config loads the engine configuration from the environment.
// A local .env file is honored for development setups.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full engine configuration.
type Config struct {
	Database struct {
		Host     string
		Port     int
		User     string
		Password string
		Database string
		SSLMode  string
	}

	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	MQTT struct {
		BrokerURL string
		ClientID  string
		Username  string
		Password  string
	}

	NetworkServer struct {
		BaseURL  string
		APIToken string
		Timeout  time.Duration
	}

	Engine struct {
		// UTCOffsetHours shifts alarm windows and time triggers into the
		// deployment's local time.
		UTCOffsetHours float64
		// Workers is the number of per-device evaluation workers.
		Workers int
		// StateCacheTTL bounds how long a latest reading stays in Redis.
		StateCacheTTL time.Duration
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load reads the configuration from the environment, applying defaults for
// everything optional.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may be fully set by the deployment.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "lorasense")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.BrokerURL = getEnv("MQTT_BROKER_URL", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "lorasense-alarm")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")

	cfg.NetworkServer.BaseURL = getEnv("NS_BASE_URL", "http://localhost:8080")
	cfg.NetworkServer.APIToken = getEnv("NS_API_TOKEN", "")
	cfg.NetworkServer.Timeout = time.Duration(getEnvInt("NS_TIMEOUT_SECONDS", 10)) * time.Second

	offset, err := getEnvFloat("ENGINE_UTC_OFFSET_HOURS", 3)
	if err != nil {
		return nil, err
	}
	cfg.Engine.UTCOffsetHours = offset
	cfg.Engine.Workers = getEnvInt("ENGINE_WORKERS", 8)
	cfg.Engine.StateCacheTTL = time.Duration(getEnvInt("ENGINE_STATE_CACHE_TTL_SECONDS", 3600)) * time.Second

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User,
		c.Database.Password, c.Database.Database, c.Database.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
