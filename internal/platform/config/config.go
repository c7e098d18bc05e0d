package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends for driver lists and the insurance catalog.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
	StoreDynamo = "dynamodb"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Store selection: memory, redis, mongo or dynamodb
	StoreType string

	// MongoDB settings (when StoreType = "mongo")
	MongoURI string
	MongoDB  string

	// DynamoDB settings (when StoreType = "dynamodb")
	AWSRegion          string
	DynamoDBEndpoint   string // Optional: for local development
	AWSAccessKeyID     string // Optional: for local development
	AWSSecretAccessKey string // Optional: for local development

	// Redis settings (driver store when StoreType = "redis", geography cache whenever RedisAddr is set)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	GeoCacheTTL   time.Duration

	// Booking API
	RentsystAPIURL        string
	RentsystAuthURL       string
	RentsystClientID      string
	RentsystClientSecret  string
	RentsystFallbackToken string
	RentsystPayURL        string
	RentsystTimeout       time.Duration

	// Order lifecycle
	ConfirmRetryDelay time.Duration
	SettleDelay       time.Duration
	SessionIdleTTL    time.Duration
	DriverInfoTTL     time.Duration

	// Timeouts
	HTTPReadTimeoutSec     int
	HTTPWriteTimeoutSec    int
	HTTPIdleTimeoutSec     int
	HTTPRequestTimeoutSec  int
	MongoConnectTimeoutSec int
	MongoOpTimeoutMs       int

	// Worker settings
	WorkerIntervalSec int

	// Security settings
	APIKey         string
	AllowedOrigins []string
	RateLimitRPM   int
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	cfg := &Config{}

	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "dev")
	cfg.LogLevel = getEnv("LOG_LEVEL", "")
	cfg.StoreType = strings.ToLower(getEnv("STORE_TYPE", StoreMemory))

	cfg.MongoURI = getEnv("MONGODB_URI", getEnv("MONGO_URI", ""))
	cfg.MongoDB = getEnv("MONGO_DB", "car_rental")

	cfg.AWSRegion = getEnv("AWS_REGION", "eu-central-1")
	cfg.DynamoDBEndpoint = getEnv("DYNAMODB_ENDPOINT", "")
	cfg.AWSAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AWSSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")

	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.RedisDB = getEnvAsInt("REDIS_DB", 0)
	cfg.GeoCacheTTL = getEnvAsDuration("GEO_CACHE_TTL_SEC", time.Second, time.Hour)

	cfg.RentsystAPIURL = strings.TrimRight(getEnv("RENTSYST_API_URL", ""), "/")
	cfg.RentsystAuthURL = getEnv("RENTSYST_AUTH_URL", "")
	cfg.RentsystClientID = getEnv("RENTSYST_CLIENT_ID", "")
	cfg.RentsystClientSecret = getEnv("RENTSYST_CLIENT_SECRET", "")
	cfg.RentsystFallbackToken = getEnv("RENTSYST_FALLBACK_TOKEN", "")
	cfg.RentsystPayURL = getEnv("RENTSYST_PAY_URL", "https://pay.rentsyst.com/")
	cfg.RentsystTimeout = getEnvAsDuration("RENTSYST_TIMEOUT_SEC", time.Second, 15*time.Second)

	cfg.ConfirmRetryDelay = getEnvAsDuration("CONFIRM_RETRY_DELAY_MS", time.Millisecond, time.Second)
	cfg.SettleDelay = getEnvAsDuration("INSURANCE_SETTLE_DELAY_MS", time.Millisecond, 500*time.Millisecond)
	cfg.SessionIdleTTL = getEnvAsDuration("SESSION_IDLE_TTL_MIN", time.Minute, 30*time.Minute)
	cfg.DriverInfoTTL = getEnvAsDuration("DRIVER_INFO_TTL_HOURS", time.Hour, 30*24*time.Hour)

	cfg.HTTPReadTimeoutSec = getEnvAsInt("HTTP_READ_TIMEOUT_SEC", 10)
	cfg.HTTPWriteTimeoutSec = getEnvAsInt("HTTP_WRITE_TIMEOUT_SEC", 30)
	cfg.HTTPIdleTimeoutSec = getEnvAsInt("HTTP_IDLE_TIMEOUT_SEC", 120)
	cfg.HTTPRequestTimeoutSec = getEnvAsInt("HTTP_REQUEST_TIMEOUT_SEC", 30)
	cfg.MongoConnectTimeoutSec = getEnvAsInt("MONGO_CONNECT_TIMEOUT_SEC", 5)
	cfg.MongoOpTimeoutMs = getEnvAsInt("MONGO_OP_TIMEOUT_MS", 500)
	cfg.WorkerIntervalSec = getEnvAsInt("WORKER_INTERVAL_SEC", 60)

	cfg.APIKey = getEnv("API_KEY", "")
	cfg.AllowedOrigins = getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:8080"})
	cfg.RateLimitRPM = getEnvAsInt("RATE_LIMIT_RPM", 100)

	switch cfg.StoreType {
	case StoreMemory, StoreRedis, StoreMongo, StoreDynamo:
	default:
		return nil, fmt.Errorf("unknown STORE_TYPE %q", cfg.StoreType)
	}
	if cfg.StoreType == StoreMongo && cfg.MongoURI == "" {
		return nil, fmt.Errorf("MONGODB_URI is required when STORE_TYPE=mongo")
	}
	if cfg.StoreType == StoreRedis && cfg.RedisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required when STORE_TYPE=redis")
	}
	if cfg.RentsystAPIURL == "" {
		return nil, fmt.Errorf("RENTSYST_API_URL is required")
	}

	// In production, API_KEY must be explicitly set
	if cfg.Env == "prod" && cfg.APIKey == "" {
		return nil, fmt.Errorf("API_KEY is required in production environment")
	}

	// Default API key for development only
	if cfg.APIKey == "" {
		cfg.APIKey = "dev-api-key"
	}

	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// HasOAuth reports whether client credentials for the booking API are configured.
func (c *Config) HasOAuth() bool {
	return c.RentsystAuthURL != "" && c.RentsystClientID != "" && c.RentsystClientSecret != ""
}

func getEnv(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if val, err := strconv.Atoi(valStr); err == nil {
		return val
	}
	return defaultVal
}

// getEnvAsDuration reads an integer count of unit. Negative values fall back to the default.
func getEnvAsDuration(key string, unit, defaultVal time.Duration) time.Duration {
	val, err := strconv.Atoi(os.Getenv(key))
	if err != nil || val < 0 {
		return defaultVal
	}
	return time.Duration(val) * unit
}

func getEnvAsSlice(key string, defaultVal []string) []string {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	var result []string
	for _, s := range strings.Split(valStr, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	if len(result) == 0 {
		return defaultVal
	}
	return result
}
