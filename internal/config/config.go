package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Bootstrap BootstrapConfig
	RateLimit RateLimitConfig
}

// BootstrapConfig controls startup seeding.
type BootstrapConfig struct {
	EnsureRootUnit     bool
	EnsureDefaultAdmin bool
	RootUnitName       string
	DefaultAdminName   string
	DefaultAdminLogin  string
}

// RateLimitConfig controls the redis-backed limiter guarding the
// channel-resync repair endpoint. Disabled when no redis addr is set.
type RateLimitConfig struct {
	Enabled           bool
	RedisAddr         string
	RedisPassword     string
	RedisDB           int
	ResyncRate        float64
	ResyncBurst       int
	ResyncLockSeconds int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "govcomm"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  environment,
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "govcomm"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 3600),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 600),

		Bootstrap: BootstrapConfig{
			EnsureRootUnit:     getenvBool("BOOTSTRAP_ROOT_UNIT", true),
			EnsureDefaultAdmin: getenvBool("BOOTSTRAP_DEFAULT_ADMIN", environment != "production"),
			RootUnitName:       getenv("BOOTSTRAP_ROOT_UNIT_NAME", "Правительство"),
			DefaultAdminName:   getenv("BOOTSTRAP_ADMIN_NAME", "System Administrator"),
			DefaultAdminLogin:  getenv("BOOTSTRAP_ADMIN_LOGIN", "admin"),
		},
	}

	redisAddr := strings.TrimSpace(getenv("RATE_LIMIT_REDIS_ADDR", ""))
	cfg.RateLimit = RateLimitConfig{
		Enabled:           redisAddr != "" && getenvBool("RATE_LIMIT_ENABLED", true),
		RedisAddr:         redisAddr,
		RedisPassword:     getenv("RATE_LIMIT_REDIS_PASSWORD", ""),
		RedisDB:           getenvInt("RATE_LIMIT_REDIS_DB", 0),
		ResyncRate:        getenvFloat("RESYNC_RATE_PER_SECOND", 0.2),
		ResyncBurst:       getenvInt("RESYNC_BURST", 3),
		ResyncLockSeconds: getenvInt("RESYNC_LOCK_TTL_SECONDS", 60),
	}

	return cfg
}

// Module wires configuration for the application.
var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewHierarchyConfigHolder),
)

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
