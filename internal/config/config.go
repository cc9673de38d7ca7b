package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Environment string
	Port        string
	DatabaseURL string
	// MigrationsDir holds one migration directory per service, e.g. "migrations/catalog".
	MigrationsDir string

	LogLevel  string
	LogFormat string

	JWTSecret          string
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration

	// CookieSecure marks the refresh cookie Secure. Defaults to on outside dev.
	CookieSecure bool

	CORSAllowedOrigins []string

	RedisAddr string
	CacheTTL  time.Duration

	KafkaBrokers        []string
	KafkaTopic          string
	KafkaPublishTimeout time.Duration

	GDriveCredentialsPath string
	GDriveTokenPath       string
	GDriveFolderID        string

	StorefrontBaseURL string

	Gateway GatewayConfig
}

// GatewayConfig lists the upstream base URL per public path prefix.
type GatewayConfig struct {
	RoutesFile         string
	AuthServiceURL     string
	CustomerServiceURL string
	EmployeeServiceURL string
	CategoryServiceURL string
	ProductServiceURL  string
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")
	return &Config{
		Environment:   env,
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "migrations"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		JWTSecret:          getEnv("JWT_SECRET", ""),
		AccessTokenExpiry:  getEnvDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
		RefreshTokenExpiry: getEnvDuration("REFRESH_TOKEN_EXPIRY", 14*24*time.Hour),

		CookieSecure: getEnvBool("COOKIE_SECURE", env != "dev"),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		RedisAddr: getEnv("REDIS_ADDR", ""),
		CacheTTL:  getEnvDuration("CACHE_TTL", 5*time.Minute),

		KafkaBrokers:        getEnvList("KAFKA_BROKERS", nil),
		KafkaTopic:          getEnv("KAFKA_TOPIC", "emporia.events"),
		KafkaPublishTimeout: getEnvDuration("KAFKA_PUBLISH_TIMEOUT", 2*time.Second),

		GDriveCredentialsPath: getEnv("GDRIVE_CREDENTIALS_PATH", ""),
		GDriveTokenPath:       getEnv("GDRIVE_TOKEN_PATH", ""),
		GDriveFolderID:        getEnv("GDRIVE_FOLDER_ID", ""),

		StorefrontBaseURL: getEnv("STOREFRONT_BASE_URL", "http://localhost:3000"),

		Gateway: GatewayConfig{
			RoutesFile:         getEnv("GATEWAY_ROUTES_FILE", ""),
			AuthServiceURL:     getEnv("AUTH_SERVICE_URL", ""),
			CustomerServiceURL: getEnv("CUSTOMER_SERVICE_URL", ""),
			EmployeeServiceURL: getEnv("EMPLOYEE_SERVICE_URL", ""),
			CategoryServiceURL: getEnv("CATEGORY_SERVICE_URL", ""),
			ProductServiceURL:  getEnv("PRODUCT_SERVICE_URL", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// Bare integers are seconds.
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
