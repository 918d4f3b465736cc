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
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Admin     AdminConfig
	Fraud     FraudConfig
	Email     EmailConfig
	Discord   DiscordConfig
	NATS      NATSConfig
	Sentry    SentryConfig
	Tracing   TracingConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port           string
	Environment    string
	ServiceName    string
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int    // seconds, applied to heavy admin reporting routes
	CORSOrigins    string // Comma-separated list of allowed origins
	MigrationsPath string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret     string
	Expiration int // in hours
}

// AdminConfig holds the back-office credentials
type AdminConfig struct {
	Username     string
	PasswordHash string // bcrypt
	TOTPSecret   string // base32; empty disables the second factor
}

// FraudConfig holds fraud engine settings
type FraudConfig struct {
	BlacklistBackend string // memory or redis
	BlacklistKey     string
}

// EmailConfig holds SendGrid configuration
type EmailConfig struct {
	APIKey     string
	FromEmail  string
	FromName   string
	StaffEmail string
}

// DiscordConfig holds Discord webhook configuration
type DiscordConfig struct {
	OrdersWebhookURL string
	AlertsWebhookURL string
	Timeout          int // seconds
	Breaker          BreakerConfig
}

// BreakerConfig tunes the circuit breaker in front of an outbound target
type BreakerConfig struct {
	IntervalSeconds  int // closed-state window after which failure counts reset
	OpenSeconds      int // how long a tripped breaker rejects calls
	FailureThreshold int // consecutive failures that trip the breaker
	HalfOpenRequests int // trial calls allowed once the open period ends
}

// NATSConfig holds NATS event bus configuration
type NATSConfig struct {
	URL     string
	Enabled bool
}

// SentryConfig holds error reporting configuration
type SentryConfig struct {
	DSN              string
	TracesSampleRate float64
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Endpoint    string
	Insecure    bool
	SampleRatio float64
}

// StorageConfig holds S3-compatible object storage settings for product images.
// An empty Bucket disables uploads.
type StorageConfig struct {
	Bucket         string
	Region         string
	Endpoint       string // MinIO or R2
	AccessKey      string
	SecretKey      string
	BaseURL        string // CDN prefix
	MaxImageSizeMB int
}

// RateLimitConfig holds fixed-window request limits backed by Redis
type RateLimitConfig struct {
	Enabled        bool
	WindowSeconds  int
	DefaultLimit   int
	AnonymousLimit int
	RedisPrefix    string
	Endpoints      map[string]EndpointRateLimitConfig
}

// EndpointRateLimitConfig overrides the defaults for one route
type EndpointRateLimitConfig struct {
	AuthenticatedLimit int
	AnonymousLimit     int
	WindowSeconds      int
}

// Window returns the default window, one minute when unset
func (c RateLimitConfig) Window() time.Duration {
	if c.WindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.WindowSeconds) * time.Second
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			ServiceName:    serviceName,
			ReadTimeout:    getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout:   getEnvAsInt("WRITE_TIMEOUT", 10),
			RequestTimeout: getEnvAsInt("REQUEST_TIMEOUT", 15),
			CORSOrigins:    getEnv("CORS_ORIGINS", "http://localhost:3000"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "file://migrations"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "storefront"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			Expiration: getEnvAsInt("JWT_EXPIRATION", 24),
		},
		Admin: AdminConfig{
			Username:     getEnv("ADMIN_USERNAME", "admin"),
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
			TOTPSecret:   getEnv("ADMIN_TOTP_SECRET", ""),
		},
		Fraud: FraudConfig{
			BlacklistBackend: getEnv("FRAUD_BLACKLIST_BACKEND", "memory"),
			BlacklistKey:     getEnv("FRAUD_BLACKLIST_KEY", "fraud:ip_blacklist"),
		},
		Email: EmailConfig{
			APIKey:     getEnv("SENDGRID_API_KEY", ""),
			FromEmail:  getEnv("EMAIL_FROM", "store@armysmp.net"),
			FromName:   getEnv("EMAIL_FROM_NAME", "Army SMP 2 Store"),
			StaffEmail: getEnv("EMAIL_STAFF", ""),
		},
		Discord: DiscordConfig{
			OrdersWebhookURL: getEnv("DISCORD_ORDERS_WEBHOOK_URL", ""),
			AlertsWebhookURL: getEnv("DISCORD_ALERTS_WEBHOOK_URL", ""),
			Timeout:          getEnvAsInt("DISCORD_TIMEOUT", 5),
			Breaker: BreakerConfig{
				IntervalSeconds:  getEnvAsInt("DISCORD_BREAKER_INTERVAL", 60),
				OpenSeconds:      getEnvAsInt("DISCORD_BREAKER_OPEN", 30),
				FailureThreshold: getEnvAsInt("DISCORD_BREAKER_FAILURES", 5),
				HalfOpenRequests: getEnvAsInt("DISCORD_BREAKER_HALF_OPEN", 1),
			},
		},
		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Enabled: getEnvAsBool("NATS_ENABLED", false),
		},
		Sentry: SentryConfig{
			DSN:              getEnv("SENTRY_DSN", ""),
			TracesSampleRate: getEnvAsFloat("SENTRY_TRACES_SAMPLE_RATE", 0.1),
		},
		Tracing: TracingConfig{
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:    getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SampleRatio: getEnvAsFloat("OTEL_TRACES_SAMPLE_RATIO", 1.0),
		},
		Storage: StorageConfig{
			Bucket:         getEnv("STORAGE_BUCKET", ""),
			Region:         getEnv("STORAGE_REGION", "us-east-1"),
			Endpoint:       getEnv("STORAGE_ENDPOINT", ""),
			AccessKey:      getEnv("STORAGE_ACCESS_KEY", ""),
			SecretKey:      getEnv("STORAGE_SECRET_KEY", ""),
			BaseURL:        getEnv("STORAGE_BASE_URL", ""),
			MaxImageSizeMB: getEnvAsInt("STORAGE_MAX_IMAGE_MB", 5),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvAsBool("RATE_LIMIT_ENABLED", true),
			WindowSeconds:  getEnvAsInt("RATE_LIMIT_WINDOW", 60),
			DefaultLimit:   getEnvAsInt("RATE_LIMIT_DEFAULT", 120),
			AnonymousLimit: getEnvAsInt("RATE_LIMIT_ANONYMOUS", 60),
			RedisPrefix:    getEnv("RATE_LIMIT_PREFIX", "rl"),
			Endpoints: map[string]EndpointRateLimitConfig{
				"/api/v1/admin/login": {AnonymousLimit: getEnvAsInt("RATE_LIMIT_ADMIN_LOGIN", 5), WindowSeconds: 300},
				"/api/v1/auth/login":  {AnonymousLimit: getEnvAsInt("RATE_LIMIT_LOGIN", 10), WindowSeconds: 300},
				"/api/v1/orders":      {AuthenticatedLimit: 10, AnonymousLimit: 5},
			},
		},
	}

	if cfg.Server.Environment == "production" && cfg.JWT.Secret == "your-secret-key-change-in-production" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the database URL form used by the migrator
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
