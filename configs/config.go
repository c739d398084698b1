package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Email        EmailConfig
	Redis        RedisConfig
	Dynamo       DynamoConfig
	Challenge    ChallengeConfig
	Notification NotificationConfig
	Log          LogConfig
	RateLimit    RateLimitConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MigrationsPath  string
}

type JWTConfig struct {
	Secret string
	Issuer string
	// Direct password login gets a multi-day window, OTP-verified login a short one
	PasswordLoginTTL time.Duration
	OTPLoginTTL      time.Duration
}

type EmailConfig struct {
	SendGridAPIKey string // empty selects the log-only notifier
	FromEmail      string
	FromName       string
	StoreName      string
	BaseURL        string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
	CacheTTL     time.Duration
}

type DynamoConfig struct {
	Region          string
	Endpoint        string // set for dynamodb-local
	AccessKeyID     string
	SecretAccessKey string
	Table           string
	AutoCreate      bool
}

type ChallengeConfig struct {
	RegistrationStore string // postgres, redis or dynamodb
	LoginStore        string // memory or redis
	RegistrationTTL   time.Duration
	LoginTTL          time.Duration
	TokenBytes        int
	MaxAttempts       int // 0 disables the per-challenge attempt limit
	SweepInterval     time.Duration
	RedisGrace        time.Duration
}

type NotificationConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

type RateLimitConfig struct {
	// Per-email issuance throttle for challenge requests and resends
	ChallengesPerWindow int
	Window              time.Duration
	KeyPrefix           string
	// Per-IP token bucket on the auth routes
	IPRequestsPerSecond float64
	IPBurst             int
}

const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreDynamoDB = "dynamodb"
	StoreMemory   = "memory"
)

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:  getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:   getEnv("TLS_KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "storefront"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			MigrationsPath:  getEnv("DB_MIGRATIONS_PATH", "migrations"),
		},
		JWT: JWTConfig{
			Secret:           getEnv("JWT_SECRET", ""),
			Issuer:           getEnv("JWT_ISSUER", "storefront-auth"),
			PasswordLoginTTL: getDurationEnv("JWT_PASSWORD_LOGIN_TTL", 7*24*time.Hour),
			OTPLoginTTL:      getDurationEnv("JWT_OTP_LOGIN_TTL", time.Hour),
		},
		Email: EmailConfig{
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
			FromEmail:      getEnv("FROM_EMAIL", "noreply@example.com"),
			FromName:       getEnv("FROM_NAME", "Storefront"),
			StoreName:      getEnv("STORE_NAME", "Storefront"),
			BaseURL:        getEnv("BASE_URL", "http://localhost:3000"),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
			CacheTTL:     getDurationEnv("REDIS_CACHE_TTL", 5*time.Minute),
		},
		Dynamo: DynamoConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Endpoint:        getEnv("DYNAMODB_ENDPOINT", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Table:           getEnv("DYNAMODB_CHALLENGE_TABLE", "pending_challenges"),
			AutoCreate:      getBoolEnv("DYNAMODB_AUTO_CREATE", false),
		},
		Challenge: ChallengeConfig{
			RegistrationStore: strings.ToLower(getEnv("CHALLENGE_REGISTRATION_STORE", StorePostgres)),
			LoginStore:        strings.ToLower(getEnv("CHALLENGE_LOGIN_STORE", StoreMemory)),
			RegistrationTTL:   getDurationEnv("CHALLENGE_REGISTRATION_TTL", 10*time.Minute),
			LoginTTL:          getDurationEnv("CHALLENGE_LOGIN_TTL", 10*time.Minute),
			TokenBytes:        getIntEnv("CHALLENGE_TOKEN_BYTES", 3),
			MaxAttempts:       getIntEnv("CHALLENGE_MAX_ATTEMPTS", 5),
			SweepInterval:     getDurationEnv("CHALLENGE_SWEEP_INTERVAL", 5*time.Minute),
			RedisGrace:        getDurationEnv("CHALLENGE_REDIS_GRACE", time.Minute),
		},
		Notification: NotificationConfig{
			Workers:   getIntEnv("NOTIFY_WORKERS", 4),
			QueueSize: getIntEnv("NOTIFY_QUEUE_SIZE", 256),
			Timeout:   getDurationEnv("NOTIFY_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		RateLimit: RateLimitConfig{
			ChallengesPerWindow: getIntEnv("RATE_LIMIT_CHALLENGES_PER_WINDOW", 5),
			Window:              getDurationEnv("RATE_LIMIT_WINDOW", 15*time.Minute),
			KeyPrefix:           getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit:challenge"),
			IPRequestsPerSecond: getFloatEnv("RATE_LIMIT_IP_RPS", 5),
			IPBurst:             getIntEnv("RATE_LIMIT_IP_BURST", 20),
		},
	}

	// Build database DSN
	cfg.Database.DSN = fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem at once rather than the first one.
func (c *Config) Validate() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(c.JWT.Secret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 characters"))
	}
	switch c.Challenge.RegistrationStore {
	case StorePostgres, StoreRedis, StoreDynamoDB:
	default:
		errs = append(errs, fmt.Errorf("CHALLENGE_REGISTRATION_STORE %q must be one of postgres, redis, dynamodb", c.Challenge.RegistrationStore))
	}
	switch c.Challenge.LoginStore {
	case StoreMemory, StoreRedis:
	default:
		errs = append(errs, fmt.Errorf("CHALLENGE_LOGIN_STORE %q must be one of memory, redis", c.Challenge.LoginStore))
	}
	if c.Challenge.RegistrationTTL <= 0 || c.Challenge.LoginTTL <= 0 {
		errs = append(errs, errors.New("challenge TTLs must be positive"))
	}
	if c.Challenge.TokenBytes < 3 || c.Challenge.TokenBytes > 16 {
		errs = append(errs, errors.New("CHALLENGE_TOKEN_BYTES must be between 3 and 16"))
	}
	if c.Challenge.MaxAttempts < 0 {
		errs = append(errs, errors.New("CHALLENGE_MAX_ATTEMPTS must not be negative"))
	}
	if c.JWT.PasswordLoginTTL <= 0 || c.JWT.OTPLoginTTL <= 0 {
		errs = append(errs, errors.New("JWT TTLs must be positive"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
