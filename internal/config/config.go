package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingEnv is returned when a required environment variable is absent.
var ErrMissingEnv = errors.New("missing required environment variable")

type Config struct {
	Environment string
	Server      ServerConfig
	Logging     LoggingConfig
	Store       StoreConfig
	Session     SessionConfig
	Hashing     HashingConfig
	Bucketing   BucketingConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	RateLimit   RateLimitConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	TLSPort      int
	EnableTLS    bool
	AutoCert     bool
	Domain       string
	CertFile     string
	KeyFile      string
	AutoCertDir  string
	Email        string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	AllowedOrigins []string
}

type LoggingConfig struct {
	Level  string
	Format string
}

// StoreConfig holds the account store connection string. The scheme picks
// the backend (scylla/cassandra or postgres).
type StoreConfig struct {
	URL            string
	ConnectTimeout time.Duration
	CAFile         string
}

type SessionConfig struct {
	Secret     string
	TTL        time.Duration
	CookieName string
}

type HashingConfig struct {
	BcryptCost int
}

type BucketingConfig struct {
	AccountBuckets int
}

type RedisConfig struct {
	URL         string
	Password    string
	DB          int
	PoolSize    int
	TLSCAFile   string
	TLSCertFile string
	TLSKeyFile  string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type RateLimitConfig struct {
	LoginAttempts int
	Window        time.Duration
}

// LoadConfig reads .env files (when present) and then the process
// environment. It does not validate; call Validate before using the result.
func LoadConfig() *Config {
	// Existing environment always wins over the files.
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	return &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:         getEnv("HOST", ""),
			Port:         getEnvInt("PORT", 8080),
			TLSPort:      getEnvInt("TLS_PORT", 8443),
			EnableTLS:    getEnvBool("TLS_ENABLED", false),
			AutoCert:     getEnvBool("TLS_AUTOCERT", false),
			Domain:       getEnv("TLS_DOMAIN", ""),
			CertFile:     getEnv("TLS_CERT_FILE", ""),
			KeyFile:      getEnv("TLS_KEY_FILE", ""),
			AutoCertDir:  getEnv("TLS_AUTOCERT_DIR", "./certs"),
			Email:        getEnv("TLS_EMAIL", ""),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),

			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
		Store: StoreConfig{
			URL:            getEnv("STORE_URL", ""),
			ConnectTimeout: getEnvDuration("STORE_CONNECT_TIMEOUT", 10*time.Second),
			CAFile:         getEnv("STORE_CA_FILE", ""),
		},
		Session: SessionConfig{
			Secret:     getEnv("AUTH_SECRET", ""),
			TTL:        getEnvDuration("SESSION_TTL", 30*24*time.Hour),
			CookieName: getEnv("SESSION_COOKIE", "blog_admin_session"),
		},
		Hashing: HashingConfig{
			BcryptCost: getEnvInt("BCRYPT_COST", 12),
		},
		Bucketing: BucketingConfig{
			AccountBuckets: getEnvInt("ACCOUNT_BUCKETS", 16),
		},
		Redis: RedisConfig{
			URL:         getEnv("REDIS_URL", ""),
			Password:    getEnv("REDIS_PASSWORD", ""),
			DB:          getEnvInt("REDIS_DB", 0),
			PoolSize:    getEnvInt("REDIS_POOL_SIZE", 20),
			TLSCAFile:   getEnv("REDIS_TLS_CA_FILE", ""),
			TLSCertFile: getEnv("REDIS_TLS_CERT_FILE", ""),
			TLSKeyFile:  getEnv("REDIS_TLS_KEY_FILE", ""),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "admin-security-events"),
		},
		RateLimit: RateLimitConfig{
			LoginAttempts: getEnvInt("LOGIN_RATE_LIMIT", 10),
			Window:        getEnvDuration("LOGIN_RATE_WINDOW", time.Minute),
		},
	}
}

// Validate reports configuration problems that must stop the process from
// starting: missing store URL or signing secret, and malformed store URLs.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store.URL) == "" {
		return missing("STORE_URL")
	}
	if strings.TrimSpace(c.Session.Secret) == "" {
		return missing("AUTH_SECRET")
	}
	store, err := ParseStoreURL(c.Store.URL)
	if err != nil {
		return err
	}
	if store.Backend == BackendMemory && c.IsProduction() {
		return fmt.Errorf("%w: memory:// is not allowed in production", ErrInvalidStoreURL)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.Session.TTL)
	}
	if c.Server.EnableTLS && !c.Server.AutoCert && (c.Server.CertFile == "") != (c.Server.KeyFile == "") {
		return errors.New("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}
	return nil
}

func missing(key string) error {
	return fmt.Errorf("%w: %s. Please add it to your .env.local file or the deployment environment", ErrMissingEnv, key)
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
