package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Supported wallet store drivers
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverRedis    = "redis"
)

// Config holds all configuration for the application
type Config struct {
	// Store selects the document backend
	Store StoreConfig

	// Database configuration
	Database DatabaseConfig

	// MongoDB configuration
	Mongo MongoConfig

	// Redis configuration, used by the redis driver and the read cache
	Redis RedisConfig

	// API server configuration
	API APIConfig

	// CORS configuration
	CORS CORSConfig

	// Wallet behaviour
	Wallet WalletConfig

	// Logging configuration
	Log LogConfig
}

// StoreConfig selects where the wallet document lives
type StoreConfig struct {
	Driver string `envconfig:"STORE_DRIVER" default:"postgres"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL             string        `envconfig:"DATABASE_URL" default:""`
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"wallet"`
	Password        string        `envconfig:"DB_PASSWORD" default:"wallet"`
	Name            string        `envconfig:"DB_NAME" default:"wallet"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"1"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	URI                    string        `envconfig:"MONGODB_URI" default:"mongodb://localhost:27017"`
	Database               string        `envconfig:"MONGODB_DATABASE" default:"wallet"`
	Collection             string        `envconfig:"MONGODB_COLLECTION" default:"wallets"`
	ConnectTimeout         time.Duration `envconfig:"MONGODB_CONNECT_TIMEOUT" default:"10s"`
	SocketTimeout          time.Duration `envconfig:"MONGODB_SOCKET_TIMEOUT" default:"45s"`
	ServerSelectionTimeout time.Duration `envconfig:"MONGODB_SERVER_SELECTION_TIMEOUT" default:"5s"`
	MaxPoolSize            uint64        `envconfig:"MONGODB_MAX_POOL_SIZE" default:"5"`
	MinPoolSize            uint64        `envconfig:"MONGODB_MIN_POOL_SIZE" default:"1"`
	MaxConnecting          uint64        `envconfig:"MONGODB_MAX_CONNECTING" default:"2"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host      string `envconfig:"REDIS_HOST" default:"localhost"`
	Port      int    `envconfig:"REDIS_PORT" default:"6379"`
	Password  string `envconfig:"REDIS_PASSWORD" default:""`
	DB        int    `envconfig:"REDIS_DB" default:"0"`
	WalletKey string `envconfig:"REDIS_WALLET_KEY" default:"wallet:document"`
}

// APIConfig holds API server settings
type APIConfig struct {
	Host            string        `envconfig:"API_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"API_PORT" default:"3000"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    int           `envconfig:"API_RATE_LIMIT_RPS" default:"100"`
	CacheTTL        time.Duration `envconfig:"API_CACHE_TTL" default:"30s"`

	// StrictJSON rejects request bodies carrying unknown fields
	StrictJSON bool `envconfig:"API_STRICT_JSON" default:"false"`
}

// CORSConfig holds cross-origin settings
type CORSConfig struct {
	AllowedOrigins   []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	AllowedMethods   []string `envconfig:"CORS_ALLOWED_METHODS" default:"GET,HEAD,PUT,PATCH,POST,DELETE"`
	AllowCredentials bool     `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
}

// WalletConfig holds wallet store behaviour switches
type WalletConfig struct {
	// MintMissingAssetIDs assigns ids to id-less assets on full wallet replace
	MintMissingAssetIDs bool          `envconfig:"WALLET_MINT_MISSING_ASSET_IDS" default:"false"`
	InitTimeout         time.Duration `envconfig:"WALLET_INIT_TIMEOUT" default:"10s"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot check on its own
func (c *Config) Validate() error {
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case DriverPostgres, DriverMongo, DriverRedis:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("invalid API_PORT %d", c.API.Port)
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Addr returns the Redis address in host:port form
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns the listen address of the API server
func (c *APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
