package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMySQL  = "mysql"
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	LockRedis  = "redis"
	LockMemory = "memory"

	CatalogMySQL = "mysql"
	CatalogHTTP  = "http"
)

// Config represents the full application configuration surface.
type Config struct {
	Server      ServerConfig
	Store       StoreConfig
	MySQL       MySQLConfig
	MongoDB     MongoDBConfig
	Redis       RedisConfig
	Lock        LockConfig
	Catalog     CatalogConfig
	Idempotency IdempotencyConfig
	Digest      DigestConfig
	Log         LogConfig
}

// ServerConfig holds the listening ports of the HTTP and gRPC servers.
type ServerConfig struct {
	HTTPPort string
	GRPCPort string
}

// StoreConfig selects the schedule repository backend.
type StoreConfig struct {
	Driver string
}

type MySQLConfig struct {
	DSN          string
	MaxOpenConns int
}

type MongoDBConfig struct {
	URI    string
	DBName string
}

type RedisConfig struct {
	Addr string
}

// LockConfig controls the per-key lock serializing writers of one schedule.
type LockConfig struct {
	Driver string
	TTL    time.Duration
	Wait   time.Duration
}

// CatalogConfig selects where products and their parts are read from.
type CatalogConfig struct {
	Driver  string
	URL     string
	Timeout time.Duration
}

type IdempotencyConfig struct {
	TTL time.Duration
}

// DigestConfig holds the cron expression of the daily schedule digest.
type DigestConfig struct {
	CronSchedule string
}

type LogConfig struct {
	Level string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// A missing .env is fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	maxOpenConns, err := getenvInt("MYSQL_MAX_OPEN_CONNS", 50)
	if err != nil {
		return nil, err
	}
	lockTTL, err := getenvDuration("LOCK_TTL", 10*time.Second)
	if err != nil {
		return nil, err
	}
	lockWait, err := getenvDuration("LOCK_WAIT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	catalogTimeout, err := getenvDuration("CATALOG_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	idempotencyTTL, err := getenvDuration("IDEMPOTENCY_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	// a single instance without Redis still starts, locking in memory
	defaultLock := LockMemory
	if redisAddr != "" {
		defaultLock = LockRedis
	}

	cfg := &Config{
		Server: ServerConfig{
			HTTPPort: getenvWithDefault("APP_PORT", "8080"),
			GRPCPort: getenvWithDefault("GRPC_PORT", "50051"),
		},
		Store: StoreConfig{
			Driver: getenvWithDefault("STORE_DRIVER", StoreMySQL),
		},
		MySQL: MySQLConfig{
			DSN:          getenvWithDefault("MYSQL_DSN", "root:root@tcp(localhost:3306)/production?parseTime=true"),
			MaxOpenConns: maxOpenConns,
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "production"),
		},
		Redis: RedisConfig{
			Addr: redisAddr,
		},
		Lock: LockConfig{
			Driver: getenvWithDefault("LOCK_DRIVER", defaultLock),
			TTL:    lockTTL,
			Wait:   lockWait,
		},
		Catalog: CatalogConfig{
			Driver:  getenvWithDefault("CATALOG_DRIVER", CatalogMySQL),
			URL:     os.Getenv("CATALOG_URL"),
			Timeout: catalogTimeout,
		},
		Idempotency: IdempotencyConfig{
			TTL: idempotencyTTL,
		},
		Digest: DigestConfig{
			CronSchedule: getenvWithDefault("DIGEST_CRON", "0 6 * * *"),
		},
		Log: LogConfig{
			Level: getenvWithDefault("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated and the
// selected drivers have what they need.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.HTTPPort == "" {
		return errors.New("APP_PORT must be provided")
	}
	if c.Server.GRPCPort == "" {
		return errors.New("GRPC_PORT must be provided")
	}

	switch c.Store.Driver {
	case StoreMySQL:
		if c.MySQL.DSN == "" {
			return errors.New("MYSQL_DSN must be provided")
		}
	case StoreMongo:
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided")
		}
		if c.MongoDB.DBName == "" {
			return errors.New("MONGODB_DB_NAME must be provided")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("STORE_DRIVER %q is not supported", c.Store.Driver)
	}

	switch c.Lock.Driver {
	case LockRedis:
		if c.Redis.Addr == "" {
			return errors.New("REDIS_ADDR must be provided when LOCK_DRIVER is redis")
		}
	case LockMemory:
	default:
		return fmt.Errorf("LOCK_DRIVER %q is not supported", c.Lock.Driver)
	}
	if c.Lock.TTL <= 0 {
		return errors.New("LOCK_TTL must be positive")
	}
	if c.Lock.Wait <= 0 {
		return errors.New("LOCK_WAIT must be positive")
	}

	switch c.Catalog.Driver {
	case CatalogMySQL:
		if c.MySQL.DSN == "" {
			return errors.New("MYSQL_DSN must be provided when CATALOG_DRIVER is mysql")
		}
	case CatalogHTTP:
		if c.Catalog.URL == "" {
			return errors.New("CATALOG_URL must be provided when CATALOG_DRIVER is http")
		}
	default:
		return fmt.Errorf("CATALOG_DRIVER %q is not supported", c.Catalog.Driver)
	}

	if c.Idempotency.TTL <= 0 {
		return errors.New("IDEMPOTENCY_TTL must be positive")
	}

	if c.Digest.CronSchedule == "" {
		return errors.New("DIGEST_CRON must be provided")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return value, nil
}
