package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

const (
	ServiceName = "obesho"
	// Version is reported by GET / and GET /version/.
	Version = "0.1.0"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

type Config struct {
	Env string

	HTTPAddr string
	GRPCAddr string

	DBDriver   string
	MySQLDSN   string
	SQLitePath string
	GormLog    string

	RedisAddr      string
	RedisPass      string
	IdempotencyTTL time.Duration

	LogLevel  string
	LogFormat string

	ConflictRetries int
	ShutdownTimeout time.Duration

	OtelEndpoint string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// a missing .env is fine, variables can come from the environment
	_ = godotenv.Load()

	cfg := &Config{
		Env:        getenv("APP_ENV", "development"),
		HTTPAddr:   getenv("HTTP_ADDR", ":17489"),
		GRPCAddr:   getenv("GRPC_ADDR", ":50051"),
		DBDriver:   strings.ToLower(getenv("DB_DRIVER", DriverSQLite)),
		SQLitePath: getenv("SQLITE_PATH", "obesho.sqlite"),
		GormLog:    getenv("GORM_LOG", "warn"),
		RedisAddr:  os.Getenv("REDIS_ADDR"),
		RedisPass:  os.Getenv("REDIS_PASS"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogFormat:  getenv("LOG_FORMAT", ""),

		OtelEndpoint: os.Getenv("OTEL_ENDPOINT"),
	}

	var err error
	if cfg.ConflictRetries, err = getInt("CONFLICT_RETRIES", 2); err != nil {
		return nil, err
	}
	if cfg.IdempotencyTTL, err = getDuration("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	if cfg.DBDriver == DriverMySQL {
		cfg.MySQLDSN = mysqlDSN()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.DBDriver {
	case DriverMySQL:
		if c.MySQLDSN == "" {
			errs = append(errs, errors.New("MYSQL_DSN or MYSQL_HOST is required for DB_DRIVER=mysql"))
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("SQLITE_PATH must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverMySQL, DriverSQLite, c.DBDriver))
	}
	if c.ConflictRetries < 0 {
		errs = append(errs, errors.New("CONFLICT_RETRIES must not be negative"))
	}
	if c.IdempotencyTTL <= 0 {
		errs = append(errs, errors.New("IDEMPOTENCY_TTL must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DSN is the connection string for the configured driver.
func (c *Config) DSN() string {
	if c.DBDriver == DriverMySQL {
		return c.MySQLDSN
	}
	return c.SQLitePath
}

func mysqlDSN() string {
	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		return dsn
	}
	host := os.Getenv("MYSQL_HOST")
	if host == "" {
		return ""
	}

	dc := mysqldrv.NewConfig()
	dc.User = os.Getenv("MYSQL_USER")
	dc.Passwd = os.Getenv("MYSQL_PASS")
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(host, getenv("MYSQL_PORT", "3306"))
	dc.DBName = os.Getenv("MYSQL_DB")
	dc.ParseTime = true
	dc.Loc = time.UTC
	dc.Params = map[string]string{"charset": "utf8mb4"}
	return dc.FormatDSN()
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
