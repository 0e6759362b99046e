package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Storage       StorageConfig       `yaml:"storage"`
	JWT           JWTConfig           `yaml:"jwt"`
	Log           LogConfig           `yaml:"log"`
	Cache         CacheConfig         `yaml:"cache"`
	Redis         RedisConfig         `yaml:"redis"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Scheduler     SchedulerConfig     `yaml:"scheduler"`
	Wallet        WalletConfig        `yaml:"wallet"`
	CORS          CORSConfig          `yaml:"cors"`
}

// ServerConfig contains HTTP and health-check listener settings
type ServerConfig struct {
	Host            string `yaml:"host"`
	Port            int    `yaml:"port"`
	HealthPort      int    `yaml:"health_port"` // gRPC health service; 0 disables it
	ShutdownTimeout int    `yaml:"shutdown_timeout_seconds"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// StorageConfig selects the repository backend
type StorageConfig struct {
	Type        string `yaml:"type"` // "postgres" or "memory"
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
	Issuer            string `yaml:"issuer"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json", "text" or "tint"
}

// CacheConfig controls the item terms cache
type CacheConfig struct {
	Type       string `yaml:"type"` // "memory" or "redis"
	TTLSeconds int    `yaml:"ttl_seconds"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// NotificationsConfig controls the asynchronous notification dispatcher
type NotificationsConfig struct {
	Workers   int         `yaml:"workers"`
	QueueSize int         `yaml:"queue_size"`
	Email     EmailConfig `yaml:"email"`
	Push      PushConfig  `yaml:"push"`
}

type EmailConfig struct {
	Provider string `yaml:"provider"` // "sendgrid" or empty to disable
	APIKey   string `yaml:"api_key"`
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
}

type PushConfig struct {
	Provider        string `yaml:"provider"` // "fcm" or empty to disable
	CredentialsFile string `yaml:"credentials_file"`
	ProjectID       string `yaml:"project_id"`
}

// SchedulerConfig contains cron schedule settings (seconds precision, UTC)
type SchedulerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	ReconcileLedger  string `yaml:"reconcile_ledger"`
	ReportEscrow     string `yaml:"report_escrow"`
	OverdueReminders string `yaml:"overdue_reminders"`
}

// WalletConfig holds the fixed amounts of the internal wallet, in minor units
type WalletConfig struct {
	WelcomeBonus int64 `yaml:"welcome_bonus"`
	DeliveryFee  int64 `yaml:"delivery_fee"`
	DefaultTopUp int64 `yaml:"default_top_up"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Load reads configuration from a YAML file. A .env file in the working
// directory, when present, is loaded into the environment first.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies environment overrides and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	setString(&c.Server.Host, "SERVER_HOST")
	setInt(&c.Server.Port, "SERVER_PORT")
	setInt(&c.Server.HealthPort, "HEALTH_PORT")

	setString(&c.Database.Host, "DB_HOST")
	setInt(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Database, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSL_MODE")

	setString(&c.Storage.Type, "STORAGE_TYPE")
	setString(&c.JWT.Secret, "JWT_SECRET")

	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")

	setString(&c.Cache.Type, "CACHE_TYPE")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")

	setString(&c.Notifications.Email.APIKey, "SENDGRID_API_KEY")
	setString(&c.Notifications.Push.CredentialsFile, "FCM_CREDENTIALS_FILE")

	if val := os.Getenv("CORS_ALLOWED_ORIGINS"); val != "" {
		c.CORS.AllowedOrigins = strings.Split(val, ",")
	}
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(dst *int, key string) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

// Validate checks if the configuration is valid and fills in defaults
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.HealthPort < 0 || c.Server.HealthPort > 65535 {
		return fmt.Errorf("invalid health port: %d", c.Server.HealthPort)
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15
	}

	if c.Storage.Type == "" {
		c.Storage.Type = "postgres"
	}
	switch c.Storage.Type {
	case "postgres":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if c.Database.Port == 0 {
			c.Database.Port = 5432
		}
		if c.Database.SSLMode == "" {
			c.Database.SSLMode = "disable"
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "neighbor-storage"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}

	if c.Cache.Type == "" {
		c.Cache.Type = "memory"
	}
	switch c.Cache.Type {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required for redis cache")
		}
	default:
		return fmt.Errorf("unsupported cache type: %s", c.Cache.Type)
	}
	if c.Cache.TTLSeconds == 0 {
		c.Cache.TTLSeconds = 300
	}

	if c.Notifications.Workers == 0 {
		c.Notifications.Workers = 2
	}
	if c.Notifications.QueueSize == 0 {
		c.Notifications.QueueSize = 256
	}
	switch c.Notifications.Email.Provider {
	case "":
	case "sendgrid":
		if c.Notifications.Email.APIKey == "" {
			return fmt.Errorf("sendgrid api key is required")
		}
		if c.Notifications.Email.From == "" {
			return fmt.Errorf("email sender address is required")
		}
	default:
		return fmt.Errorf("unsupported email provider: %s", c.Notifications.Email.Provider)
	}
	switch c.Notifications.Push.Provider {
	case "":
	case "fcm":
		if c.Notifications.Push.CredentialsFile == "" {
			return fmt.Errorf("fcm credentials file is required")
		}
	default:
		return fmt.Errorf("unsupported push provider: %s", c.Notifications.Push.Provider)
	}

	if c.Scheduler.ReconcileLedger == "" {
		c.Scheduler.ReconcileLedger = "0 0 3 * * *" // 3 AM UTC
	}
	if c.Scheduler.ReportEscrow == "" {
		c.Scheduler.ReportEscrow = "0 */15 * * * *" // every 15 minutes
	}
	if c.Scheduler.OverdueReminders == "" {
		c.Scheduler.OverdueReminders = "0 0 9 * * *" // 9 AM UTC
	}

	if c.Wallet.WelcomeBonus == 0 {
		c.Wallet.WelcomeBonus = 100000
	}
	if c.Wallet.DeliveryFee == 0 {
		c.Wallet.DeliveryFee = 3000
	}
	if c.Wallet.DefaultTopUp == 0 {
		c.Wallet.DefaultTopUp = 50000
	}
	if c.Wallet.WelcomeBonus < 0 || c.Wallet.DeliveryFee < 0 || c.Wallet.DefaultTopUp < 0 {
		return fmt.Errorf("wallet amounts must not be negative")
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetHealthAddress returns the gRPC health server address
func (c *Config) GetHealthAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.HealthPort)
}
