package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	ServerConfig       ServerConfig       `json:"server"`
	AuthConfig         AuthConfig         `json:"auth"`
	DatabaseConfig     DatabaseConfig     `json:"database"`
	RedisConfig        RedisConfig        `json:"redis"`
	VaultConfig        VaultConfig        `json:"vault"`
	FeedConfig         FeedConfig         `json:"feed"`
	IntegrityConfig    IntegrityConfig    `json:"integrity"`
	SubscriptionConfig SubscriptionConfig `json:"subscription"`
	InferenceConfig    InferenceConfig    `json:"inference"`
	LoggingConfig      LoggingConfig      `json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int    `json:"port"`
	Host            string `json:"host"`
	AllowedOrigins  string `json:"allowed_origins"` // CORS allowed origins
	ProductionMode  bool   `json:"production_mode"`
	ReadTimeout     int    `json:"read_timeout"`     // Seconds
	WriteTimeout    int    `json:"write_timeout"`    // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout"` // Seconds
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret           string        `json:"jwt_secret"`
	AccessTokenDuration time.Duration `json:"access_token_duration"`
	MinPasswordLength   int           `json:"min_password_length"`
	BcryptCost          int           `json:"bcrypt_cost"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
	SSLMode  string `json:"ssl_mode"`
}

// RedisConfig holds Redis configuration for the watermark/tamper store
type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// VaultConfig holds HashiCorp Vault configuration
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`  // KV secrets engine mount path
	SecretPath string `json:"secret_path"` // Path prefix for service secrets
}

// FeedConfig holds the simulated market feed configuration
type FeedConfig struct {
	TickInterval time.Duration `json:"tick_interval"` // Interval between feed ticks
	WindowSize   int           `json:"window_size"`   // Samples kept per asset
	FreeAsset    string        `json:"free_asset"`    // Asset available on the free tier
	DefaultAsset string        `json:"default_asset"` // Selection fallback
}

// IntegrityConfig holds clock-tamper detection configuration
type IntegrityConfig struct {
	Tolerance     time.Duration `json:"tolerance"`      // Allowed device/server drift
	CheckInterval time.Duration `json:"check_interval"` // Expected client re-check cadence
	ProbeURL      string        `json:"probe_url"`      // Trusted endpoint for the Date header
	ProbeTimeout  time.Duration `json:"probe_timeout"`
}

// SubscriptionConfig holds credit and premium lifecycle configuration
type SubscriptionConfig struct {
	FreeCredits        int           `json:"free_credits"`         // Quota granted per reset
	CreditResetEvery   time.Duration `json:"credit_reset_every"`   // Reset window
	CreditPollInterval time.Duration `json:"credit_poll_interval"` // Reset poll cadence
	ExpiryPollInterval time.Duration `json:"expiry_poll_interval"` // Downgrade poll cadence
	PremiumGrantDays   int           `json:"premium_grant_days"`   // Days added per code
}

// InferenceConfig holds the external analysis endpoint configuration
type InferenceConfig struct {
	Enabled bool          `json:"enabled"`
	URL     string        `json:"url"`
	APIKey  string        `json:"api_key"`
	Model   string        `json:"model"`
	Timeout time.Duration `json:"timeout"`
}

type LoggingConfig struct {
	Level       string `json:"level"`        // DEBUG, INFO, WARN, ERROR
	Output      string `json:"output"`       // stdout, stderr, or file path
	JSONFormat  bool   `json:"json_format"`  // Output as JSON
	IncludeFile bool   `json:"include_file"` // Include file and line number
}

func Load() (*Config, error) {
	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	// Server config
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", 8080)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", "0.0.0.0")
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", "*")
	cfg.ServerConfig.ProductionMode = getEnvOrDefault("SERVER_PRODUCTION", "false") == "true"
	cfg.ServerConfig.ReadTimeout = getEnvIntOrDefault("SERVER_READ_TIMEOUT", 30)
	cfg.ServerConfig.WriteTimeout = getEnvIntOrDefault("SERVER_WRITE_TIMEOUT", 30)
	cfg.ServerConfig.ShutdownTimeout = getEnvIntOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10)

	// Auth config
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.AccessTokenDuration = getEnvDurationOrDefault("AUTH_ACCESS_TOKEN_DURATION", 24*time.Hour)
	cfg.AuthConfig.MinPasswordLength = getEnvIntOrDefault("AUTH_MIN_PASSWORD_LENGTH", 8)
	cfg.AuthConfig.BcryptCost = getEnvIntOrDefault("AUTH_BCRYPT_COST", 12)

	// Database config
	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", "localhost")
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", 5432)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", "vertx")
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", "vertx_password")
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", "vertx_trading")
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

	// Redis config
	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", "true") == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", "localhost:6379")
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", 0)
	cfg.RedisConfig.PoolSize = getEnvIntOrDefault("REDIS_POOL_SIZE", 10)

	// Vault config
	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", "false") == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", "http://localhost:8200")
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", "secret")
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", "vertx-trading/service")

	// Feed config
	cfg.FeedConfig.TickInterval = getEnvDurationOrDefault("FEED_TICK_INTERVAL", time.Second)
	cfg.FeedConfig.WindowSize = getEnvIntOrDefault("FEED_WINDOW_SIZE", 60)
	cfg.FeedConfig.FreeAsset = getEnvOrDefault("FEED_FREE_ASSET", "BTC/USD")
	cfg.FeedConfig.DefaultAsset = getEnvOrDefault("FEED_DEFAULT_ASSET", "BTC/USD")

	// Integrity config
	cfg.IntegrityConfig.Tolerance = getEnvDurationOrDefault("INTEGRITY_TOLERANCE", 5*time.Minute)
	cfg.IntegrityConfig.CheckInterval = getEnvDurationOrDefault("INTEGRITY_CHECK_INTERVAL", 30*time.Second)
	cfg.IntegrityConfig.ProbeURL = getEnvOrDefault("INTEGRITY_PROBE_URL", cfg.IntegrityConfig.ProbeURL)
	cfg.IntegrityConfig.ProbeTimeout = getEnvDurationOrDefault("INTEGRITY_PROBE_TIMEOUT", 5*time.Second)

	// Subscription config
	cfg.SubscriptionConfig.FreeCredits = getEnvIntOrDefault("SUB_FREE_CREDITS", 15)
	cfg.SubscriptionConfig.CreditResetEvery = getEnvDurationOrDefault("SUB_CREDIT_RESET_EVERY", 4*time.Hour)
	cfg.SubscriptionConfig.CreditPollInterval = getEnvDurationOrDefault("SUB_CREDIT_POLL_INTERVAL", time.Minute)
	cfg.SubscriptionConfig.ExpiryPollInterval = getEnvDurationOrDefault("SUB_EXPIRY_POLL_INTERVAL", time.Second)
	cfg.SubscriptionConfig.PremiumGrantDays = getEnvIntOrDefault("SUB_PREMIUM_GRANT_DAYS", 30)

	// Inference config
	cfg.InferenceConfig.Enabled = getEnvOrDefault("INFERENCE_ENABLED", "false") == "true"
	cfg.InferenceConfig.URL = getEnvOrDefault("INFERENCE_URL", cfg.InferenceConfig.URL)
	cfg.InferenceConfig.APIKey = getEnvOrDefault("INFERENCE_API_KEY", cfg.InferenceConfig.APIKey)
	cfg.InferenceConfig.Model = getEnvOrDefault("INFERENCE_MODEL", "vertx-neural-1")
	cfg.InferenceConfig.Timeout = getEnvDurationOrDefault("INFERENCE_TIMEOUT", 15*time.Second)

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", "INFO")
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", "stdout")
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", "true") == "true"
	cfg.LoggingConfig.IncludeFile = getEnvOrDefault("LOG_INCLUDE_FILE", "false") == "true"
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GenerateSampleConfig creates a sample configuration file
func GenerateSampleConfig(filename string) error {
	config := Config{
		ServerConfig: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			AllowedOrigins:  "*",
			ReadTimeout:     30,
			WriteTimeout:    30,
			ShutdownTimeout: 10,
		},
		DatabaseConfig: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "vertx",
			Database: "vertx_trading",
			SSLMode:  "disable",
		},
		RedisConfig: RedisConfig{
			Enabled:  true,
			Address:  "localhost:6379",
			PoolSize: 10,
		},
		FeedConfig: FeedConfig{
			TickInterval: time.Second,
			WindowSize:   60,
			FreeAsset:    "BTC/USD",
			DefaultAsset: "BTC/USD",
		},
		IntegrityConfig: IntegrityConfig{
			Tolerance:     5 * time.Minute,
			CheckInterval: 30 * time.Second,
			ProbeTimeout:  5 * time.Second,
		},
		SubscriptionConfig: SubscriptionConfig{
			FreeCredits:        15,
			CreditResetEvery:   4 * time.Hour,
			CreditPollInterval: time.Minute,
			ExpiryPollInterval: time.Second,
			PremiumGrantDays:   30,
		},
		LoggingConfig: LoggingConfig{
			Level:      "INFO",
			Output:     "stdout",
			JSONFormat: true,
		},
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
