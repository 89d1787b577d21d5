package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Policy   PolicyConfig   `mapstructure:"policy"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateBurst       int           `mapstructure:"rate_burst"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// AuthConfig holds bearer token verification settings
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// SLAConfig is the overdue window and the extra time until critical for one status
type SLAConfig struct {
	Window   time.Duration `mapstructure:"window"`
	Critical time.Duration `mapstructure:"critical"`
}

// PolicyConfig holds the workflow constants
type PolicyConfig struct {
	MinProducts int                  `mapstructure:"min_products"`
	MaxRetries  int                  `mapstructure:"max_retries"`
	SLA         map[string]SLAConfig `mapstructure:"sla"`

	// SLAScanInterval is how often overdue orders are logged; zero disables the scan
	SLAScanInterval time.Duration `mapstructure:"sla_scan_interval"`
}

// Load loads configuration from an optional .env file, the config file and
// environment variables, in increasing order of precedence
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports the variables of a .env file if one exists.
// Variables already set in the environment win.
func loadDotEnv(path string) error {
	err := gotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.rate_limit", 20)
	v.SetDefault("server.rate_burst", 40)

	// Database defaults
	v.SetDefault("database.path", "data/workflow.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 0)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// Auth defaults
	v.SetDefault("auth.issuer", "marketplace-auth")

	// Policy defaults
	v.SetDefault("policy.min_products", 1)
	v.SetDefault("policy.max_retries", 3)
	v.SetDefault("policy.sla_scan_interval", 0)
	v.SetDefault("policy.sla", map[string]interface{}{
		"pending":    map[string]interface{}{"window": "24h", "critical": "24h"},
		"processing": map[string]interface{}{"window": "48h", "critical": "48h"},
	})
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	// Sensitive credentials from environment
	_ = v.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")
	_ = v.BindEnv("database.path", "DATABASE_PATH")
	_ = v.BindEnv("server.port", "PORT")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// Validate auth
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 bytes")
	}

	// Validate policy
	if c.Policy.MinProducts < 0 {
		return fmt.Errorf("policy.min_products must not be negative")
	}
	if c.Policy.MaxRetries < 1 {
		return fmt.Errorf("policy.max_retries must be at least 1")
	}
	if c.Policy.SLAScanInterval < 0 {
		return fmt.Errorf("policy.sla_scan_interval must not be negative")
	}
	for status, sla := range c.Policy.SLA {
		if sla.Window <= 0 {
			return fmt.Errorf("policy.sla.%s.window must be positive", status)
		}
		if sla.Critical < 0 {
			return fmt.Errorf("policy.sla.%s.critical must not be negative", status)
		}
	}

	return nil
}
