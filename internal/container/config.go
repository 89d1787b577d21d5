// Package container provides dependency injection and lifecycle management
// for the marketplace workflow service following Clean Architecture principles.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/marketplace-workflow/internal/application/service"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Server configuration
	Server ServerConfig

	// Auth configuration
	Auth AuthConfig

	// Workflow policy
	Policy PolicyConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long a writer waits for the database lock
	BusyTimeout time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// Mode is the gin mode (debug, release, test)
	Mode string

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration

	// AllowedOrigins enables CORS for these browser origins
	AllowedOrigins []string

	// RateLimit is requests per second per actor, with RateBurst headroom
	RateLimit float64
	RateBurst int
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	// JWTSecret is the HS256 key shared with the auth collaborator
	JWTSecret string

	// Issuer is the expected iss claim
	Issuer string
}

// PolicyConfig holds workflow constants.
type PolicyConfig struct {
	// MinProducts gates seller activation
	MinProducts int

	// MaxRetries bounds load-decide-save attempts on version conflicts
	MaxRetries int

	// SLA windows per outstanding order status
	SLA service.SLAPolicy

	// SLAScanInterval drives the overdue order monitor; zero disables it
	SLAScanInterval time.Duration
}

// WorkflowPolicy returns the guard constants for the state machines.
func (p PolicyConfig) WorkflowPolicy() workflow.Policy {
	return workflow.Policy{MinProducts: p.MinProducts}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         "data/workflow.db",
			MaxOpenConns: 1,
			MaxIdleConns: 1,
			BusyTimeout:  5 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Mode:            "release",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       20,
			RateBurst:       40,
		},
		Auth: AuthConfig{
			Issuer: "marketplace-auth",
		},
		Policy: PolicyConfig{
			MinProducts: workflow.DefaultMinProducts,
			MaxRetries:  3,
			SLA:         service.DefaultSLAPolicy(),
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	// Validate auth configuration
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	// Validate policy
	if c.Policy.MaxRetries < 1 {
		return fmt.Errorf("policy.max_retries must be at least 1")
	}
	if c.Policy.MinProducts < 0 {
		return fmt.Errorf("policy.min_products must not be negative")
	}
	if c.Policy.SLAScanInterval < 0 {
		return fmt.Errorf("policy.sla_scan_interval must not be negative")
	}

	return nil
}
