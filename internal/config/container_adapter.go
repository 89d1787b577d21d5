package config

import (
	"github.com/garyjia/marketplace-workflow/internal/application/service"
	"github.com/garyjia/marketplace-workflow/internal/container"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	sla := make(service.SLAPolicy, len(c.Policy.SLA))
	for status, w := range c.Policy.SLA {
		sla[workflow.Status(status)] = service.SLAWindow{Window: w.Window, Critical: w.Critical}
	}

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Server: container.ServerConfig{
			Host:            c.Server.Host,
			Port:            c.Server.Port,
			Mode:            c.Server.Mode,
			ReadTimeout:     c.Server.ReadTimeout,
			WriteTimeout:    c.Server.WriteTimeout,
			ShutdownTimeout: c.Server.ShutdownTimeout,
			AllowedOrigins:  c.Server.AllowedOrigins,
			RateLimit:       c.Server.RateLimit,
			RateBurst:       c.Server.RateBurst,
		},
		Auth: container.AuthConfig{
			JWTSecret: c.Auth.JWTSecret,
			Issuer:    c.Auth.Issuer,
		},
		Policy: container.PolicyConfig{
			MinProducts: c.Policy.MinProducts,
			MaxRetries:  c.Policy.MaxRetries,
			SLA:         sla,

			SLAScanInterval: c.Policy.SLAScanInterval,
		},
	}
}
