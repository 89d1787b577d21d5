package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/garyjia/marketplace-workflow/internal/config"
	"github.com/garyjia/marketplace-workflow/internal/container"
	httpserver "github.com/garyjia/marketplace-workflow/internal/interfaces/http"
	"github.com/garyjia/marketplace-workflow/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "marketplace-workflow",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting marketplace workflow service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	if err := run(cfg, logger); err != nil {
		logger.Error("Service stopped with error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("Server exited successfully")
}

// run wires the container and serves until SIGINT or SIGTERM
func run(cfg *config.Config, logger *zap.Logger) error {
	containerCfg := cfg.ToContainerConfig()

	c, err := container.NewContainer(containerCfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Error("Failed to close container", zap.Error(err))
		}
	}()

	services := c.Services()
	repos := c.Repositories()

	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:            containerCfg.Server.Host,
			Port:            containerCfg.Server.Port,
			Mode:            containerCfg.Server.Mode,
			ReadTimeout:     containerCfg.Server.ReadTimeout,
			WriteTimeout:    containerCfg.Server.WriteTimeout,
			ShutdownTimeout: containerCfg.Server.ShutdownTimeout,
			MaxRetries:      containerCfg.Policy.MaxRetries,
			AllowedOrigins:  containerCfg.Server.AllowedOrigins,
			RateLimit:       containerCfg.Server.RateLimit,
			RateBurst:       containerCfg.Server.RateBurst,
		},
		httpserver.NewTokenVerifier(containerCfg.Auth.JWTSecret, containerCfg.Auth.Issuer),
		httpserver.Dependencies{
			Orders:        services.Orders,
			Sellers:       services.Sellers,
			Categories:    services.Categories,
			Notifications: services.Notifications,
			Catalog:       repos.Catalog,
			ProductCounts: repos.ProductCounts,
			Registry:      c.Registry(),
			Health: func() (bool, interface{}) {
				status := c.Health()
				return status.Overall, status.Components
			},
		},
		c.ServiceLogger(),
	)

	// Blocks until the signal context is cancelled
	return server.Start(ctx)
}
