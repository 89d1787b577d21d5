package container

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/garyjia/marketplace-workflow/internal/application/dispatcher"
	"github.com/garyjia/marketplace-workflow/internal/application/port"
	"github.com/garyjia/marketplace-workflow/internal/application/service"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
	"github.com/garyjia/marketplace-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/marketplace-workflow/internal/infrastructure/worker"
	"github.com/garyjia/marketplace-workflow/pkg/database"
)

// Container owns the process-wide components and their startup order.
type Container struct {
	config *Config
	logger *zap.Logger

	// Infrastructure - Data
	conn         *database.DB
	db           *sqlite.DB
	repositories *RepositoryBundle

	// Application
	registry   *workflow.Registry
	dispatcher dispatcher.Dispatcher
	services   *ServiceBundle

	// Background
	workers *worker.Manager

	// Lifecycle
	mu     sync.RWMutex
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Entities      port.EntityStore
	Catalog       port.CategoryCatalog
	ProductCounts port.ProductCounts
}

// ServiceBundle groups all application services.
type ServiceBundle struct {
	Orders        service.OrderService
	Sellers       service.SellerService
	Categories    service.CategoryService
	Notifications service.NotificationService
}

// HealthStatus represents the health of all components.
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

// ComponentHealth represents health of a single component.
type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer validates the configuration. Nothing is opened until Start.
func NewContainer(cfg *Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Container{
		config: cfg,
		logger: logger,
	}, nil
}

// Start initializes all components.
// Components are initialized in dependency order:
// 1. Database and repositories
// 2. Workflow registry and event dispatcher
// 3. Application services
// 4. Background workers
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}

	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.logger.Info("Starting container initialization")

	// Step 1: Initialize database and repositories
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	c.logger.Info("Database initialized")

	// Step 2: Initialize registry and dispatcher
	if err := c.initWorkflow(); err != nil {
		return fmt.Errorf("failed to initialize workflow: %w", err)
	}
	c.logger.Info("Workflow registry and dispatcher initialized")

	// Step 3: Initialize application services
	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Application services initialized")

	// Step 4: Start background workers
	c.workers = ProvideWorkers(c.config.Policy, c.services, c.logger)
	if err := c.workers.StartAll(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}

	c.ready.Store(true)
	c.logger.Info("Container started successfully")

	return nil
}

// Close stops workers, then the dispatcher, then the database.
// Every step runs even if an earlier one fails.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}
	c.logger.Info("Closing container")

	steps := []struct {
		name string
		stop func() error
	}{
		{"workers", func() error {
			if c.workers == nil {
				return nil
			}
			return c.workers.StopAll()
		}},
		{"dispatcher", func() error {
			if c.dispatcher == nil {
				return nil
			}
			return c.dispatcher.Close()
		}},
		{"database", func() error {
			if c.conn == nil {
				return nil
			}
			return c.conn.Close()
		}},
	}

	failed := 0
	for _, step := range steps {
		if err := step.stop(); err != nil {
			c.logger.Error("Shutdown step failed", zap.String("component", step.name), zap.Error(err))
			failed++
		}
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if failed > 0 {
		return fmt.Errorf("container closed with %d errors", failed)
	}
	c.logger.Info("Container closed")
	return nil
}

// Ready returns true when all components are initialized.
func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health reports each component; Overall is false if any is unhealthy.
func (c *Container) Health() *HealthStatus {
	status := &HealthStatus{
		Overall:    true,
		Components: map[string]ComponentHealth{},
	}
	record := func(name string, h ComponentHealth) {
		status.Components[name] = h
		if !h.Healthy {
			status.Overall = false
		}
	}

	record("database", c.databaseHealth())
	record("dispatcher", initialized(c.dispatcher != nil))
	record("services", initialized(c.services != nil))
	if c.workers != nil && c.workers.Count() > 0 {
		record("workers", ComponentHealth{Healthy: c.workers.IsRunning()})
	}
	return status
}

func (c *Container) databaseHealth() ComponentHealth {
	if c.conn == nil {
		return initialized(false)
	}
	if err := c.conn.Ping(); err != nil {
		return ComponentHealth{Message: fmt.Sprintf("ping failed: %v", err)}
	}
	return ComponentHealth{Healthy: true}
}

func initialized(ok bool) ComponentHealth {
	if !ok {
		return ComponentHealth{Message: "not initialized"}
	}
	return ComponentHealth{Healthy: true}
}

// initDatabase initializes the database and all repositories using providers.
func (c *Container) initDatabase() error {
	dbBundle, err := ProvideDatabase(&c.config.Database, c.logger)
	if err != nil {
		return err
	}

	c.conn = dbBundle.Conn
	c.db = dbBundle.TransactionMgr

	repos, err := ProvideRepositories(c.db, c.logger)
	if err != nil {
		c.conn.Close()
		return err
	}

	c.repositories = repos
	return nil
}

// initWorkflow builds the state machines and the event dispatcher.
func (c *Container) initWorkflow() error {
	c.registry = workflow.DefaultRegistry(c.config.Policy.WorkflowPolicy())

	disp, err := ProvideDispatcher(c.logger)
	if err != nil {
		return err
	}
	c.dispatcher = disp

	return nil
}

// initServices initializes all application services using providers.
func (c *Container) initServices() error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:      c.repositories,
		TxManager:  c.db,
		Registry:   c.registry,
		Dispatcher: c.dispatcher,
		SLA:        c.config.Policy.SLA,
		Logger:     c.logger,
	})
	if err != nil {
		return err
	}

	c.services = services
	return nil
}

// Getters for accessing container components

// DB returns the transaction manager.
func (c *Container) DB() port.TransactionManager {
	return c.db
}

// Repositories returns all repositories.
func (c *Container) Repositories() *RepositoryBundle {
	return c.repositories
}

// Registry returns the workflow state machines.
func (c *Container) Registry() *workflow.Registry {
	return c.registry
}

// Dispatcher returns the event dispatcher.
func (c *Container) Dispatcher() dispatcher.Dispatcher {
	return c.dispatcher
}

// Services returns all application services.
func (c *Container) Services() *ServiceBundle {
	return c.services
}

// Workers returns the background worker manager.
func (c *Container) Workers() *worker.Manager {
	return c.workers
}

// Logger returns the container's logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// ServiceLogger returns the key-value logger handed to services and adapters.
func (c *Container) ServiceLogger() service.Logger {
	return &zapLoggerAdapter{logger: c.logger}
}

// Config returns the container's configuration.
func (c *Container) Config() *Config {
	return c.config
}

// zapLoggerAdapter adapts zap.Logger to the service.Logger interface.
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *zapLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// dispatcherLoggerAdapter adapts zap.Logger to the dispatcher.Logger interface.
type dispatcherLoggerAdapter struct {
	logger *zap.Logger
}

func (a *dispatcherLoggerAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Info(msg, convertToZapFields(keysAndValues...)...)
}

func (a *dispatcherLoggerAdapter) Error(msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, convertToZapFields(keysAndValues...)...)
}

// convertToZapFields converts key-value pairs to zap fields.
func convertToZapFields(keysAndValues ...interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, ok := keysAndValues[i+1].(error); ok {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
