package container

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/marketplace-workflow/internal/application/dispatcher"
	"github.com/garyjia/marketplace-workflow/internal/application/port"
	"github.com/garyjia/marketplace-workflow/internal/application/service"
	"github.com/garyjia/marketplace-workflow/internal/domain/event"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
	"github.com/garyjia/marketplace-workflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/marketplace-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/marketplace-workflow/internal/infrastructure/worker"
	"github.com/garyjia/marketplace-workflow/migrations"
	"github.com/garyjia/marketplace-workflow/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Conn           *database.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the SQLite database, runs the embedded migrations
// and wraps the connection in a transaction manager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	conn, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(conn, logger).RunMigrationsFS(migrations.FS); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Conn:           conn,
		TransactionMgr: sqlite.NewDB(conn.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from the transaction manager.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Entities:      repository.NewEntityRepository(db, logger),
		Catalog:       repository.NewCatalogRepository(db, logger),
		ProductCounts: repository.NewProductCountRepository(db, logger),
	}, nil
}

// ProvideDispatcher creates the event dispatcher and registers the audit log handler.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	disp := dispatcher.NewDispatcher(
		dispatcher.WithLogger(&dispatcherLoggerAdapter{logger: logger}),
	)

	disp.SubscribeAll("audit_log", createAuditLogHandler(logger),
		event.TypeEntityCreated,
		event.TypeStatusChanged,
		event.TypeTrackingAttached,
		event.TypeCulturalReviewed,
		event.TypeCategoryCatalogued,
	)

	return disp, nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Registry   *workflow.Registry
	Dispatcher dispatcher.Publisher
	SLA        service.SLAPolicy
	Logger     *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("workflow registry is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	// Create logger adapter for services
	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}

	return &ServiceBundle{
		Orders: service.NewOrderService(
			deps.Repos.Entities,
			deps.Registry,
			deps.Dispatcher,
			serviceLogger,
		),
		Sellers: service.NewSellerService(
			deps.Repos.Entities,
			deps.Repos.ProductCounts,
			deps.Registry,
			deps.Dispatcher,
			serviceLogger,
		),
		Categories: service.NewCategoryService(
			deps.Repos.Entities,
			deps.Repos.Catalog,
			deps.TxManager,
			deps.Registry,
			deps.Dispatcher,
			serviceLogger,
		),
		Notifications: service.NewNotificationService(
			deps.Repos.Entities,
			deps.SLA,
			serviceLogger,
		),
	}, nil
}

// createAuditLogHandler logs every committed workflow change
func createAuditLogHandler(logger *zap.Logger) dispatcher.Handler {
	return func(ctx context.Context, evt *event.Event) error {
		if evt == nil {
			return fmt.Errorf("event cannot be nil")
		}

		fields := []zap.Field{
			zap.String("event_id", evt.ID),
			zap.String("event_type", evt.Type.String()),
			zap.String("kind", evt.Kind.String()),
			zap.String("entity_id", evt.EntityID),
			zap.Int64("version", evt.Version),
		}
		if from := evt.GetPayloadString("from"); from != "" {
			fields = append(fields,
				zap.String("from", from),
				zap.String("to", evt.GetPayloadString("to")),
				zap.String("actor_id", evt.GetPayloadString("actor_id")),
				zap.String("actor_role", evt.GetPayloadString("actor_role")),
			)
		}
		if feedback := evt.GetPayloadString("feedback"); feedback != "" {
			fields = append(fields, zap.String("feedback", feedback))
		}

		logger.Info("Workflow change committed", fields...)
		return nil
	}
}

// ProvideWorkers registers the background workers enabled by the policy.
func ProvideWorkers(policy PolicyConfig, services *ServiceBundle, logger *zap.Logger) *worker.Manager {
	manager := worker.NewManager(logger)
	if policy.SLAScanInterval > 0 {
		manager.Register(worker.NewSLAMonitor(services.Notifications, policy.SLAScanInterval, logger))
	}
	return manager
}
