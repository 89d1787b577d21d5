// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/garyjia/marketplace-workflow/internal/application/port"
	"github.com/garyjia/marketplace-workflow/internal/application/service"
	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	Mode            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// MaxRetries bounds load-decide-save attempts on version conflicts
	MaxRetries int

	// AllowedOrigins lists the browser origins allowed by CORS; empty disables CORS
	AllowedOrigins []string

	// RateLimit is requests per second per actor; zero disables limiting
	RateLimit float64
	RateBurst int
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		Mode:            gin.ReleaseMode,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxRetries:      3,
		RateLimit:       20,
		RateBurst:       40,
	}
}

// HealthFunc reports whether the service's dependencies are usable
type HealthFunc func() (healthy bool, details interface{})

// Dependencies are the application components the handlers call
type Dependencies struct {
	Orders        service.OrderService
	Sellers       service.SellerService
	Categories    service.CategoryService
	Notifications service.NotificationService
	Catalog       port.CategoryCatalog
	ProductCounts port.ProductCounts
	Registry      *workflow.Registry
	Health        HealthFunc
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	verifier   *TokenVerifier
	limiter    *RateLimiter
	deps       Dependencies
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, verifier *TokenVerifier, deps Dependencies, logger Logger) *Server {
	mode := config.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	server := &Server{
		config:   config,
		router:   gin.New(),
		verifier: verifier,
		limiter:  NewRateLimiter(config.RateLimit, config.RateBurst),
		deps:     deps,
		logger:   logger,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup routes
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.router.Use(gin.Recovery())

	// Logging middleware
	s.router.Use(s.loggingMiddleware())
}

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		// Process request
		c.Next()

		// Log request details
		latency := time.Since(start)
		status := c.Writer.Status()

		fields := []interface{}{
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"client_ip", c.ClientIP(),
		}
		if actor, ok := actorFrom(c); ok {
			fields = append(fields, "actor_id", actor.ID, "actor_role", string(actor.Role))
		}
		s.logger.Info("HTTP request", fields...)
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	handlers := NewHandlers(s.deps, s.config.MaxRetries, s.logger)

	// Health check
	s.router.GET("/health", handlers.HealthCheck)

	// API routes
	api := s.router.Group("/api/v1")
	api.Use(authMiddleware(s.verifier), rateLimitMiddleware(s.limiter))
	{
		// Orders
		api.POST("/orders", handlers.CreateOrder)
		api.GET("/orders/:id", handlers.GetOrder)
		api.PUT("/orders/:id/status", handlers.UpdateOrderStatus)
		api.PUT("/orders/:id/tracking", handlers.AttachTracking)
		api.GET("/orders/:id/invoice-eligibility", handlers.InvoiceEligibility)

		// Sellers
		api.POST("/sellers", handlers.RegisterSeller)
		api.GET("/sellers/:id", handlers.GetSeller)
		api.POST("/sellers/:id/approve", handlers.ApproveSeller)
		api.POST("/sellers/:id/activate", handlers.ActivateSeller)
		api.POST("/sellers/:id/reject", handlers.RejectSeller)
		api.POST("/sellers/:id/suspend", handlers.SuspendSeller)
		api.POST("/sellers/:id/cultural-approval", handlers.SubmitCulturalApproval)
		api.GET("/sellers/:id/orders", handlers.ListSellerOrders)
		api.GET("/sellers/:id/notifications", handlers.SellerNotifications)

		// Categories
		api.GET("/categories", handlers.ListCategories)
		api.POST("/categories/requests", handlers.SubmitCategoryRequest)
		api.GET("/categories/requests/:id", handlers.GetCategoryRequest)
		api.POST("/categories/requests/:id/approve", handlers.ApproveCategoryRequest)
		api.POST("/categories/requests/:id/reject", handlers.RejectCategoryRequest)
		api.POST("/categories/create-direct", handlers.CreateCategoriesDirect)

		// Workflow graphs
		api.GET("/workflows/:kind/transitions", handlers.Transitions)

		// Product catalog collaborator
		catalog := api.Group("/catalog", requireRole(workflow.RoleAdmin))
		catalog.PUT("/sellers/:id/product-count", handlers.SetSellerProductCount)
		catalog.PUT("/categories/:name/product-count", handlers.SetCategoryProductCount)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Handler returns the router wrapped in CORS handling when origins are configured
func (s *Server) Handler() http.Handler {
	if len(s.config.AllowedOrigins) == 0 {
		return s.router
	}
	return cors.New(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         600,
	}).Handler(s.router)
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
