package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vizlet/vizlet/internal/api/middleware"
	"github.com/vizlet/vizlet/internal/config"
	"github.com/vizlet/vizlet/internal/controller"
	"github.com/vizlet/vizlet/internal/document"
	"github.com/vizlet/vizlet/internal/fetch"
	"github.com/vizlet/vizlet/internal/http"
	"github.com/vizlet/vizlet/internal/logging"
	"github.com/vizlet/vizlet/internal/monitoring"
	"github.com/vizlet/vizlet/internal/sandbox"
	"github.com/vizlet/vizlet/internal/store"
	"github.com/vizlet/vizlet/internal/ws"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router     *gin.Engine
	store      *store.Store
	host       *sandbox.Host
	controller *controller.Controller
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize logger
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing Vizlet Server",
		zap.String("port", cfg.Server.Port),
		zap.String("fetch_base_url", cfg.Fetch.BaseURL),
		zap.Int("sandbox_pool", cfg.Sandbox.PoolSize),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	// Open persistence
	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	logger.Info("Store opened", zap.String("path", cfg.Store.Path))

	// Initialize sandbox host with its message dispatcher
	sandboxCfg := sandbox.DefaultConfig()
	sandboxCfg.Timeout = cfg.Sandbox.Timeout
	dispatcher := sandbox.NewDispatcher()
	host, err := sandbox.NewHost(sandboxCfg, cfg.Sandbox.PoolSize, dispatcher, logger)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create sandbox host: %w", err)
	}
	logger.Info("Sandbox host initialized", zap.Int("pool_size", cfg.Sandbox.PoolSize))

	// Initialize fetch client and controller
	fetchCfg := fetch.DefaultConfig(cfg.Fetch.BaseURL)
	fetchCfg.Timeout = cfg.Fetch.Timeout
	fetchCfg.MaxRetries = cfg.Fetch.MaxRetries
	fetcher := fetch.New(fetchCfg)

	builder, err := document.NewBuilder(cfg.Render.DocumentCache)
	if err != nil {
		host.Close()
		st.Close()
		return nil, fmt.Errorf("failed to create document builder: %w", err)
	}
	ctrl := controller.New(fetcher, builder, host, controller.Config{
		ReadyTimeout: cfg.Render.ReadyTimeout,
		Grace:        cfg.Render.Grace,
	}, logger)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	// Create handlers
	handlers := http.NewHandlers(st, ctrl, fetcher, host, metrics, logger)
	wsHandler := ws.NewHandler(dispatcher, ctrl, metrics, logger)

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Rendering
	router.POST("/render", handlers.Render)
	router.POST("/documents", handlers.Document)

	// Dashboards
	router.POST("/dashboards", handlers.CreateDashboard)
	router.GET("/dashboards", handlers.ListDashboards)
	router.GET("/dashboards/:id/widgets", handlers.DashboardWidgets)
	router.POST("/dashboards/:id/refresh", handlers.RefreshDashboard)

	// Widgets
	router.POST("/widgets", handlers.SaveWidget)
	router.GET("/widgets/:id", handlers.GetWidget)
	router.DELETE("/widgets/:id", handlers.DeleteWidget)
	router.POST("/widgets/:id/render", handlers.RenderWidget)
	router.GET("/widgets/:id/document", handlers.WidgetDocument)

	// Data sources
	router.GET("/sources", handlers.ListSources)
	router.POST("/sources", handlers.SaveSource)
	router.GET("/sources/:id", handlers.GetSource)

	// Themes
	router.GET("/themes", handlers.ListThemes)

	// WebSocket
	router.GET("/stream", wsHandler.HandleConnection)

	// Metrics endpoints
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))
	router.GET("/metrics/json", handlers.Stats)

	logger.Info("Server initialized successfully")

	return &Server{
		router:     router,
		store:      st,
		host:       host,
		controller: ctrl,
		logger:     logger,
		config:     cfg,
		metrics:    metrics,
	}, nil
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Router exposes the underlying engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	if err := s.host.Close(); err != nil {
		s.logger.Error("Failed to close sandbox host", zap.Error(err))
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("Failed to close store", zap.Error(err))
		return fmt.Errorf("failed to close store: %w", err)
	}

	s.logger.Info("Server shutdown complete")
	return s.logger.Sync()
}
