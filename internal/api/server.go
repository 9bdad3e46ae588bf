package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"vertx-trading/config"
	"vertx-trading/internal/auth"
	"vertx-trading/internal/database"
	"vertx-trading/internal/events"
	"vertx-trading/internal/history"
	"vertx-trading/internal/integrity"
	"vertx-trading/internal/logging"
	"vertx-trading/internal/market"
	"vertx-trading/internal/redemption"
	"vertx-trading/internal/scheduler"
	"vertx-trading/internal/subscription"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RateLimiter provides simple in-memory rate limiting per endpoint
type RateLimiter struct {
	requests map[string][]time.Time
	mu       sync.Mutex
	limit    int           // max requests
	window   time.Duration // time window
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

// Allow checks if a request is allowed for the given key
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-r.window)

	// Filter out old requests
	var recent []time.Time
	for _, t := range r.requests[key] {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= r.limit {
		r.requests[key] = recent
		return false
	}

	r.requests[key] = append(recent, now)
	return true
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	httpServer  *http.Server
	repo        *database.Repository
	eventBus    *events.EventBus
	config      config.ServerConfig
	authService *auth.Service
	ledger      *subscription.Ledger
	redemption  *redemption.Service
	scheduler   *scheduler.Scheduler
	historySvc  *history.Service
	monitor     *integrity.Monitor
	feed        *market.Feed
	hub         *WSHub
	rateLimiter *RateLimiter
	logger      *logging.Logger
}

// NewServer creates a new API server
func NewServer(
	cfg config.ServerConfig,
	repo *database.Repository,
	eventBus *events.EventBus,
	authService *auth.Service,
	ledger *subscription.Ledger,
	redemptionSvc *redemption.Service,
	sched *scheduler.Scheduler,
	historySvc *history.Service,
	monitor *integrity.Monitor,
	feed *market.Feed,
) *Server {
	// Set Gin mode
	if cfg.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(traceMiddleware())

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = allowedOrigins(cfg.AllowedOrigins)
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Content-Disposition"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	server := &Server{
		router:      router,
		repo:        repo,
		eventBus:    eventBus,
		config:      cfg,
		authService: authService,
		ledger:      ledger,
		redemption:  redemptionSvc,
		scheduler:   sched,
		historySvc:  historySvc,
		monitor:     monitor,
		feed:        feed,
		hub:         NewWSHub(eventBus),
		rateLimiter: NewRateLimiter(240, time.Minute),
		logger:      logging.WithComponent("api"),
	}

	server.setupRoutes()
	go server.hub.Run()

	return server
}

func allowedOrigins(raw string) []string {
	if raw == "" {
		return []string{"http://localhost:5173", "http://localhost:8088"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// traceMiddleware stamps every request with a trace ID so log lines emitted
// across services for the same request can be correlated.
func traceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, _ := logging.WithTraceContext(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Trace-ID", logging.TraceIDFromContext(ctx))
		c.Next()
	}
}

// rateLimitMiddleware rate limits requests by endpoint path
func (s *Server) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		if !s.rateLimiter.Allow(path) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "RATE_LIMITED",
				"message": "Too many requests to this endpoint. Please slow down.",
				"path":    path,
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Health check
	s.router.GET("/health", s.handleHealth)

	// Auth routes (public, no authentication required)
	authHandlers := auth.NewHandlers(s.authService)
	authGroup := s.router.Group("/api/auth")
	authGroup.Use(s.rateLimitMiddleware())
	authHandlers.RegisterRoutes(authGroup)

	// API routes (all protected)
	api := s.router.Group("/api")
	api.Use(s.rateLimitMiddleware())
	api.Use(auth.Middleware(s.authService.JWT()))

	{
		authHandlers.RegisterProtectedRoutes(api.Group("/auth"))

		// Time integrity endpoints
		api.POST("/integrity/check", s.handleIntegrityCheck)
		api.GET("/integrity/status", s.handleIntegrityStatus)

		// Analysis endpoints
		api.POST("/analysis/start", s.handleStartAnalysis)
		api.GET("/analysis/status", s.handleAnalysisStatus)
		api.POST("/analysis/cancel", s.handleCancelAnalysis)

		// Subscription endpoints
		api.GET("/subscription", s.handleGetSubscription)
		api.POST("/subscription/redeem", s.handleRedeemCode)
		api.POST("/subscription/asset", s.handleSelectAsset)

		// Market endpoints
		api.GET("/market/assets", s.handleGetAssets)
		api.GET("/market/:symbol/series", s.handleGetSeries)
		api.GET("/market/:symbol/stats", s.handleGetStats)

		// History endpoints
		api.GET("/history", s.handleListHistory)
		api.GET("/history/stats", s.handleHistoryStats)
		api.GET("/history/export", s.handleExportHistory)
		api.POST("/history/:id/outcome", s.handleRecordOutcome)
		api.DELETE("/history/:id", s.handleDeleteHistoryItem)
		api.DELETE("/history", s.handleClearHistory)

		// WebSocket endpoint for price ticks and user events
		api.GET("/ws", s.handleWebSocket)
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.WithField("addr", addr).Info("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.repo.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "unhealthy",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "healthy",
		"time":     time.Now().Format(time.RFC3339),
	})
}

// getUserIDRequired returns the user ID from the context and sends error if not authenticated
func (s *Server) getUserIDRequired(c *gin.Context) (string, bool) {
	userID := auth.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "UNAUTHORIZED",
			"message": "authentication required",
		})
		return "", false
	}
	return userID, true
}

// loadProfile fetches the caller's profile and reconciles pending expiry and
// credit resets before it is used.
func (s *Server) loadProfile(c *gin.Context) (*database.UserProfile, bool) {
	userID, ok := s.getUserIDRequired(c)
	if !ok {
		return nil, false
	}

	profile, err := s.repo.GetProfileByID(c.Request.Context(), userID)
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "NOT_FOUND", "message": "profile not found"})
		return nil, false
	}

	reconciled, err := s.ledger.ReconcileOnLoad(c.Request.Context(), profile)
	if err != nil {
		s.writeError(c, err)
		return nil, false
	}

	return reconciled, true
}
