// Package server
//
// @title Storefront API
// @version 1.0
// @description E-commerce storefront API
// @host localhost:5000
// @BasePath /
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/storefront-dev/storefront/internal/auth"
	"github.com/storefront-dev/storefront/internal/config"
	"github.com/storefront-dev/storefront/internal/database"
	"github.com/storefront-dev/storefront/internal/metrics"
	"github.com/storefront-dev/storefront/internal/models"
	"github.com/storefront-dev/storefront/internal/seed"
	"github.com/storefront-dev/storefront/internal/sessions"
	"github.com/storefront-dev/storefront/internal/workers"
)

// Server represents the HTTP server
type Server struct {
	router       *gin.Engine
	conn         *database.Connector
	config       *config.Config
	logger       zerolog.Logger
	validator    *validator.Validate
	enqueuer     workers.Enqueuer
	revoker      sessions.Revoker
	loginLimiter *RateLimiter
	closers      []func() error
	version      string
}

// Dependencies are the collaborators a Server is built from
type Dependencies struct {
	Connector *database.Connector
	Enqueuer  workers.Enqueuer
	Revoker   sessions.Revoker
}

// New creates a server wired to production dependencies. The database is
// opened later, in the background, when Start runs.
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	auth.InitializeJWT(cfg.Session.Secret, cfg.Session.TTL)

	connector := database.NewConnector(cfg.Database.URL, zlog,
		database.WithSetup(
			func(ctx context.Context, db *gorm.DB) error {
				return models.AutoMigrate(db.WithContext(ctx))
			},
			seed.Setup(cfg.Database.SeedFile, zlog),
		),
	)

	// Initialize Asynq client for enqueueing tasks
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	})

	deps := Dependencies{
		Connector: connector,
		Enqueuer:  asynqClient,
	}

	var closers []func() error
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	redisRevoker, err := sessions.NewRedisRevoker(ctx, cfg.Redis.Address)
	if err != nil {
		zlog.Warn().Err(err).Msg("Redis unavailable - revoked sessions will be tracked in memory")
		deps.Revoker = sessions.NewMemoryRevoker()
	} else {
		deps.Revoker = redisRevoker
		closers = append(closers, redisRevoker.Close)
	}

	server := newServer(cfg, zlog, version, deps)
	server.closers = append(closers, asynqClient.Close)
	return server, nil
}

func newServer(cfg *config.Config, zlog zerolog.Logger, version string, deps Dependencies) *Server {
	s := &Server{
		conn:         deps.Connector,
		config:       cfg,
		logger:       zlog,
		validator:    newValidator(),
		enqueuer:     deps.Enqueuer,
		revoker:      deps.Revoker,
		loginLimiter: NewRateLimiter(cfg.HTTP.LoginRatePerSecond, cfg.HTTP.LoginBurst),
		version:      version,
	}
	if s.revoker == nil {
		s.revoker = sessions.NewMemoryRevoker()
	}
	s.setupRouter()
	return s
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	// ClientIP only honours X-Forwarded-For from these peers
	if err := s.router.SetTrustedProxies(s.config.HTTP.TrustedProxies); err != nil {
		s.logger.Error().Err(err).Msg("Invalid trusted proxies, trusting none")
		_ = s.router.SetTrustedProxies(nil)
	}

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(metrics.Middleware())
	s.router.Use(cors.New(s.corsConfig()))

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	authenticated := s.authMiddleware()
	adminOnly := AdminOnlyMiddleware(s.logger)
	withDB := s.requireDatabase()

	authRoutes := s.router.Group("/api/auth")
	{
		authRoutes.POST("/register", withDB, s.register)
		authRoutes.POST("/login", s.loginLimiter.Middleware(s.logger), withDB, s.login)
		authRoutes.POST("/logout", s.logout)
		authRoutes.GET("/check-auth", authenticated, s.checkAuth)
	}

	adminProducts := s.router.Group("/api/admin/products", authenticated, adminOnly, withDB)
	{
		adminProducts.POST("/add", s.addProduct)
		adminProducts.PUT("/edit/:id", s.editProduct)
		adminProducts.DELETE("/delete/:id", s.deleteProduct)
		adminProducts.GET("/get", s.listAllProducts)
	}

	adminOrders := s.router.Group("/api/admin/orders", authenticated, adminOnly, withDB)
	{
		adminOrders.GET("/get", s.listAllOrders)
		adminOrders.GET("/details/:id", s.adminOrderDetails)
		adminOrders.PUT("/update/:id", s.updateOrderStatus)
	}

	shopProducts := s.router.Group("/api/shop/products", withDB)
	{
		shopProducts.GET("/get", s.listFilteredProducts)
		shopProducts.GET("/get/:id", s.productDetails)
	}

	cartRoutes := s.router.Group("/api/shop/cart", authenticated, withDB)
	{
		cartRoutes.POST("/add", s.addToCart)
		cartRoutes.GET("/get/:userId", s.getCart)
		cartRoutes.PUT("/update-cart", s.updateCartQuantity)
		cartRoutes.DELETE("/:userId/:productId", s.removeFromCart)
	}

	addressRoutes := s.router.Group("/api/shop/address", authenticated, withDB)
	{
		addressRoutes.POST("/add", s.addAddress)
		addressRoutes.GET("/get/:userId", s.listAddresses)
		addressRoutes.PUT("/update/:userId/:addressId", s.updateAddress)
		addressRoutes.DELETE("/delete/:userId/:addressId", s.deleteAddress)
	}

	orderRoutes := s.router.Group("/api/shop/order", authenticated, withDB)
	{
		orderRoutes.POST("/create", s.createOrder)
		orderRoutes.POST("/capture", s.capturePayment)
		orderRoutes.GET("/list/:userId", s.listUserOrders)
		orderRoutes.GET("/details/:id", s.orderDetails)
	}

	s.router.GET("/api/shop/search/", withDB, s.searchProducts)
	s.router.GET("/api/shop/search/:keyword", withDB, s.searchProducts)

	reviewRoutes := s.router.Group("/api/shop/review", withDB)
	{
		reviewRoutes.POST("/add", authenticated, s.addReview)
		reviewRoutes.GET("/:productId", s.listReviews)
	}

	featureRoutes := s.router.Group("/api/common/feature", withDB)
	{
		featureRoutes.POST("/add", authenticated, adminOnly, s.addFeature)
		featureRoutes.GET("/get", s.listFeatures)
		featureRoutes.DELETE("/delete/:id", authenticated, adminOnly, s.deleteFeature)
	}
}

// corsConfig reflects the request origin with credentials unless an explicit
// allowlist is configured
func (s *Server) corsConfig() cors.Config {
	allowed := s.config.HTTP.CORSOrigins
	return cors.Config{
		AllowOriginFunc: func(origin string) bool {
			if len(allowed) == 0 {
				return true
			}
			for _, o := range allowed {
				if o == origin {
					return true
				}
			}
			return false
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Cache-Control", "Expires", "Pragma"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	status := "online"
	_, dbReady := s.conn.DB()
	if !dbReady {
		status = "degraded"
	}
	metrics.SetDatabaseUp(dbReady)

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"database":  dbReady,
		"timestamp": time.Now().UTC(),
		"service":   "storefront-api",
		"version":   s.version,
	})
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start connects to the database in the background, serves HTTP on the
// configured port and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.conn.Start(ctx)
	go func() {
		select {
		case <-s.conn.Ready():
			metrics.SetDatabaseUp(true)
		case <-ctx.Done():
		}
	}()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              ":" + s.config.HTTP.Port,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().
			Str("port", s.config.HTTP.Port).
			Str("address", "http://localhost:"+s.config.HTTP.Port).
			Msg("Server is now running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	case err := <-errChan:
		s.logger.Error().Err(err).Msg("HTTP server error")
		s.shutdownDependencies()
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	s.logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.shutdownDependencies()
	s.logger.Info().Msg("Server shutdown complete")
	return nil
}

func (s *Server) shutdownDependencies() {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			s.logger.Warn().Err(err).Msg("Error closing dependency")
		}
	}

	// Close database connection to flush WAL writes
	if err := s.conn.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Error closing database")
	} else {
		s.logger.Info().Msg("Database closed successfully")
	}
}
