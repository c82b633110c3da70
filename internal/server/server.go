package server

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"farmapos/internal/config"
	custommiddleware "farmapos/internal/middleware"
	"farmapos/internal/notify"
	"farmapos/internal/repository"
	"farmapos/internal/service"
	"farmapos/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config      *config.Config
	logger      *zap.Logger
	db          *sql.DB
	redisClient *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, db *sql.DB) *Server {
	router := chi.NewRouter()

	// Basic middleware
	for _, mw := range custommiddleware.DefaultMiddlewareStack() {
		router.Use(mw)
	}
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Server.Env == "development"))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Repositories over the shared pool; order flows build tx-scoped ones
	store := repository.NewStore(db)
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	clientRepo := repository.NewClientRepository(db)
	supplierRepo := repository.NewSupplierRepository(db)
	alertRepo := repository.NewAlertRepository(db)

	// Services
	notifier := notify.NewLogNotifier(logger)
	userService := service.NewUserService(userRepo, refreshTokenRepo, cfg.JWT)
	inventoryService := service.NewInventoryService(store, logger)
	orderService := service.NewOrderService(store, inventoryService, notifier, logger)
	catalogAdminService := service.NewCatalogAdminService(categoryRepo, productRepo, batchRepo)
	partyService := service.NewPartyService(clientRepo, supplierRepo)
	alertService := service.NewAlertService(alertRepo)

	// Handlers
	authHandler := transport.NewAuthHandler(userService, logger)
	saleHandler := transport.NewSaleHandler(orderService, logger)
	purchaseHandler := transport.NewPurchaseHandler(orderService, logger)
	productHandler := transport.NewProductHandler(catalogAdminService, inventoryService, logger)
	batchHandler := transport.NewBatchHandler(catalogAdminService, logger)
	clientHandler := transport.NewClientHandler(partyService, logger)
	supplierHandler := transport.NewSupplierHandler(partyService, logger)
	categoryHandler := transport.NewCategoryHandler(catalogAdminService, logger)
	alertHandler := transport.NewAlertHandler(alertService, logger)

	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	rateLimiter := custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: cfg.RateLimit.Requests,
		Window:            time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
		KeyPrefix:         "ratelimit:orders",
	}, logger)

	authHandler.RegisterRoutes(router, authMiddleware)
	saleHandler.RegisterRoutes(router, authMiddleware, rateLimiter)
	purchaseHandler.RegisterRoutes(router, authMiddleware, rateLimiter)
	productHandler.RegisterRoutes(router, authMiddleware)
	batchHandler.RegisterRoutes(router, authMiddleware)
	clientHandler.RegisterRoutes(router, authMiddleware)
	supplierHandler.RegisterRoutes(router, authMiddleware)
	categoryHandler.RegisterRoutes(router, authMiddleware)
	alertHandler.RegisterRoutes(router, authMiddleware)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:      cfg,
		logger:      logger,
		db:          db,
		redisClient: redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
