package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tourbook/config"
	"tourbook/cron"
	"tourbook/database"
	bookingRepo "tourbook/database/repository/booking"
	reviewRepo "tourbook/database/repository/review"
	tourRepo "tourbook/database/repository/tour"
	"tourbook/handlers"
	"tourbook/middleware"
	"tourbook/routes"
	"tourbook/services/catalog"
	"tourbook/services/events"
	"tourbook/services/lock"
	"tourbook/services/rating"
	"tourbook/services/reservation"
	"tourbook/services/tasks"
	"tourbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger := utils.GetLogger()
	defer logger.Sync()

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	store, err := database.NewStore(ctx, cfg, logger)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize document store: %v", err)
	}

	redisClients := map[string]*redis.Client{}

	// Locking.
	var locker lock.Locker = lock.NewMemoryLocker()
	if cfg.LockBackend == "redis" {
		client, err := utils.NewLockClient(ctx, cfg)
		if err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
		redisClients["lock"] = client
		locker = lock.NewRedisLocker(client, cfg.LockTTL, logger)
		logger.Info("Using Redis locks", zap.Duration("ttl", cfg.LockTTL))
	}

	// Tour cache.
	var tourCache catalog.TourCache = catalog.NoopCache{}
	switch {
	case !cfg.CacheEnabled:
	case cfg.CacheBackend == "memory":
		tourCache = catalog.NewMemoryTourCache(cfg.TourCacheTTL)
	default:
		client, err := utils.NewCacheClient(ctx, cfg)
		if err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
		redisClients["cache"] = client
		tourCache = catalog.NewRedisTourCache(client, cfg.TourCacheTTL, logger)
	}

	// Events.
	var publisher events.Publisher = events.NewLogPublisher(logger)
	if cfg.KafkaBrokers != "" {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		logger.Info("Publishing events to Kafka", zap.String("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
	}

	// repositories.
	tours := tourRepo.NewTourRepo(store)
	bookings := bookingRepo.NewBookingRepo(store)
	reviews := reviewRepo.NewReviewRepo(store)

	// services.
	catalogService := catalog.NewCatalogService(tours, tourCache, logger)

	reservationService := reservation.NewReservationService(bookings, catalogService, locker, publisher, logger)
	reservationService.ConfirmationEnabled = cfg.BookingConfirmationEnabled

	ratingService := rating.NewRatingService(tours, reviews, catalogService, locker, publisher, logger)
	ratingService.MaxAttempts = cfg.RatingMaxAttempts
	ratingService.Backoff = cfg.RatingRetryBackoff

	// Background rating repair.
	var (
		taskClient *asynq.Client
		worker     *cron.ReconcileWorker
	)
	if cfg.WorkerEnabled {
		taskClient = asynq.NewClient(cron.RedisOpt(cfg))
		ratingService.Reconciler = tasks.NewAsynqReconciler(taskClient)
		worker = cron.NewReconcileWorker(cfg, ratingService, logger)
		worker.Start()
	}

	// Identity.
	var verifier middleware.TokenVerifier
	switch cfg.AuthProvider {
	case "firebase":
		app, err := utils.NewFirebaseApp(ctx, cfg)
		if err != nil {
			logger.Sugar().Fatalf("main: %v", err)
		}
		authClient, err := app.Auth(ctx)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to initialize firebase auth: %v", err)
		}
		verifier = middleware.FirebaseVerifier{Client: authClient}
	default:
		if cfg.JWTSecret == "" {
			logger.Fatal("main: JWT_SECRET is required when AUTH_PROVIDER=jwt")
		}
		verifier = middleware.JWTVerifier{Secret: []byte(cfg.JWTSecret)}
	}

	utils.StartHealthMonitor(ctx, time.Minute, store, redisClients)

	handlerBundle := &handlers.HandlerBundle{
		Bookings:          handlers.NewBookingHandler(reservationService),
		Tours:             handlers.NewTourHandler(catalogService, ratingService),
		Admin:             handlers.NewAdminHandler(catalogService, reservationService, ratingService),
		Health:            &handlers.HealthHandler{Store: store, Redis: redisClients},
		Verifier:          verifier,
		AdminToken:        cfg.AdminToken,
		MaxRequestsPerMin: cfg.MaxRequestsPerMin,
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	routes.RegisterRoutes(router, handlerBundle)

	srv := &http.Server{
		Addr:    "0.0.0.0:" + cfg.AppPort,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}

	stopBackground()
	if worker != nil {
		worker.Shutdown()
	}
	if taskClient != nil {
		_ = taskClient.Close()
	}
	if err := publisher.Close(); err != nil {
		logger.Warn("main: failed to close event publisher", zap.Error(err))
	}
	for name, client := range redisClients {
		if err := client.Close(); err != nil {
			logger.Warn("main: failed to close redis client", zap.String("client", name), zap.Error(err))
		}
	}
	if err := store.Close(shutdownCtx); err != nil {
		logger.Warn("main: failed to close document store", zap.Error(err))
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
