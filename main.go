package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bloomify-insights/config"
	"bloomify-insights/database"
	recordsRepo "bloomify-insights/database/repository/records"
	"bloomify-insights/handlers"
	"bloomify-insights/middleware"
	"bloomify-insights/routes"
	"bloomify-insights/services/analytics"
	"bloomify-insights/services/realtime"
	"bloomify-insights/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()
	defer logger.Sync()
	cfg := config.AppConfig

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	database.InitDB()
	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// Redis backs shared generations and live updates; without it the
	// service still serves dashboards from a single process.
	var (
		cacheClient *redis.Client
		generations *analytics.Generations
		broadcaster realtime.Broadcaster
	)
	if err := utils.InitCache(); err != nil {
		logger.Warn("Redis unavailable; using in-process generations and disabling realtime", zap.Error(err))
		generations = analytics.NewGenerations(nil)
	} else {
		cacheClient = utils.GetCacheClient()
		generations = analytics.NewGenerations(analytics.NewRedisGenerationCounter(cacheClient, 24*time.Hour))
		broadcaster = realtime.NewRedisBroadcaster(cacheClient)
	}

	// repositories.
	if err := recordsRepo.EnsureIndexes(database.Database()); err != nil {
		logger.Warn("Failed to ensure analytics indexes", zap.Error(err))
	}
	store := recordsRepo.NewMongoRecordStore(database.Database(), cfg.FetchTimeout())
	repo := recordsRepo.NewAnalyticsRepository(store)

	// services.
	analyticsService := &analytics.DefaultAnalyticsService{
		Repo:              repo,
		Generations:       generations,
		Logger:            logger.Named("analytics"),
		FetchTimeout:      cfg.FetchTimeout(),
		Location:          cfg.Location(),
		FunnelDays:        cfg.FunnelDays,
		DefaultWindowDays: cfg.DefaultWindowDays,
	}

	var (
		worker     *realtime.WorkerRunner
		queue      *asynq.Client
		subscriber *realtime.Subscriber
	)
	if cfg.RealtimeEnabled && broadcaster != nil {
		worker = realtime.StartWorker(realtime.ServerConfig{
			Redis:       utils.QueueRedisOpt(),
			Concurrency: cfg.WorkerConcurrency,
		}, &realtime.Worker{
			Analytics:   analyticsService,
			Broadcaster: broadcaster,
			Logger:      logger.Named("worker"),
		})

		queue = utils.GetQueueClient()
		subscriber = &realtime.Subscriber{
			Store:    store,
			Queue:    queue,
			Logger:   logger.Named("subscriber"),
			Debounce: 2 * time.Second,
		}
		go subscriber.Run(rootCtx)
	}

	var redisClients []*redis.Client
	if cacheClient != nil {
		redisClients = append(redisClients, cacheClient)
	}
	utils.StartHealthMonitor(rootCtx, 60*time.Second, redisClients, database.MongoClient)

	// handlers.
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService, cfg.Location())
	streamHandler := handlers.NewStreamHandler(broadcaster)
	handlerBundle := handlers.NewHandlerBundle(analyticsHandler, streamHandler, cfg.JWTSecret, cfg.MaxRequestsPerMin)

	router := gin.New()
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger))
	routes.RegisterRoutes(router, handlerBundle)

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
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

	stopBackground()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	if worker != nil {
		worker.Shutdown()
	}
	if queue != nil {
		queue.Close()
	}
	if cacheClient != nil {
		cacheClient.Close()
	}
	if err := database.Disconnect(ctx); err != nil {
		logger.Sugar().Errorf("main: failed to disconnect MongoDB: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
