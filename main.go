package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/handlers"
	"storefront/internal/shop"
	"storefront/internal/store"
	"storefront/internal/store/memstore"
	"storefront/internal/store/mongostore"
	"storefront/internal/tracing"
)

const serviceName = "storefront"

func newLogger(cfg config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Env == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Store, func(context.Context) error, error) {
	if cfg.Store == "memory" {
		logger.Warn("using in-memory store; data is lost on restart")
		return memstore.New(), func(context.Context) error { return nil }, nil
	}

	client, err := database.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	db := client.Database(cfg.DBName)
	logger.Info("MongoDB connected", zap.String("database", db.Name()))

	if err := database.EnsureIndexes(ctx, db, logger); err != nil {
		logger.Warn("index bootstrap incomplete", zap.Error(err))
	}
	return mongostore.New(db), client.Disconnect, nil
}

func main() {
	config.Load()
	cfg := config.AppEnv

	logger := newLogger(cfg)
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is required")
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	shutdownTracing := tracing.Init(serviceName)

	startCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	st, closeStore, err := openStore(startCtx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("store unavailable", zap.Error(err))
	}

	var productCache shop.ProductCache
	if cfg.RedisAddr != "" {
		rdb, err := cache.InitRedis(context.Background(), cfg.RedisAddr, cfg.RedisPassword, logger)
		if err != nil {
			logger.Warn("redis unavailable, product cache disabled", zap.Error(err))
		} else {
			defer rdb.Close()
			productCache = cache.NewProductCache(rdb, cfg.ProductCacheTTL, logger)
		}
	}

	hub := events.NewHub(logger.Named("feed"))
	publishers := events.Multi{hub}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.NewKafkaProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.Warn("kafka unavailable, order events stay local", zap.Error(err))
		} else {
			kafka := events.NewKafkaPublisher(producer, cfg.KafkaOrderTopic, logger.Named("kafka"))
			defer kafka.Close()
			publishers = append(publishers, kafka)
		}
	}

	services := shop.New(st, productCache, publishers, logger)

	router := handlers.NewRouter(handlers.Deps{
		Store:       st,
		Services:    services,
		Hub:         hub,
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		ServiceName: serviceName,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := closeStore(ctx); err != nil {
		logger.Error("store close", zap.Error(err))
	}
	if err := shutdownTracing(ctx); err != nil {
		logger.Error("tracer shutdown", zap.Error(err))
	}
}
