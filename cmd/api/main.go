package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guestbook/internal/config"
	"guestbook/internal/db"
	apihttp "guestbook/internal/http"
	"guestbook/internal/metrics"
	"guestbook/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	started := time.Now()

	manager := db.NewManager(cfg.Database, logger)
	if err := manager.Initialize(ctx); err != nil {
		if initFailureIsFatal(err, cfg.Database.InitFailurePolicy) {
			logger.Fatal("database init failed", zap.Error(err))
		}
		logger.Warn("serving in degraded mode", zap.Error(err))
	}
	defer manager.Shutdown()

	if err := metrics.RegisterPool(prometheus.DefaultRegisterer, func() metrics.PoolStats {
		return poolMetrics(manager)
	}); err != nil {
		logger.Warn("pool metrics not registered", zap.Error(err))
	}

	countCache := service.NewNoopCountCache()
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, count cache disabled", zap.Error(err))
		} else {
			countCache = service.NewRedisCountCache(redisClient, cfg.CountCacheTTL)
		}
		cancel()
		defer redisClient.Close()
	}

	messageSvc := service.NewMessageService(logger, manager, countCache, cfg.Database.QueryTimeout)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	messageHandler := apihttp.NewMessageHandler(logger, messageSvc)
	healthHandler := apihttp.NewHealthHandler(logger, manager, started)
	router := apihttp.NewRouter(logger, cfg.CORS, messageHandler, healthHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("port", cfg.HTTPPort),
			zap.String("env", cfg.Environment),
			zap.String("driver", cfg.Database.Driver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			manager.Shutdown()
			logger.Sync()
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

type poolSource interface {
	Stats() db.PoolStats
	State() (db.State, error)
}

func poolMetrics(src poolSource) metrics.PoolStats {
	stats := src.Stats()
	state, _ := src.State()
	return metrics.PoolStats{
		MaxConns:  stats.MaxConns,
		OpenConns: stats.TotalConns,
		InUse:     stats.InUse,
		Idle:      stats.Idle,
		Ready:     state == db.StateReady,
	}
}

// initFailureIsFatal aplica DB_INIT_FAILURE_POLICY. Solo un *db.InitError
// puede degradarse; cualquier otro error corta el arranque.
func initFailureIsFatal(err error, policy string) bool {
	if err == nil {
		return false
	}
	if !db.IsInitError(err) {
		return true
	}
	return policy == config.PolicyFatal
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
