package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/flowsync-hq/flowsync/common/id"
	"github.com/flowsync-hq/flowsync/common/logger"
	"github.com/flowsync-hq/flowsync/common/otel"
	"github.com/flowsync-hq/flowsync/core/config"
	"github.com/flowsync-hq/flowsync/core/db"
	"github.com/flowsync-hq/flowsync/internal/cache"
	"github.com/flowsync-hq/flowsync/internal/github"
	"github.com/flowsync-hq/flowsync/internal/http/middleware"
	httprouter "github.com/flowsync-hq/flowsync/internal/http/router"
	"github.com/flowsync-hq/flowsync/internal/realtime"
	"github.com/flowsync-hq/flowsync/internal/service"
	"github.com/flowsync-hq/flowsync/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "flowsync starting", "env", cfg.Env, "port", cfg.Port)

	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := database.InitSchema(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to initialize schema", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "database connected")

	stores := store.NewStores(database.Conn())

	// The durable cache tier rides on Redis when REDIS_URL is set and on
	// Postgres otherwise.
	durable := stores.Cache()
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		durable = store.NewRedisCacheStore(redisClient)
		slog.InfoContext(ctx, "redis connected, using redis cache tier")
	}

	tiered := cache.New(durable, cfg.Cache.HotTTL)
	hub := realtime.NewHub()
	ghClient := github.New(cfg.GitHub.BaseURL)

	if cfg.GitHub.WebhookSecret == "" {
		slog.WarnContext(ctx, "no webhook secret configured, accepting unsigned deliveries")
	}

	services := service.NewServices(stores, service.NewTxRunner(database), ghClient, tiered, hub, cfg, slog.Default())

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go sweepLoop(sweepCtx, tiered, cfg.Cache.SweepInterval)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := setupRouter(cfg, services, tiered, hub)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func setupRouter(cfg config.Config, services *service.Services, tiered *cache.TieredCache, hub *realtime.Hub) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	httprouter.SetupRoutes(router, services, tiered, hub, cfg)

	return router
}

// sweepLoop evicts expired cache entries on a timer until ctx is cancelled.
func sweepLoop(ctx context.Context, tiered *cache.TieredCache, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := tiered.SweepExpired(ctx); err != nil {
				slog.WarnContext(ctx, "cache sweep failed", "error", err)
			}
		}
	}
}
