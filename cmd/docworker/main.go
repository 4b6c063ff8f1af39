package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/parchment-labs/docworker/internal/config"
	"github.com/parchment-labs/docworker/internal/database"
	"github.com/parchment-labs/docworker/internal/invocation"
	"github.com/parchment-labs/docworker/internal/lock"
	"github.com/parchment-labs/docworker/internal/metadatastore"
	"github.com/parchment-labs/docworker/internal/objectstore"
	"github.com/parchment-labs/docworker/internal/pipeline"
	"github.com/parchment-labs/docworker/internal/progress"
	"github.com/parchment-labs/docworker/pkg/logger"
	"github.com/parchment-labs/docworker/pkg/metrics"
	"github.com/parchment-labs/docworker/pkg/middleware"
)

var startTime = time.Now()

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Infof("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mongo=%v redis=%v objectStore=%v", cfg.MongoDB.URI != "", cfg.Redis.Host != "", cfg.ObjectStore.Bucket)

	ctx := context.Background()

	mongoClient, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
	if err != nil {
		logger.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(ctx)
	metaStore := metadatastore.New(mongoClient, cfg.MongoDB.Database)

	objStore, err := objectstore.New(cfg.ObjectStore)
	if err != nil {
		logger.Fatalf("failed to initialize object store: %v", err)
	}

	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warnf("redis ping failed, invocation locking falls back to metadata timestamps: %v", err)
			redisClient = nil
		}
	}
	lockGuard := lock.New(redisClient, cfg.Pipeline.RecoveryWindow)

	reporter := progress.New(cfg.Progress.CallbackURL, cfg.Progress.Enabled, cfg.Progress.Timeout)

	pl := &pipeline.Pipeline{
		Meta:         metaStore,
		Objects:      objStore,
		Progress:     reporter,
		Lock:         lockGuard,
		Deadline:     cfg.Pipeline.Deadline,
		SafetyMargin: cfg.Pipeline.DeadlineSafetyMargin,
	}

	reg := prometheus.NewRegistry()
	metrics.RegisterCollectors(reg)

	r := gin.New()
	r.Use(gin.Recovery())

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && redisClient != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "uptime": time.Since(startTime).String()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	r.POST("/v1/invoke", func(c *gin.Context) {
		var payload invocation.Payload
		if err := c.ShouldBindJSON(&payload); err != nil {
			resp := invocation.Failure(0, "", err, 0)
			resp.StatusCode = http.StatusBadRequest
			c.JSON(resp.StatusCode, resp)
			return
		}
		resp := pl.Invoke(c.Request.Context(), payload)
		c.JSON(resp.StatusCode, resp)
	})

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	logger.Infof("listening on %s", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}
