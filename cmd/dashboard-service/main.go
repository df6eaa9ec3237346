package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/geoshield/geoshield/internal/analytics"
	"github.com/geoshield/geoshield/internal/assistant"
	"github.com/geoshield/geoshield/internal/auth"
	"github.com/geoshield/geoshield/internal/common/config"
	apperrors "github.com/geoshield/geoshield/internal/common/errors"
	"github.com/geoshield/geoshield/internal/common/kv"
	"github.com/geoshield/geoshield/internal/common/logger"
	"github.com/geoshield/geoshield/internal/common/middleware"
	"github.com/geoshield/geoshield/internal/common/tracing"
	"github.com/geoshield/geoshield/internal/dashboard"
	"github.com/geoshield/geoshield/internal/intel"
	"github.com/geoshield/geoshield/internal/metrics"
	"github.com/geoshield/geoshield/internal/risk"
	"github.com/geoshield/geoshield/internal/server"
)

const serviceName = "dashboard-service"

func main() {
	log := logger.New()
	defer log.Sync()

	cfg, err := config.Load(serviceName)
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	log.Info("Starting GeoShield dashboard service",
		zap.String("environment", cfg.Environment),
		zap.Int("port", cfg.Port),
		zap.Bool("offline_mode", cfg.OfflineMode),
	)

	// Tracing
	tracerShutdown, err := tracing.Init(context.Background(),
		tracing.ConfigFromEnv(serviceName, cfg.Environment), log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	// Storage: Redis in live deployments, in-memory for offline demo runs
	var store kv.Store
	if cfg.OfflineMode {
		store = kv.NewMemoryStore()
		log.Info("Using in-memory store")
	} else {
		redisStore, err := kv.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		store = redisStore
		log.Info("Connected to Redis")
	}

	// Domain services
	evaluator := risk.NewEvaluator(cfg.HomeCountry, log)
	weights := risk.NewWeightStore(store, log)
	attempts := analytics.NewAttemptLogger(analytics.NewStore(store, log), log)
	reporter := analytics.NewReporter()
	loginSvc := auth.NewService(evaluator, weights, attempts, store,
		cfg.DemoUsername, cfg.DemoPassword, log)

	var gateway intel.Gateway
	var generator assistant.Generator
	if cfg.OfflineMode {
		gateway = intel.NewMockGateway()
		generator = assistant.NewOfflineGenerator()
	} else {
		gateway = intel.NewService(intel.Config{
			VTAPIKey:         cfg.VTAPIKey,
			OTXAPIKey:        cfg.OTXAPIKey,
			HTTPTimeout:      cfg.HTTPTimeout,
			CacheTTL:         cfg.IntelCacheTTL,
			DegradedCacheTTL: cfg.IntelDegradedCacheTTL,
		}, store, log)
		generator = assistant.NewOpenAIGenerator(assistant.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
		}, log)
	}

	// HTTP server
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(apperrors.ErrorHandler())
	router.Use(middleware.CORSWithOrigins(cfg.GetCORSOrigins()))
	router.Use(logger.GinMiddleware(log))
	router.Use(metrics.Middleware(serviceName))
	router.Use(otelgin.Middleware(serviceName))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})
	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	router.GET("/metrics", metrics.Handler())

	handler := dashboard.NewHandler(loginSvc, evaluator, weights, attempts,
		reporter, gateway, generator, log)
	handler.RegisterRoutes(router.Group("/api"))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	graceful := server.New(server.Config{
		Server: srv,
		Logger: log,
		Shutdownables: []server.Shutdownable{
			server.CloseStore(store),
			server.CloseTracer(tracerShutdown),
		},
	})

	if err := graceful.ListenAndServe(); err != nil {
		log.Fatal("Server failed", zap.Error(err))
	}
}
