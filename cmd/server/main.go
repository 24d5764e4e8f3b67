package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	cartapp "github.com/alpenform/storefront/internal/application/cart"
	identityapp "github.com/alpenform/storefront/internal/application/identity"
	regionapp "github.com/alpenform/storefront/internal/application/region"
	"github.com/alpenform/storefront/internal/infrastructure/auth"
	"github.com/alpenform/storefront/internal/infrastructure/cache"
	"github.com/alpenform/storefront/internal/infrastructure/commerce"
	"github.com/alpenform/storefront/internal/infrastructure/config"
	"github.com/alpenform/storefront/internal/infrastructure/logger"
	"github.com/alpenform/storefront/internal/infrastructure/persistence"
	"github.com/alpenform/storefront/internal/infrastructure/persistence/models"
	"github.com/alpenform/storefront/internal/infrastructure/telemetry"
	"github.com/alpenform/storefront/internal/interfaces/http/handler"
	"github.com/alpenform/storefront/internal/interfaces/http/middleware"
	"github.com/alpenform/storefront/internal/interfaces/http/router"
)

const version = "1.0.0"

// sessionsAdapter exposes the cart session registry to the identity
// service without the concrete manager type
type sessionsAdapter struct {
	sessions *cartapp.Sessions
}

func (a sessionsAdapter) Transferer(sessionID string) identityapp.CartTransferer {
	return a.sessions.Get(sessionID)
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting storefront cart service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Tracing
	ctx := context.Background()
	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Error("Error shutting down tracing", zap.Error(err))
		}
	}()

	// Session state store
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to session store", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing session store", zap.Error(err))
		}
	}()
	if err := db.DB.AutoMigrate(&models.SessionStateModel{}); err != nil {
		log.Fatal("Failed to migrate session store", zap.Error(err))
	}
	log.Info("Session store ready", zap.String("driver", cfg.Database.Driver))

	stateRepo := persistence.NewGormSessionStateRepository(db.DB, log)

	// Settings cache, Redis with in-memory fallback
	cacheFactory := cache.NewSettingsCacheFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	)
	settingsCache, err := cacheFactory.CreateCache()
	if err != nil {
		log.Fatal("Failed to initialize settings cache", zap.Error(err))
	}
	defer func() {
		if err := settingsCache.Close(); err != nil {
			log.Error("Error closing settings cache", zap.Error(err))
		}
	}()

	// Commerce backend client
	commerceClient, err := commerce.NewClient(cfg.Commerce, log)
	if err != nil {
		log.Fatal("Failed to initialize commerce client", zap.Error(err))
	}

	// Application services
	regionService := regionapp.NewService(commerceClient, settingsCache, stateRepo, cfg.Store.PrimaryCurrency, log)

	notifier := cartapp.NewLoggingNotifier(log)
	sessions := cartapp.NewSessions(func(sessionID string) *cartapp.Manager {
		return cartapp.NewManager(sessionID, commerceClient, stateRepo, regionService, notifier, cfg.Store, log)
	})

	tokenService := auth.NewTokenService(cfg.Auth)
	identityService := identityapp.NewService(commerceClient, tokenService, sessionsAdapter{sessions}, log)

	// HTTP engine
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-Session-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.Session())

	// Health endpoints outside API versioning
	systemHandler := handler.NewSystemHandler(db, version)
	engine.GET("/health", systemHandler.Health)
	engine.GET("/ready", systemHandler.Ready)

	router.New(engine).
		Register(
			handler.NewCartHandler(sessions),
			handler.NewRegionHandler(regionService, sessions),
			handler.NewAuthHandler(identityService, middleware.JWTAuthMiddleware(tokenService, log)),
			systemHandler,
		).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}

	log.Info("Server stopped")
}
