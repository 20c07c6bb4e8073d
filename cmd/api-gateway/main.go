package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/rakapradana/toko-api/api/swagger"
	"github.com/rakapradana/toko-api/internal/handler"
	"github.com/rakapradana/toko-api/internal/middleware"
	"github.com/rakapradana/toko-api/internal/models"
	"github.com/rakapradana/toko-api/internal/repository"
	"github.com/rakapradana/toko-api/internal/service"
	"github.com/rakapradana/toko-api/pkg/cache"
	"github.com/rakapradana/toko-api/pkg/config"
	"github.com/rakapradana/toko-api/pkg/database"
	"github.com/rakapradana/toko-api/pkg/logger"
	corsmiddleware "github.com/rakapradana/toko-api/pkg/middleware/cors"
	reqidmiddleware "github.com/rakapradana/toko-api/pkg/middleware/requestid"
	"github.com/rakapradana/toko-api/pkg/ratelimit"
)

// @title Toko Store API
// @version 1.0.0
// @description Session and token lifecycle service for the storefront and back office
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	var limiter ratelimit.Limiter
	if cfg.RateLimit.UseRedis {
		rdb, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer rdb.Close()
		limiter = ratelimit.NewRedis(rdb, cfg.RateLimit.Attempts, cfg.RateLimit.Window)
	} else {
		limiter = ratelimit.NewMemory(cfg.RateLimit.Attempts, cfg.RateLimit.Window)
	}

	tokenSvc, err := service.NewTokenService(cfg.Auth)
	if err != nil {
		logr.Sugar().Fatalw("failed to init token service", "error", err)
	}

	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	metricsSvc := service.NewMetricsService()
	sessionSvc := service.NewSessionService(sessionRepo, userRepo, tokenSvc, logr, metricsSvc, cfg.Auth.SessionLimit)
	authSvc := service.NewAuthService(userRepo, sessionSvc, tokenSvc, validator.New(), logr)

	authHandler := handler.NewAuthHandler(authSvc, sessionSvc, metricsSvc, handler.CookieConfig{
		Domain:      cfg.Auth.CookieDomain,
		Secure:      cfg.Env == config.EnvProduction,
		RefreshPath: cfg.APIPrefix + "/auth",
	})
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", middleware.RateLimit(limiter, middleware.RateLimitLogin, metricsSvc, logr), authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/me", middleware.Auth(tokenSvc, models.TokenClassAccess), authHandler.Me)
	auth.GET("/sessions", middleware.Auth(tokenSvc, models.TokenClassAccess), authHandler.Sessions)

	admin := api.Group("/admin", middleware.Auth(tokenSvc, models.TokenClassAdmin), middleware.RequireRole(models.RoleAdmin))
	admin.POST("/verify", middleware.RateLimit(limiter, middleware.RateLimitStepUp, metricsSvc, logr), authHandler.StepUpVerify)
	admin.GET("/verify", authHandler.StepUpStatus)
	admin.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
