package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"writehub/docs"
	"writehub/internal/auth"
	"writehub/internal/cache"
	"writehub/internal/config"
	"writehub/internal/db"
	"writehub/internal/handler"
	"writehub/internal/logger"
	"writehub/internal/metrics"
	"writehub/internal/repository"
	"writehub/internal/router"
	"writehub/internal/service"
	"writehub/internal/storage"
)

// @title WriteHub API
// @version 1.0
// @description Blog API with cookie or bearer JWT sessions, posts and featured image uploads.
// @host localhost:5000
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.IsProduction())

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	gormDB, err := db.Open(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("database init")
	}
	if err := db.Migrate(gormDB); err != nil {
		log.WithError(err).Fatal("database migrate")
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		log.WithError(err).Warn("redis unavailable, continuing without cache")
	}
	cancel()

	images, err := newImageStore(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("image store init")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	postRepo := repository.NewPostRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, log)
	userService := service.NewUserService(userRepo, cacheClient)
	postService := service.NewPostService(postRepo, userRepo, images, cfg.UploadTimeout, log, collector)

	authMiddleware := auth.NewMiddleware(jwtService, tokenStore, userService, cfg.CookieName, log, collector)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService, userService, authMiddleware, handler.CookieConfig{
		Name:   cfg.CookieName,
		Secure: cfg.IsProduction(),
	})
	postHandler := handler.NewPostHandler(postService)
	userHandler := handler.NewUserHandler(userService)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, log, authMiddleware, registry, authHandler, postHandler, userHandler)

	swaggerURL := configureSwagger(cfg)
	log.WithField("url", swaggerURL).Info("swagger documentation available")

	go func() {
		addr := ":" + cfg.ServerPort
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.AppEnv}).Info("server starting")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	log.Info("server stopped")
}

// newImageStore prefers Cloudinary and falls back to the local uploads directory.
func newImageStore(cfg *config.Config, log logrus.FieldLogger) (storage.ImageStore, error) {
	if cfg.CloudinaryEnabled() {
		log.WithField("folder", storage.CloudinaryFolder).Info("using cloudinary image store")
		return storage.NewCloudinaryStore(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	}
	log.WithField("dir", cfg.UploadDir).Info("cloudinary not configured, storing images locally")
	return storage.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
}

// configureSwagger points the generated docs at SWAGGER_HOST and returns the UI URL.
func configureSwagger(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		return "http://localhost:" + cfg.ServerPort + "/swagger/index.html"
	}

	scheme := "http"
	switch {
	case strings.HasPrefix(host, "https://"):
		scheme, host = "https", strings.TrimPrefix(host, "https://")
	case strings.HasPrefix(host, "http://"):
		host = strings.TrimPrefix(host, "http://")
	}
	docs.SwaggerInfo.Host = host
	docs.SwaggerInfo.Schemes = []string{scheme}
	return scheme + "://" + host + "/swagger/index.html"
}
