package router

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"writehub/internal/auth"
	"writehub/internal/config"
	"writehub/internal/handler"
	"writehub/internal/logger"
	"writehub/internal/metrics"
	"writehub/internal/model"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	log logrus.FieldLogger,
	authMiddleware *auth.Middleware,
	gatherer prometheus.Gatherer,
	authHandler *handler.AuthHandler,
	postHandler *handler.PostHandler,
	userHandler *handler.UserHandler,
) {
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.IsProduction(), log)
	e.Validator = NewValidator()

	e.Use(middleware.RequestID())
	e.Use(logger.RequestLogger(log))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, "x-auth-token"},
	}))
	e.Use(middleware.BodyLimit(cfg.MaxBodySize))

	e.GET("/health", handler.Health(cfg.AppEnv))
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(gatherer)))
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)
	if !cfg.CloudinaryEnabled() && cfg.UploadDir != "" {
		e.Static("/uploads", cfg.UploadDir)
	}

	api := e.Group("/api")
	api.GET("/test", func(c echo.Context) error {
		return c.JSON(http.StatusOK, handler.MessageResponse{Message: "Backend is working!"})
	})

	// Auth routes
	limited := authRateLimiter(cfg)
	api.POST("/auth/register", authHandler.Register, limited...)
	api.POST("/auth/login", authHandler.Login, limited...)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/auth/me", authHandler.Me, authMiddleware.Protect())
	api.PUT("/auth/profile", authHandler.UpdateProfile, authMiddleware.Protect())

	// Post routes
	api.GET("/posts", postHandler.ListPosts)
	api.GET("/posts/:id", postHandler.GetPost, authMiddleware.IsLoggedIn())
	api.POST("/posts", postHandler.CreatePost, authMiddleware.Protect())
	api.PUT("/posts/:id", postHandler.UpdatePost, authMiddleware.Protect())
	api.DELETE("/posts/:id", postHandler.DeletePost, authMiddleware.Protect())

	// Admin routes
	admin := api.Group("/admin", authMiddleware.Protect(), auth.Authorize(model.RoleAdmin))
	admin.GET("/users", userHandler.ListUsers)
}

// authRateLimiter throttles credential endpoints per client IP. A
// non-positive AUTH_RATE_LIMIT disables it.
func authRateLimiter(cfg *config.Config) []echo.MiddlewareFunc {
	if cfg.AuthRateLimit <= 0 {
		return nil
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.AuthRateLimit),
		Burst:     cfg.AuthRateBurst,
		ExpiresIn: 3 * time.Minute,
	})
	return []echo.MiddlewareFunc{middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "Unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, please try again later")
		},
	})}
}
