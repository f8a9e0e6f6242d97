// Package routes defines the HTTP routes of the admin API.
package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/unifiedui/assistant-bot/internal/api/handlers"
	"github.com/unifiedui/assistant-bot/internal/api/middleware"
)

// BasePath is the prefix of every admin route.
const BasePath = "/api/v1/assistant-bot"

// Config holds the dependencies for setting up routes.
type Config struct {
	HealthHandler    *handlers.HealthHandler
	FeaturesHandler  *handlers.FeaturesHandler
	AllowListHandler *handlers.AllowListHandler
	AuthMiddleware   *middleware.AuthMiddleware
}

// Setup configures all routes on the Gin engine.
func Setup(r *gin.Engine, cfg *Config) {
	v1 := r.Group(BasePath)
	{
		// Health check routes (no auth required)
		v1.GET("/health", cfg.HealthHandler.Health)
		v1.GET("/ready", cfg.HealthHandler.Ready)
		v1.GET("/live", cfg.HealthHandler.Live)

		protected := v1.Group("")
		protected.Use(cfg.AuthMiddleware.Authenticate())

		protected.GET("/features", cfg.FeaturesHandler.ListFeatures)

		allowList := protected.Group("/allowlist")
		{
			allowList.GET("", cfg.AllowListHandler.GetStats)
			allowList.POST("/refresh", cfg.AllowListHandler.Refresh)
			allowList.GET("/users/:userId", cfg.AllowListHandler.GetUser)
		}
	}

	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.NoRoute(middleware.NotFound())
	r.NoMethod(middleware.MethodNotAllowed())
}

// SetupWithMiddleware sets up routes with common middleware.
func SetupWithMiddleware(r *gin.Engine, cfg *Config, loggingMw *middleware.LoggingMiddleware, errorMw *middleware.ErrorMiddleware, cors middleware.CORSConfig) {
	r.HandleMethodNotAllowed = true
	r.Use(loggingMw.RequestID())
	r.Use(loggingMw.Logger())
	r.Use(errorMw.Recovery())
	r.Use(middleware.NewCORSMiddleware(cors))

	Setup(r, cfg)
}
