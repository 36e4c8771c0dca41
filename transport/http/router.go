package http

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/agoradao/janus/ports"
	"github.com/agoradao/janus/service"
)

// SetupRouter sets up the Gin router.
func SetupRouter(authService *service.AuthService, health ports.Pinger, logger zerolog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(RequestLogger(logger), gin.Recovery())

	handlers := NewAuthHandlers(authService, health, logger)

	router.GET("/healthz", handlers.Healthz)

	auth := router.Group("/auth")
	{
		auth.POST("/challenge", handlers.Challenge)
		auth.POST("/login", handlers.Login)
		auth.GET("/session", handlers.Session)
		auth.DELETE("/session", handlers.Logout)
	}

	api := router.Group("/api")
	api.Use(AuthMiddleware(authService))
	{
		api.GET("/me", handlers.Me)
		api.GET("/authorize", handlers.Authorize)
	}

	return router
}
