package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/avolkov/directline/internal/auth"
	"github.com/avolkov/directline/internal/config"
	"github.com/avolkov/directline/internal/core"
	"github.com/avolkov/directline/internal/store"
)

// NewServer builds the HTTP server: REST API plus the WebSocket endpoint.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	apiHandlers := NewAPIHandlers(authService, logger)
	userHandlers := NewUserHandlers(st, logger)
	messageHandlers := NewMessageHandlers(st, cfg.HistoryLimit, logger)
	wsHandler := NewWSHandler(hub, authService, cfg.MessageRateLimit, logger)

	api := router.Group("/api")
	api.GET("/health", healthHandler)
	api.POST("/auth/register", apiHandlers.Register)
	api.POST("/auth/login", apiHandlers.Login)

	authed := api.Group("", AuthMiddleware(authService, logger))
	authed.GET("/users", userHandlers.List)
	authed.POST("/users/logout", userHandlers.Logout)
	authed.GET("/messages/:userID", messageHandlers.History)

	router.GET("/ws", wsHandler.Handle)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.JSON(stdhttp.StatusOK, gin.H{"success": true, "message": "server is running"})
}
