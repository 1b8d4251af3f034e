package handlers

import (
	"github.com/gin-gonic/gin"
)

// NewRouter registra as rotas do bot e da API de status.
func NewRouter(slack *SlackHandler, status *StatusHandler, token string, middleware ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(middleware...)

	// Middleware de autenticação
	router.Use(AuthMiddleware(token))

	router.GET("/health", Health)

	slackGroup := router.Group("/slack")
	{
		slackGroup.POST("/events", slack.Events)
		slackGroup.POST("/actions", slack.Actions)
	}

	api := router.Group("/api")
	{
		api.GET("/conversations/:id", status.Conversation)
	}

	return router
}
