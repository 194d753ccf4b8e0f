package handler

import (
	"net/http"

	"dmsync/backend/internal/api/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handler, logger *zap.Logger, allowedOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(logger))
	r.Use(middleware.CORSMiddleware(allowedOrigins))

	h.Routes(r)
	return r
}

func (h *Handler) Routes(r *gin.Engine) {
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/api")
	api.GET("/health", h.HealthCheck)

	withToken := api.Group("", h.RequireToken())
	withToken.POST("/users", h.CreateUser)

	authed := withToken.Group("", h.RequireUser())
	authed.GET("/users/me", h.Me)
	authed.GET("/users/last-active", h.LastActive)

	authed.GET("/profiles", h.ListProfiles)
	authed.GET("/profiles/:userId", h.GetProfile)

	authed.POST("/conversations", h.CreateConversation)
	authed.GET("/conversations", h.ListConversations)
	authed.GET("/conversations/with/:userId", h.ConversationWith)
	authed.GET("/conversations/:id", h.GetConversation)
	authed.POST("/conversations/:id/read", h.MarkRead)
	authed.POST("/conversations/:id/typing", h.SetTyping)
	authed.GET("/conversations/:id/typing", h.GetTyping)

	authed.POST("/messages", h.PostMessage)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	status := h.Health.Check(c.Request.Context())
	code := http.StatusOK
	if status.Status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, status)
}
