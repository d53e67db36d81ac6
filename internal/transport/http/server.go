package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ovasiliev/converse-server/internal/auth"
	"github.com/ovasiliev/converse-server/internal/config"
	"github.com/ovasiliev/converse-server/internal/core"
	"github.com/ovasiliev/converse-server/internal/store"
)

// NewServer builds the HTTP server: REST API, websocket endpoint, health.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(LoggerMiddleware(logger), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, cfg.MaxMessageBytes, logger)))

	apiHandlers := NewAPIHandlers(authService, logger)
	userHandlers := NewUserHandlers(st, logger)
	chatHandlers := NewChatHandlers(st, logger)
	messageHandlers := NewMessageHandlers(st, logger)
	documentHandlers := NewDocumentHandlers(st, logger)

	api := router.Group("/api")
	api.POST("/users/register", apiHandlers.Register)
	api.POST("/users/login", apiHandlers.Login)

	authed := api.Group("", AuthMiddleware(authService, logger))
	authed.GET("/users/search", userHandlers.SearchUsers)

	authed.POST("/chats", chatHandlers.CreateDirectChat)
	authed.POST("/chats/group", chatHandlers.CreateGroupChat)
	authed.GET("/chats", chatHandlers.ListChats)
	authed.PUT("/chats/:id/rename", chatHandlers.RenameChat)
	authed.POST("/chats/:id/members", chatHandlers.AddMember)
	authed.DELETE("/chats/:id/members/:userID", chatHandlers.RemoveMember)
	authed.GET("/chats/:id/documents", documentHandlers.ListByChat)

	authed.POST("/messages", messageHandlers.SendMessage)
	authed.GET("/messages/:chatID", messageHandlers.ListMessages)

	authed.POST("/documents", documentHandlers.CreateDocument)
	authed.GET("/documents/:id", documentHandlers.GetDocument)
	authed.PUT("/documents/:id", documentHandlers.UpdateDocument)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
