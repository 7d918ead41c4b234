// Package server assembles the HTTP surface of the minichat server.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"minichat/internal/auth"
	"minichat/internal/docstore"
	"minichat/internal/handlers"
	"minichat/internal/middleware"
	"minichat/internal/observability"
	"minichat/internal/storage"
	"minichat/internal/telemetry"
	"minichat/internal/ws"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Auth    *auth.Service
	Store   *docstore.Store
	Bucket  storage.Bucket
	Hub     *ws.Hub
	Audit   *telemetry.AuditEmitter
	Limiter *middleware.LimiterStore

	ServiceName   string
	PublicBaseURL string
	MaxUploadSize int64
	CORSOrigins   []string
	DebugRoutes   bool
}

// NewRouter builds the gin engine with every route.
func NewRouter(deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(corsConfig(deps.CORSOrigins)))
	if deps.ServiceName != "" {
		router.Use(otelgin.Middleware(deps.ServiceName))
	}
	router.Use(observability.RequestIDMiddleware())
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var limiter handlers.Limiter
	authGroup := router.Group("/auth")
	if deps.Limiter != nil {
		limiter = deps.Limiter
		authGroup.Use(middleware.RateLimit(deps.Limiter))
	}
	authHandler := handlers.NewAuthHandler(deps.Auth, limiter, deps.Audit)
	authGroup.POST("/signup", authHandler.SignUp)
	authGroup.POST("/signin", authHandler.SignIn)
	authGroup.POST("/sso", authHandler.SignInWithProvider)

	uploadHandler := handlers.NewUploadHandler(deps.Store, deps.Bucket, deps.PublicBaseURL, deps.MaxUploadSize, deps.Audit)
	router.GET("/media/*key", uploadHandler.Serve)

	authed := router.Group("/")
	authed.Use(middleware.AuthMiddleware(deps.Auth))

	userHandler := handlers.NewUserHandler(deps.Store)
	authed.GET("/users", userHandler.ListUsers)
	authed.POST("/users/batch", userHandler.BatchUsers)
	authed.GET("/users/:id", userHandler.GetUser)
	authed.PUT("/users/:id", userHandler.PutUser)

	chatHandler := handlers.NewChatHandler(deps.Store)
	authed.PUT("/chats/:chat_id", chatHandler.PutChat)
	authed.GET("/chats/:chat_id", chatHandler.GetChat)
	authed.PATCH("/chats/:chat_id/summary", chatHandler.UpdateSummary)
	authed.GET("/chats/:chat_id/messages", chatHandler.ListMessages)
	authed.POST("/chats/:chat_id/messages", chatHandler.PostMessage)

	authed.POST("/uploads/:chat_id", uploadHandler.Upload)

	liveHandler := ws.NewLiveHandler(deps.Hub, deps.Store)
	authed.GET("/ws/chats", liveHandler.HandleChats)
	authed.GET("/ws/chats/:chat_id/messages", liveHandler.HandleMessages)

	handlers.RegisterDebugRoutes(authed, deps.Audit, deps.Store, deps.DebugRoutes)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-Id", "X-Device-Id"},
		ExposeHeaders: []string{"Content-Length", "X-Request-Id"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}
