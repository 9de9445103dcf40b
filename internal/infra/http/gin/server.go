package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"valikoo/internal/infra/config"
	"valikoo/internal/infra/obs"
)

type Handlers struct {
	Auth           AuthHTTP
	Product        ProductHTTP
	Request        RequestHTTP
	Trip           TripHTTP
	Chat           ChatHTTP
	Saved          SavedItemHTTP
	Order          OrderHTTP
	Notification   NotificationHTTP
	Dashboard      DashboardHTTP
	Live           gin.HandlerFunc
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	if h.Live != nil {
		router.GET("/ws", h.Live)
	}

	api := router.Group("/api")
	if h.Auth != nil {
		api.POST("/auth/register", h.Auth.Register)
		api.POST("/auth/login", h.Auth.Login)
		api.GET("/auth/me", h.Auth.Me)
	}
	if h.Product != nil {
		api.POST("/products", h.Product.Create)
		api.GET("/products", h.Product.Catalog)
		api.GET("/products/:id", h.Product.Get)
		api.PATCH("/products/:id", h.Product.Update)
		api.POST("/products/:id/fulfill", h.Product.Fulfill)
		api.POST("/products/:id/photos", h.Product.UploadPhoto)
	}
	if h.Request != nil {
		api.POST("/requests", h.Request.Create)
		api.GET("/requests", h.Request.List)
		api.PATCH("/requests/:id/status", h.Request.UpdateStatus)
	}
	if h.Trip != nil {
		api.POST("/trips", h.Trip.Create)
		api.GET("/trips", h.Trip.List)
		api.GET("/trips/:id", h.Trip.Get)
		api.PATCH("/trips/:id", h.Trip.Update)
	}
	if h.Chat != nil {
		messages := api.Group("/messages")
		messages.POST("/conversations", h.Chat.CreateConversation)
		messages.GET("/conversations", h.Chat.ListConversations)
		messages.GET("/conversations/:id", h.Chat.ListMessages)
		messages.POST("/send", h.Chat.Send)
		messages.PATCH("/:id/read", h.Chat.MarkRead)
	}
	if h.Saved != nil {
		api.POST("/saved-items", h.Saved.Add)
		api.DELETE("/saved-items", h.Saved.Remove)
		api.GET("/saved-items", h.Saved.List)
	}
	if h.Order != nil {
		api.POST("/orders", h.Order.Create)
		api.GET("/orders", h.Order.List)
		api.GET("/orders/:id", h.Order.Get)
	}
	if h.Notification != nil {
		api.GET("/notifications", h.Notification.List)
		api.PATCH("/notifications/:id/read", h.Notification.MarkRead)
	}
	if h.Dashboard != nil {
		api.GET("/dashboard/stats", h.Dashboard.Stats)
	}

	return &http.Server{Addr: cfg.HTTPAddr, Handler: router}
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
