package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/gopherchat/gopherchat/internal/chat"
	"github.com/gopherchat/gopherchat/internal/common"
	"github.com/gopherchat/gopherchat/internal/config"
	"github.com/gopherchat/gopherchat/internal/httpapi/handlers"
	"github.com/gopherchat/gopherchat/internal/httpapi/middleware"
	"github.com/gopherchat/gopherchat/internal/store/redisstore"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store, blobs chat.BlobStore, events chat.EventPublisher) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(cors.Default())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(db, cfg, rds, blobs, events)

	r.GET("/ping", h.Ping)
	r.Static("/uploads", cfg.UploadBasePath)

	// auth endpoints are the only rate-limited surface
	authLimit := middleware.RateLimit(rds, cfg.LoginRateLimit, time.Duration(cfg.LoginRateWindow)*time.Second)
	r.POST("/users", authLimit, h.Register)
	r.POST("/login", authLimit, h.Login)
	r.GET("/users/:id", h.GetUserByID)

	// two equivalent chat channels: the generic API and the company-scoped one
	api := r.Group("/api/v1")
	api.Use(middleware.AuthRequired(cfg.JWTSecret))
	api.GET("/me", h.Me)
	mountChatRoutes(api, h)

	company := r.Group("/api/company")
	company.Use(middleware.AuthRequired(cfg.JWTSecret))
	mountChatRoutes(company, h)

	return r
}

func mountChatRoutes(g *gin.RouterGroup, h *handlers.Handler) {
	g.POST("/conversations", h.CreateConversation)
	g.GET("/conversations", h.ListConversations)
	g.POST("/conversations/:id/read", h.MarkConversationRead)
	g.GET("/conversations/:id/messages", h.ListMessages)
	g.POST("/conversations/:id/messages", h.SendMessage)
}
