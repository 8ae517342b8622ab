// Package server assembles the gin engine: global middleware plus the
// public and token-guarded route groups.
package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/handlers"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/middleware"
)

type RouterConfig struct {
	ServiceName    string
	AuthMiddleware *middleware.AuthMiddleware

	ReadyHandler         *handlers.ReadyHandler
	AuthHandler          *handlers.AuthHandler
	DocumentsHandler     *handlers.DocumentsHandler
	QueryHandler         *handlers.QueryHandler
	ConversationsHandler *handlers.ConversationsHandler
	QueryLogsHandler     *handlers.QueryLogsHandler
	IngestionJobsHandler *handlers.IngestionJobsHandler
	AnalysisHandler      *handlers.AnalysisHandler
	AdminHandler         *handlers.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "aidoc"
	}
	// Server spans are no-ops until the tracer provider is installed.
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.AttachRequestContext())

	// Cors. Origins stay open because the bearer token, not the origin, is
	// the trust boundary here.
	router.Use(cors.New(cors.Config{
		AllowOriginFunc:  func(string) bool { return true },
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-User-Id", "X-Request-ID"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.GET("/ready", cfg.ReadyHandler.Ready)
	router.POST("/auth/login", cfg.AuthHandler.Login)

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())

	// Documents
	api.GET("/documents", cfg.DocumentsHandler.List)
	api.POST("/documents", cfg.DocumentsHandler.Upload)
	api.GET("/documents/:id", cfg.DocumentsHandler.GetByID)
	api.DELETE("/documents/:id", cfg.DocumentsHandler.Delete)

	// Query
	api.POST("/query", cfg.QueryHandler.Query)
	api.POST("/query/stream", cfg.QueryHandler.QueryStream)

	// Conversations
	api.GET("/conversations", cfg.ConversationsHandler.List)
	api.POST("/conversations", cfg.ConversationsHandler.Create)
	api.GET("/conversations/:id", cfg.ConversationsHandler.GetByID)
	api.GET("/conversations/:id/messages", cfg.ConversationsHandler.Messages)
	api.PATCH("/conversations/:id/title", cfg.ConversationsHandler.UpdateTitle)
	api.DELETE("/conversations/:id", cfg.ConversationsHandler.Delete)
	api.POST("/conversations/:id/query", cfg.QueryHandler.QueryConversation)

	// Query logs
	api.GET("/query_logs", cfg.QueryLogsHandler.List)

	// Ingestion jobs
	api.GET("/ingestion_jobs", cfg.IngestionJobsHandler.List)
	api.GET("/ingestion_jobs/:id", cfg.IngestionJobsHandler.GetByID)
	api.GET("/ingestion_jobs/:id/status", cfg.IngestionJobsHandler.Status)

	// Analysis
	api.POST("/analysis", cfg.AnalysisHandler.Start)
	api.GET("/analysis", cfg.AnalysisHandler.List)
	api.GET("/analysis/:id", cfg.AnalysisHandler.GetByID)

	// Admin
	api.POST("/admin/reset", cfg.AdminHandler.Reset)

	return router
}
