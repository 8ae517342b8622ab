package app

import (
	"github.com/gin-gonic/gin"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/config"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/server"
)

func wireRouter(cfg config.Config, handlers Handlers, middleware Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		ServiceName:    cfg.AppName,
		AuthMiddleware: middleware.Auth,

		ReadyHandler: handlers.Ready,
		AuthHandler:  handlers.Auth,

		DocumentsHandler:     handlers.Documents,
		QueryHandler:         handlers.Query,
		ConversationsHandler: handlers.Conversations,
		QueryLogsHandler:     handlers.QueryLogs,

		IngestionJobsHandler: handlers.IngestionJobs,
		AnalysisHandler:      handlers.Analysis,
		AdminHandler:         handlers.Admin,
	})
}
