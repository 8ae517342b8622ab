package app

import (
	"gorm.io/gorm"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/auth"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/config"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/handlers"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

type Handlers struct {
	Ready *handlers.ReadyHandler
	Auth  *handlers.AuthHandler

	Documents     *handlers.DocumentsHandler
	Query         *handlers.QueryHandler
	Conversations *handlers.ConversationsHandler
	QueryLogs     *handlers.QueryLogsHandler

	IngestionJobs *handlers.IngestionJobsHandler
	Analysis      *handlers.AnalysisHandler
	Admin         *handlers.AdminHandler
}

func wireHandlers(
	log *logger.Logger,
	db *gorm.DB,
	cfg config.Config,
	tokens *auth.Tokens,
	reposet Repos,
	services Services,
	clients Clients,
) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Ready: handlers.NewReadyHandler(db, clients.Index, clients.Store, clients.AI),
		Auth:  handlers.NewAuthHandler(log, tokens),

		Documents:     handlers.NewDocumentsHandler(log, reposet.Document, services.Ingestion, clients.Store),
		Query:         handlers.NewQueryHandler(log, services.Retrieval),
		Conversations: handlers.NewConversationsHandler(log, db, reposet.Conversation, reposet.Message, reposet.QueryLog),
		QueryLogs:     handlers.NewQueryLogsHandler(log, reposet.QueryLog),

		IngestionJobs: handlers.NewIngestionJobsHandler(log, reposet.IngestionJob),
		Analysis:      handlers.NewAnalysisHandler(log, services.Analysis, reposet.AnalysisJob),
		Admin:         handlers.NewAdminHandler(log, cfg, services.Ingestion),
	}
}
