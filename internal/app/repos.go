package app

import (
	"gorm.io/gorm"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

type Repos struct {
	Document      repos.DocumentRepo
	DocumentChunk repos.DocumentChunkRepo
	Conversation  repos.ConversationRepo
	Message       repos.MessageRepo
	QueryLog      repos.QueryLogRepo
	IngestionJob  repos.IngestionJobRepo
	AnalysisJob   repos.AnalysisJobRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Document:      repos.NewDocumentRepo(db, log),
		DocumentChunk: repos.NewDocumentChunkRepo(db, log),
		Conversation:  repos.NewConversationRepo(db, log),
		Message:       repos.NewMessageRepo(db, log),
		QueryLog:      repos.NewQueryLogRepo(db, log),
		IngestionJob:  repos.NewIngestionJobRepo(db, log),
		AnalysisJob:   repos.NewAnalysisJobRepo(db, log),
	}
}
