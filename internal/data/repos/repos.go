package repos

import (
	"gorm.io/gorm"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos/chat"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos/documents"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos/jobs"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

type DocumentRepo = documents.DocumentRepo
type DocumentChunkRepo = documents.DocumentChunkRepo

type ConversationRepo = chat.ConversationRepo
type MessageRepo = chat.MessageRepo
type QueryLogRepo = chat.QueryLogRepo

type IngestionJobRepo = jobs.IngestionJobRepo
type AnalysisJobRepo = jobs.AnalysisJobRepo

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return documents.NewDocumentRepo(db, baseLog)
}
func NewDocumentChunkRepo(db *gorm.DB, baseLog *logger.Logger) DocumentChunkRepo {
	return documents.NewDocumentChunkRepo(db, baseLog)
}

func NewConversationRepo(db *gorm.DB, baseLog *logger.Logger) ConversationRepo {
	return chat.NewConversationRepo(db, baseLog)
}
func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return chat.NewMessageRepo(db, baseLog)
}
func NewQueryLogRepo(db *gorm.DB, baseLog *logger.Logger) QueryLogRepo {
	return chat.NewQueryLogRepo(db, baseLog)
}

func NewIngestionJobRepo(db *gorm.DB, baseLog *logger.Logger) IngestionJobRepo {
	return jobs.NewIngestionJobRepo(db, baseLog)
}
func NewAnalysisJobRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisJobRepo {
	return jobs.NewAnalysisJobRepo(db, baseLog)
}
