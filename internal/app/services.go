package app

import (
	"gorm.io/gorm"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/analysis"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/config"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/ingestion"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/retrieval"
)

type Services struct {
	Ingestion ingestion.Service
	Retrieval retrieval.Service
	Analysis  analysis.Service
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg config.Config, reposet Repos, clients Clients) Services {
	log.Info("Wiring services...")

	// A nil *Cache must not become a non-nil QueryCache interface.
	var cache retrieval.QueryCache
	if clients.EmbedCache != nil {
		cache = clients.EmbedCache
	}

	index := instrumentIndex(clients.Index)

	return Services{
		Ingestion: ingestion.NewService(
			db, log,
			reposet.Document, reposet.DocumentChunk, reposet.IngestionJob,
			clients.Store, index, clients.AI,
			clients.Extractor, clients.Chunker,
		),
		Retrieval: retrieval.NewService(
			db, log,
			reposet.Conversation, reposet.Message, reposet.QueryLog,
			index, clients.AI, cache,
			cfg.EmbeddingModel,
		),
		Analysis: analysis.NewService(
			log,
			reposet.Document, reposet.DocumentChunk, reposet.AnalysisJob,
			clients.AI,
		),
	}
}
