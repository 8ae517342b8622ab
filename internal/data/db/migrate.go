package db

import (
	"fmt"

	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Documents + extracted chunks
		// =========================
		&types.Document{},
		&types.DocumentChunk{},

		// =========================
		// Conversations + audit trail
		// =========================
		&types.Conversation{},
		&types.Message{},
		&types.QueryLog{},

		// =========================
		// Jobs / worker
		// =========================
		&types.IngestionJob{},
		&types.AnalysisJob{},
	)
}

func EnsureDocumentIndexes(db *gorm.DB) error {
	// uuid-ossp is already enabled in NewPostgresService, but safe to re-run
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return fmt.Errorf("enable uuid-ossp: %w", err)
	}

	// Fast document listing per owner.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_documents_owner_created
		ON documents (owner_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_documents_owner_created: %w", err)
	}

	// Chunks are read back in ingestion order for analysis and citation lookups.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_document_chunks_document_order
		ON document_chunks (document_id, ((meta->>'chunk_index')::int));
	`).Error; err != nil {
		return fmt.Errorf("create idx_document_chunks_document_order: %w", err)
	}

	return nil
}

func EnsureConversationIndexes(db *gorm.DB) error {
	// Fast conversation listing per owner.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_conversations_owner_updated
		ON conversations (owner_id, updated_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_conversations_owner_updated: %w", err)
	}

	// Fast message pagination per conversation.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_messages_conversation_created
		ON messages (conversation_id, created_at ASC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_messages_conversation_created: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_query_logs_owner_created
		ON query_logs (owner_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_query_logs_owner_created: %w", err)
	}

	return nil
}

func EnsureJobIndexes(db *gorm.DB) error {
	// Latest ingestion job per document.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_ingestion_jobs_document_created
		ON ingestion_jobs (document_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_ingestion_jobs_document_created: %w", err)
	}

	// Worker claim scan walks pending jobs oldest first.
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_ingestion_jobs_status_created
		ON ingestion_jobs (status, created_at ASC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_ingestion_jobs_status_created: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_analysis_jobs_status_created
		ON analysis_jobs (status, created_at ASC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_analysis_jobs_status_created: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_analysis_jobs_owner_created
		ON analysis_jobs (owner_id, created_at DESC);
	`).Error; err != nil {
		return fmt.Errorf("create idx_analysis_jobs_owner_created: %w", err)
	}

	return nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	if err := AutoMigrateAll(s.db); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	if err := EnsureDocumentIndexes(s.db); err != nil {
		s.log.Error("Document index migration failed", "error", err)
		return err
	}
	if err := EnsureConversationIndexes(s.db); err != nil {
		s.log.Error("Conversation index migration failed", "error", err)
		return err
	}
	if err := EnsureJobIndexes(s.db); err != nil {
		s.log.Error("Job index migration failed", "error", err)
		return err
	}

	return nil
}
