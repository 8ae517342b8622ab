// Package ingestion runs the document pipeline: store the original file,
// extract and clean text, chunk, embed, and persist chunk rows alongside
// their vectors. One Ingest call is one all-or-nothing run for one document.
package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos"
	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/ingestion/chunker"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/openai"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/qdrant"
)

// embedBatchSize bounds how many chunk texts go into one embeddings request.
const embedBatchSize = 128

// TextExtractor turns a local file into cleaned segments.
type TextExtractor interface {
	Extract(ctx context.Context, path string) ([]types.Segment, error)
}

// VectorIndex is the slice of the qdrant client the pipeline uses.
type VectorIndex interface {
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, points []qdrant.Point) error
	DeleteByDocument(ctx context.Context, documentID string) error
	DropCollection(ctx context.Context) error
}

// ObjectStore is the slice of the object storage client the pipeline uses.
type ObjectStore interface {
	Upload(ctx context.Context, key string, file io.Reader) error
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	DeletePrefix(ctx context.Context, prefix string) error
}

type Service interface {
	// Ingest runs the full pipeline for one document and returns the
	// persisted document row. The job transitions running -> completed, or
	// failed with the error message recorded. A zero JobID means Ingest
	// records its own pending job first.
	Ingest(ctx context.Context, in IngestInput) (*types.Document, error)

	// Enqueue stores the original upload and records a pending job carrying
	// the upload descriptors, leaving the pipeline to the background worker.
	Enqueue(ctx context.Context, in IngestInput) (*types.IngestionJob, error)

	// IngestClaimed runs a job a worker claimed from the queue. The original
	// file is fetched from the object store.
	IngestClaimed(ctx context.Context, job *types.IngestionJob) (*types.Document, error)

	// DeleteDocument removes a document everywhere: vector points, stored
	// objects, chunk rows, job rows and the document row itself.
	DeleteDocument(ctx context.Context, documentID uuid.UUID) error

	// ReindexDocument re-embeds the stored chunk rows of one document and
	// rewrites its vector points. The relational rows are the source of
	// truth and are not touched. Returns the number of points written.
	ReindexDocument(ctx context.Context, documentID uuid.UUID) (int, error)

	// Reset wipes every table, the vector collection and the bucket
	// contents. Exposed only on dev-like environments.
	Reset(ctx context.Context) error
}

type IngestInput struct {
	DocumentID  uuid.UUID
	JobID       uuid.UUID
	Title       string
	Description *string
	OwnerID     *string

	// FileName is the original upload name; the object key is
	// "{document_id}/{file_name}".
	FileName string

	// LocalPath points at the uploaded temp file. Empty means the original
	// was already uploaded and is downloaded from the object store instead
	// (background worker path).
	LocalPath string
}

type service struct {
	db  *gorm.DB
	log *logger.Logger

	documentRepo repos.DocumentRepo
	chunkRepo    repos.DocumentChunkRepo
	jobRepo      repos.IngestionJobRepo

	store ObjectStore
	index VectorIndex
	ai    openai.Client

	extractor TextExtractor
	chunker   *chunker.Chunker
}

func NewService(
	db *gorm.DB,
	baseLog *logger.Logger,
	documentRepo repos.DocumentRepo,
	chunkRepo repos.DocumentChunkRepo,
	jobRepo repos.IngestionJobRepo,
	store ObjectStore,
	index VectorIndex,
	ai openai.Client,
	extractor TextExtractor,
	chunker *chunker.Chunker,
) Service {
	return &service{
		db:           db,
		log:          baseLog.With("service", "IngestionService"),
		documentRepo: documentRepo,
		chunkRepo:    chunkRepo,
		jobRepo:      jobRepo,
		store:        store,
		index:        index,
		ai:           ai,
		extractor:    extractor,
		chunker:      chunker,
	}
}

func (s *service) Ingest(ctx context.Context, in IngestInput) (*types.Document, error) {
	if in.DocumentID == uuid.Nil {
		return nil, fmt.Errorf("document id required")
	}
	if strings.TrimSpace(in.FileName) == "" {
		return nil, fmt.Errorf("file name required")
	}

	if in.JobID == uuid.Nil {
		job, err := s.createJob(ctx, in)
		if err != nil {
			return nil, err
		}
		in.JobID = job.ID
	}
	s.markJobRunning(ctx, in.JobID)

	doc, chunkCount, err := s.run(ctx, in)
	if err != nil {
		s.markJobFailed(in.JobID, err)
		s.log.Error("ingestion failed",
			"document_id", in.DocumentID,
			"job_id", in.JobID,
			"error", err,
		)
		return nil, err
	}

	s.markJobCompleted(ctx, in.JobID, chunkCount)
	s.log.Info("ingestion completed",
		"document_id", in.DocumentID,
		"job_id", in.JobID,
		"chunks", chunkCount,
	)
	return doc, nil
}

func (s *service) Enqueue(ctx context.Context, in IngestInput) (*types.IngestionJob, error) {
	if in.DocumentID == uuid.Nil {
		return nil, fmt.Errorf("document id required")
	}
	if strings.TrimSpace(in.FileName) == "" {
		return nil, fmt.Errorf("file name required")
	}
	if in.LocalPath == "" {
		return nil, fmt.Errorf("local path required")
	}

	// The original is stored before the job row exists, so a worker that
	// claims the job always finds its input.
	objectKey := fmt.Sprintf("%s/%s", in.DocumentID, in.FileName)
	if err := s.uploadOriginal(ctx, objectKey, in.LocalPath); err != nil {
		return nil, err
	}

	job, err := s.createJob(ctx, in)
	if err != nil {
		return nil, err
	}
	s.log.Info("ingestion queued",
		"document_id", in.DocumentID,
		"job_id", job.ID,
	)
	return job, nil
}

func (s *service) IngestClaimed(ctx context.Context, job *types.IngestionJob) (*types.Document, error) {
	if job == nil || job.ID == uuid.Nil {
		return nil, fmt.Errorf("claimed job required")
	}
	return s.Ingest(ctx, IngestInput{
		DocumentID:  job.DocumentID,
		JobID:       job.ID,
		Title:       job.Title,
		Description: job.Description,
		OwnerID:     job.OwnerID,
		FileName:    job.FileName,
	})
}

func (s *service) createJob(ctx context.Context, in IngestInput) (*types.IngestionJob, error) {
	job, err := s.jobRepo.Create(ctx, nil, &types.IngestionJob{
		DocumentID:  in.DocumentID,
		Title:       in.Title,
		Description: in.Description,
		OwnerID:     in.OwnerID,
		FileName:    in.FileName,
		Status:      types.JobStatusPending,
	})
	if err != nil {
		return nil, fmt.Errorf("create ingestion job: %w", err)
	}
	return job, nil
}

func (s *service) run(ctx context.Context, in IngestInput) (*types.Document, int, error) {
	objectKey := fmt.Sprintf("%s/%s", in.DocumentID, in.FileName)

	localPath := in.LocalPath
	if localPath == "" {
		path, cleanup, err := s.fetchOriginal(ctx, objectKey, in.FileName)
		if err != nil {
			return nil, 0, err
		}
		defer cleanup()
		localPath = path
	} else {
		if err := s.uploadOriginal(ctx, objectKey, localPath); err != nil {
			return nil, 0, err
		}
	}

	segments, err := s.extractor.Extract(ctx, localPath)
	if err != nil {
		return nil, 0, err
	}

	chunks := s.chunker.Chunk(segments)
	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return nil, 0, err
	}

	doc := &types.Document{
		ID:          in.DocumentID,
		Title:       in.Title,
		Description: in.Description,
		OwnerID:     in.OwnerID,
		StorageKey:  objectKey,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.documentRepo.Create(ctx, tx, doc); err != nil {
			return fmt.Errorf("create document row: %w", err)
		}
		return s.persistChunks(ctx, tx, doc, chunks, vectors)
	})
	if err != nil {
		return nil, 0, err
	}
	return doc, len(chunks), nil
}

// uploadOriginal stores the uploaded temp file before extraction starts so
// the original survives even when the pipeline fails.
func (s *service) uploadOriginal(ctx context.Context, key, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	if err := s.store.Upload(ctx, key, f); err != nil {
		return fmt.Errorf("store original %q: %w", key, err)
	}
	return nil
}

// fetchOriginal downloads the stored original into a temp file that keeps
// the upload's file name, because extraction dispatches on the extension.
func (s *service) fetchOriginal(ctx context.Context, key, fileName string) (string, func(), error) {
	rc, err := s.store.Download(ctx, key)
	if err != nil {
		return "", nil, fmt.Errorf("download original %q: %w", key, err)
	}
	defer rc.Close()

	dir, err := os.MkdirTemp("", "aidoc_ingest_*")
	if err != nil {
		return "", nil, fmt.Errorf("temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	path := filepath.Join(dir, filepath.Base(fileName))
	f, err := os.Create(path)
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp file: %w", err)
	}
	return path, cleanup, nil
}

func (s *service) embedChunks(ctx context.Context, chunks []types.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, types.ErrNoEmbeddings
	}
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.Text)
	}
	return s.embedTexts(ctx, texts)
}

func (s *service) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if !s.ai.Configured() {
		return nil, fmt.Errorf("%w: set AIDOC_OPENAI_API_KEY", types.ErrEmbeddingUnavailable)
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		out, err := s.ai.Embed(ctx, texts[start:end])
		if err != nil {
			if errors.Is(err, openai.ErrNotConfigured) {
				return nil, fmt.Errorf("%w: %v", types.ErrEmbeddingUnavailable, err)
			}
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		vectors = append(vectors, out...)
	}

	if len(vectors) == 0 {
		return nil, types.ErrNoEmbeddings
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: chunks=%d embeddings=%d",
			types.ErrMismatchedChunkEmbeddingCount, len(texts), len(vectors))
	}
	return vectors, nil
}

// persistChunks writes vector points and chunk rows for one document. Each
// chunk row's UUID doubles as its vector point id, so either store can look
// up the other. The upsert runs inside the relational transaction: a failed
// upsert rolls the rows back, while a failed commit can only leave orphaned
// points that DeleteByDocument reclaims.
func (s *service) persistChunks(ctx context.Context, tx *gorm.DB, doc *types.Document, chunks []types.Chunk, vectors [][]float32) error {
	if err := s.index.EnsureCollection(ctx, len(vectors[0])); err != nil {
		return fmt.Errorf("ensure vector collection: %w", err)
	}

	points := make([]qdrant.Point, 0, len(chunks))
	rows := make([]*types.DocumentChunk, 0, len(chunks))
	for i, chunk := range chunks {
		chunkID := uuid.New()
		meta := types.MetaFor(chunk)
		rawMeta, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("encode chunk meta: %w", err)
		}

		points = append(points, qdrant.Point{
			ID:     chunkID.String(),
			Vector: vectors[i],
			Payload: map[string]any{
				"document_id":    doc.ID.String(),
				"document_title": doc.Title,
				"owner_id":       doc.OwnerID,
				"chunk_id":       chunkID.String(),
				"text":           chunk.Text,
				"meta":           meta,
			},
		})
		rows = append(rows, &types.DocumentChunk{
			ID:         chunkID,
			DocumentID: doc.ID,
			Text:       chunk.Text,
			Meta:       datatypes.JSON(rawMeta),
		})
	}

	if err := s.index.Upsert(ctx, points); err != nil {
		return fmt.Errorf("upsert vectors: %w", err)
	}
	if _, err := s.chunkRepo.Create(ctx, tx, rows); err != nil {
		return fmt.Errorf("create chunk rows: %w", err)
	}
	return nil
}

func (s *service) DeleteDocument(ctx context.Context, documentID uuid.UUID) error {
	if documentID == uuid.Nil {
		return nil
	}

	if err := s.index.DeleteByDocument(ctx, documentID.String()); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	if err := s.store.DeletePrefix(ctx, documentID.String()+"/"); err != nil {
		s.log.Warn("object cleanup failed", "document_id", documentID, "error", err)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.chunkRepo.DeleteByDocument(ctx, tx, documentID); err != nil {
			return err
		}
		if err := s.jobRepo.DeleteByDocument(ctx, tx, documentID); err != nil {
			return err
		}
		return s.documentRepo.Delete(ctx, tx, documentID)
	})
	if err != nil {
		return fmt.Errorf("delete document rows: %w", err)
	}

	s.log.Info("document deleted", "document_id", documentID)
	return nil
}

func (s *service) ReindexDocument(ctx context.Context, documentID uuid.UUID) (int, error) {
	if documentID == uuid.Nil {
		return 0, fmt.Errorf("document id required")
	}
	doc, err := s.documentRepo.GetByID(ctx, nil, documentID)
	if err != nil {
		return 0, fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return 0, fmt.Errorf("document %s not found", documentID)
	}

	rows, err := s.chunkRepo.GetByDocumentID(ctx, nil, documentID, 0)
	if err != nil {
		return 0, fmt.Errorf("load chunk rows: %w", err)
	}
	if len(rows) == 0 {
		s.log.Warn("no chunk rows to reindex", "document_id", documentID)
		return 0, nil
	}

	texts := make([]string, 0, len(rows))
	for _, row := range rows {
		texts = append(texts, row.Text)
	}
	vectors, err := s.embedTexts(ctx, texts)
	if err != nil {
		return 0, err
	}

	if err := s.index.EnsureCollection(ctx, len(vectors[0])); err != nil {
		return 0, fmt.Errorf("ensure vector collection: %w", err)
	}
	// Clear first so points of chunks that no longer exist don't linger.
	if err := s.index.DeleteByDocument(ctx, documentID.String()); err != nil {
		return 0, fmt.Errorf("delete stale vectors: %w", err)
	}

	points := make([]qdrant.Point, 0, len(rows))
	for i, row := range rows {
		payload := map[string]any{
			"document_id":    doc.ID.String(),
			"document_title": doc.Title,
			"owner_id":       doc.OwnerID,
			"chunk_id":       row.ID.String(),
			"text":           row.Text,
		}
		var meta types.ChunkMeta
		if err := json.Unmarshal(row.Meta, &meta); err == nil {
			payload["meta"] = meta
		}
		points = append(points, qdrant.Point{
			ID:      row.ID.String(),
			Vector:  vectors[i],
			Payload: payload,
		})
	}
	if err := s.index.Upsert(ctx, points); err != nil {
		return 0, fmt.Errorf("upsert vectors: %w", err)
	}

	s.log.Info("document reindexed", "document_id", documentID, "chunks", len(points))
	return len(points), nil
}

func (s *service) Reset(ctx context.Context) error {
	if err := s.index.DropCollection(ctx); err != nil {
		return fmt.Errorf("drop vector collection: %w", err)
	}
	if err := s.store.DeletePrefix(ctx, ""); err != nil {
		s.log.Warn("bucket cleanup failed during reset", "error", err)
	}

	err := s.db.WithContext(ctx).Exec(
		"TRUNCATE TABLE document_chunks, documents, ingestion_jobs, analysis_jobs, messages, conversations, query_logs",
	).Error
	if err != nil {
		return fmt.Errorf("truncate tables: %w", err)
	}

	s.log.Warn("all data wiped")
	return nil
}

func (s *service) markJobRunning(ctx context.Context, jobID uuid.UUID) {
	if jobID == uuid.Nil {
		return
	}
	err := s.jobRepo.UpdateFields(ctx, nil, jobID, map[string]interface{}{
		"status":     types.JobStatusRunning,
		"started_at": time.Now().UTC(),
		"error":      nil,
	})
	if err != nil {
		s.log.Warn("mark job running failed", "job_id", jobID, "error", err)
	}
}

func (s *service) markJobCompleted(ctx context.Context, jobID uuid.UUID, chunkCount int) {
	if jobID == uuid.Nil {
		return
	}
	err := s.jobRepo.UpdateFields(ctx, nil, jobID, map[string]interface{}{
		"status":      types.JobStatusCompleted,
		"finished_at": time.Now().UTC(),
		"error":       nil,
		"chunk_count": chunkCount,
	})
	if err != nil {
		s.log.Warn("mark job completed failed", "job_id", jobID, "error", err)
	}
}

// markJobFailed records the failure with a fresh context: the run context
// may already be canceled, and the status write must still land.
func (s *service) markJobFailed(jobID uuid.UUID, cause error) {
	if jobID == uuid.Nil {
		return
	}
	msg := cause.Error()
	err := s.jobRepo.UpdateFields(context.Background(), nil, jobID, map[string]interface{}{
		"status":      types.JobStatusFailed,
		"finished_at": time.Now().UTC(),
		"error":       msg,
	})
	if err != nil {
		s.log.Warn("mark job failed failed", "job_id", jobID, "error", err)
	}
}
