// Package analysis builds cross-document reports in two stages: every
// selected document is summarized on its own, then the summaries are
// merged into shared themes and one overall answer.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos/documents"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos/jobs"
	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/openai"
)

// TaskTypeSummary is the only analysis task type currently produced.
const TaskTypeSummary = "summary"

const (
	// docLimit caps how many documents one job may cover.
	docLimit = 20
	// defaultMaxChunksPerDoc bounds the text fed into each document summary.
	defaultMaxChunksPerDoc = 30
	// summaryInputLimit truncates a document's joined chunk text, in runes,
	// before it is summarized.
	summaryInputLimit = 6000
	// mapConcurrency bounds the per-document summarization fan-out.
	mapConcurrency = 4
	// analysisTemperature keeps summaries and merges close to the source text.
	analysisTemperature = 0.2
)

// Result is the report persisted on a completed analysis job.
type Result struct {
	DocSummaries []DocSummary `json:"doc_summaries"`
	Themes       []string     `json:"themes"`
	Answer       string       `json:"answer"`
}

// DocSummary is one document's contribution to the report.
type DocSummary struct {
	DocumentID string `json:"document_id"`
	Title      string `json:"title"`
	Summary    string `json:"summary"`
}

// EnqueueInput describes an analysis request. Zero values fall back to
// defaults: TaskType to "summary", MaxChunksPerDoc to 30, and an empty
// DocumentIDs set to the owner's newest documents.
type EnqueueInput struct {
	OwnerID         *string
	DocumentIDs     []uuid.UUID
	Question        *string
	TaskType        string
	MaxChunksPerDoc int
}

type Service interface {
	// Enqueue records a pending analysis job for the worker to pick up.
	Enqueue(ctx context.Context, in EnqueueInput) (*types.AnalysisJob, error)
	// RunClaimed executes a job already claimed by the worker and records
	// its terminal status on the job row.
	RunClaimed(ctx context.Context, job *types.AnalysisJob) error
}

type service struct {
	log *logger.Logger

	documentRepo documents.DocumentRepo
	chunkRepo    documents.DocumentChunkRepo
	jobRepo      jobs.AnalysisJobRepo

	ai openai.Client
}

func NewService(
	baseLog *logger.Logger,
	documentRepo documents.DocumentRepo,
	chunkRepo documents.DocumentChunkRepo,
	jobRepo jobs.AnalysisJobRepo,
	ai openai.Client,
) Service {
	return &service{
		log:          baseLog.With("service", "AnalysisService"),
		documentRepo: documentRepo,
		chunkRepo:    chunkRepo,
		jobRepo:      jobRepo,
		ai:           ai,
	}
}

func (s *service) Enqueue(ctx context.Context, in EnqueueInput) (*types.AnalysisJob, error) {
	taskType := strings.TrimSpace(in.TaskType)
	if taskType == "" {
		taskType = TaskTypeSummary
	}
	maxChunks := in.MaxChunksPerDoc
	if maxChunks <= 0 {
		maxChunks = defaultMaxChunksPerDoc
	}
	ids := make([]string, 0, len(in.DocumentIDs))
	for _, id := range in.DocumentIDs {
		if id != uuid.Nil {
			ids = append(ids, id.String())
		}
	}
	rawIDs, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("encode document ids: %w", err)
	}

	job := &types.AnalysisJob{
		ID:              uuid.New(),
		OwnerID:         in.OwnerID,
		TaskType:        taskType,
		DocumentIDs:     datatypes.JSON(rawIDs),
		Question:        normalizeQuestion(in.Question),
		MaxChunksPerDoc: maxChunks,
		Status:          types.JobStatusPending,
	}
	if _, err := s.jobRepo.Create(ctx, nil, job); err != nil {
		return nil, fmt.Errorf("create analysis job: %w", err)
	}
	s.log.Info("analysis job queued", "job_id", job.ID, "documents", len(ids))
	return job, nil
}

func (s *service) RunClaimed(ctx context.Context, job *types.AnalysisJob) error {
	if job == nil || job.ID == uuid.Nil {
		return errors.New("claimed analysis job required")
	}

	res, err := s.run(ctx, job)
	if err != nil {
		s.markFailed(job.ID, err)
		s.log.Error("analysis failed", "job_id", job.ID, "error", err)
		return err
	}
	if err := s.markCompleted(ctx, job.ID, res); err != nil {
		err = fmt.Errorf("record result: %w", err)
		s.markFailed(job.ID, err)
		return err
	}
	s.log.Info("analysis completed", "job_id", job.ID, "documents", len(res.DocSummaries))
	return nil
}

func (s *service) run(ctx context.Context, job *types.AnalysisJob) (*Result, error) {
	if !s.ai.Configured() {
		return nil, fmt.Errorf("%w: set AIDOC_OPENAI_API_KEY", openai.ErrNotConfigured)
	}

	docIDs, err := decodeDocumentIDs(job.DocumentIDs)
	if err != nil {
		return nil, err
	}
	docs, err := s.documentRepo.ListNewest(ctx, nil, job.OwnerID, docIDs, docLimit)
	if err != nil {
		return nil, fmt.Errorf("load documents: %w", err)
	}
	if len(docs) == 0 {
		return nil, errors.New("no documents matched the analysis request")
	}

	maxChunks := job.MaxChunksPerDoc
	if maxChunks <= 0 {
		maxChunks = defaultMaxChunksPerDoc
	}

	// Summaries land at their document's index so the merge sees the
	// documents in selection order regardless of completion order.
	summaries := make([]DocSummary, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(mapConcurrency)
	for i, doc := range docs {
		g.Go(func() error {
			summary, err := s.summarizeDocument(gctx, doc, maxChunks)
			if err != nil {
				return err
			}
			summaries[i] = DocSummary{DocumentID: doc.ID.String(), Title: doc.Title, Summary: summary}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	answer, themes, err := s.mergeSummaries(ctx, summaries, job.Question)
	if err != nil {
		return nil, err
	}
	return &Result{DocSummaries: summaries, Themes: themes, Answer: answer}, nil
}

func (s *service) summarizeDocument(ctx context.Context, doc *types.Document, maxChunks int) (string, error) {
	chunks, err := s.chunkRepo.GetByDocumentID(ctx, nil, doc.ID, maxChunks)
	if err != nil {
		return "", fmt.Errorf("load chunks for %s: %w", doc.ID, err)
	}
	parts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		parts = append(parts, chunk.Text)
	}
	text := strings.Join(parts, "\n\n")
	if runes := []rune(text); len(runes) > summaryInputLimit {
		text = string(runes[:summaryInputLimit])
	}

	prompt := fmt.Sprintf(
		"You are summarizing a document. Provide 3-6 concise bullets capturing key rules/policies.\nTitle: %s\n\nContent:\n%s\n\nBullets:",
		doc.Title, text,
	)
	temperature := analysisTemperature
	summary, err := s.ai.GenerateText(ctx, []openai.ChatMessage{{Role: "user", Content: prompt}}, &temperature)
	if err != nil {
		return "", fmt.Errorf("summarize %q: %w", doc.Title, err)
	}
	return summary, nil
}

// mergeSummaries reduces the per-document summaries into one answer.
// The returned themes are the tagged summary lines fed into the merge,
// so report readers can resolve the answer's bracketed indexes.
func (s *service) mergeSummaries(ctx context.Context, summaries []DocSummary, question *string) (string, []string, error) {
	lines := make([]string, 0, len(summaries))
	for i, ds := range summaries {
		lines = append(lines, fmt.Sprintf("[%d] %s: %s", i+1, ds.Title, ds.Summary))
	}

	var b strings.Builder
	b.WriteString("You are merging summaries from multiple documents. Identify common themes/rules across them.\n")
	b.WriteString("Return a short answer plus 4-8 themes. Keep concise and cite doc indexes in brackets when relevant.\n")
	if question != nil {
		fmt.Fprintf(&b, "Focus on answering: %s\n", *question)
	}
	b.WriteString(strings.Join(lines, "\n"))

	temperature := analysisTemperature
	answer, err := s.ai.GenerateText(ctx, []openai.ChatMessage{{Role: "user", Content: b.String()}}, &temperature)
	if err != nil {
		return "", nil, fmt.Errorf("merge summaries: %w", err)
	}
	return answer, lines, nil
}

func (s *service) markCompleted(ctx context.Context, jobID uuid.UUID, res *Result) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return s.jobRepo.UpdateFields(ctx, nil, jobID, map[string]interface{}{
		"status":      types.JobStatusCompleted,
		"result":      datatypes.JSON(raw),
		"finished_at": time.Now().UTC(),
		"error":       nil,
	})
}

// markFailed writes the terminal status on a fresh context: the run
// context may already be canceled, and the write must still land.
func (s *service) markFailed(jobID uuid.UUID, cause error) {
	err := s.jobRepo.UpdateFields(context.Background(), nil, jobID, map[string]interface{}{
		"status":      types.JobStatusFailed,
		"error":       cause.Error(),
		"finished_at": time.Now().UTC(),
	})
	if err != nil {
		s.log.Warn("analysis job failure not recorded", "job_id", jobID, "error", err)
	}
}

func normalizeQuestion(q *string) *string {
	if q == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*q)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func decodeDocumentIDs(raw datatypes.JSON) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var encoded []string
	if err := json.Unmarshal(raw, &encoded); err != nil {
		return nil, fmt.Errorf("decode document ids: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(encoded))
	for _, value := range encoded {
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, fmt.Errorf("decode document ids: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
