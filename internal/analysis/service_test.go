package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos/documents"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos/jobs"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos/testutil"
	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/openai"
)

// fakeModel answers summarization prompts with a canned line derived from
// the document title, and merge prompts with a fixed answer. Summaries run
// concurrently, so recording is mutex-guarded.
type fakeModel struct {
	mu         sync.Mutex
	configured bool
	genErr     error
	answer     string
	prompts    []string
	temps      []float64
}

func (f *fakeModel) Configured() bool { return f.configured }

func (f *fakeModel) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	return nil, errors.New("embedding not used here")
}

func (f *fakeModel) GenerateText(ctx context.Context, messages []openai.ChatMessage, temperature *float64) (string, error) {
	if !f.configured {
		return "", openai.ErrNotConfigured
	}
	if f.genErr != nil {
		return "", f.genErr
	}
	prompt := messages[len(messages)-1].Content
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	if temperature != nil {
		f.temps = append(f.temps, *temperature)
	}
	f.mu.Unlock()

	if strings.HasPrefix(prompt, "You are merging") {
		return f.answer, nil
	}
	for _, line := range strings.Split(prompt, "\n") {
		if title, ok := strings.CutPrefix(line, "Title: "); ok {
			return "bullets for " + title, nil
		}
	}
	return "bullets", nil
}

func (f *fakeModel) StreamText(ctx context.Context, messages []openai.ChatMessage, temperature *float64, onDelta func(delta string)) (string, error) {
	return "", errors.New("streaming not used here")
}

type analysisHarness struct {
	tx    *gorm.DB
	svc   Service
	model *fakeModel

	docRepo   documents.DocumentRepo
	chunkRepo documents.DocumentChunkRepo
	jobRepo   jobs.AnalysisJobRepo
}

func newAnalysisHarness(t *testing.T, db *gorm.DB) *analysisHarness {
	t.Helper()
	log := testutil.Logger(t)

	h := &analysisHarness{model: &fakeModel{configured: true, answer: "Shared themes [1][2]."}}
	if db != nil {
		h.tx = testutil.Tx(t, db)
		h.docRepo = documents.NewDocumentRepo(h.tx, log)
		h.chunkRepo = documents.NewDocumentChunkRepo(h.tx, log)
		h.jobRepo = jobs.NewAnalysisJobRepo(h.tx, log)
	}
	h.svc = NewService(log, h.docRepo, h.chunkRepo, h.jobRepo, h.model)
	return h
}

func (h *analysisHarness) seedDocument(t *testing.T, title string, ownerID *string, createdAt time.Time, texts ...string) *types.Document {
	t.Helper()
	doc := &types.Document{
		ID:         uuid.New(),
		Title:      title,
		OwnerID:    ownerID,
		StorageKey: "k/" + uuid.NewString(),
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	if _, err := h.docRepo.Create(context.Background(), nil, doc); err != nil {
		t.Fatalf("seed document %q: %v", title, err)
	}
	if len(texts) == 0 {
		return doc
	}
	rows := make([]*types.DocumentChunk, 0, len(texts))
	for i, text := range texts {
		raw, err := json.Marshal(types.ChunkMeta{ChunkIndex: i, StartToken: i * 10, EndToken: i*10 + 10})
		if err != nil {
			t.Fatalf("seed chunk meta: %v", err)
		}
		rows = append(rows, &types.DocumentChunk{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			Text:       text,
			Meta:       datatypes.JSON(raw),
		})
	}
	if _, err := h.chunkRepo.Create(context.Background(), nil, rows); err != nil {
		t.Fatalf("seed chunks for %q: %v", title, err)
	}
	return doc
}

func (h *analysisHarness) claim(t *testing.T) *types.AnalysisJob {
	t.Helper()
	job, err := h.jobRepo.ClaimNextPending(context.Background(), nil)
	if err != nil {
		t.Fatalf("ClaimNextPending: %v", err)
	}
	if job == nil {
		t.Fatalf("ClaimNextPending: expected a claimable job")
	}
	return job
}

func (h *analysisHarness) storedJob(t *testing.T, id uuid.UUID) *types.AnalysisJob {
	t.Helper()
	job, err := h.jobRepo.GetByID(context.Background(), nil, id)
	if err != nil || job == nil {
		t.Fatalf("GetByID %s: %+v, %v", id, job, err)
	}
	return job
}

func TestEnqueueDefaults(t *testing.T) {
	db := testutil.DB(t)
	h := newAnalysisHarness(t, db)
	ctx := context.Background()

	blank := "   "
	job, err := h.svc.Enqueue(ctx, EnqueueInput{Question: &blank})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.TaskType != TaskTypeSummary {
		t.Fatalf("TaskType = %q, want %q", job.TaskType, TaskTypeSummary)
	}
	if job.MaxChunksPerDoc != defaultMaxChunksPerDoc {
		t.Fatalf("MaxChunksPerDoc = %d, want %d", job.MaxChunksPerDoc, defaultMaxChunksPerDoc)
	}
	if job.Question != nil {
		t.Fatalf("Question = %v, want nil for blank input", *job.Question)
	}
	if job.Status != types.JobStatusPending {
		t.Fatalf("Status = %q, want %q", job.Status, types.JobStatusPending)
	}

	stored := h.storedJob(t, job.ID)
	var ids []string
	if err := json.Unmarshal(stored.DocumentIDs, &ids); err != nil {
		t.Fatalf("decode stored document ids: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("stored document ids = %v, want empty", ids)
	}
}

func TestAnalysisRunBuildsReport(t *testing.T) {
	db := testutil.DB(t)
	h := newAnalysisHarness(t, db)
	ctx := context.Background()

	owner := "owner-" + uuid.NewString()
	now := time.Now().UTC()
	older := h.seedDocument(t, "Employee Handbook", &owner, now.Add(-2*time.Hour),
		"Vacation carries over.", "Overtime needs approval.")
	newer := h.seedDocument(t, "Lease Agreement", &owner, now.Add(-time.Hour),
		"Tenant pays utilities.")

	question := "What rules repeat across documents?"
	job, err := h.svc.Enqueue(ctx, EnqueueInput{
		OwnerID:     &owner,
		DocumentIDs: []uuid.UUID{older.ID, newer.ID},
		Question:    &question,
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	claimed := h.claim(t)
	if claimed.ID != job.ID {
		t.Fatalf("claimed job %s, want %s", claimed.ID, job.ID)
	}
	if claimed.Status != types.JobStatusRunning || claimed.StartedAt == nil {
		t.Fatalf("claimed job not marked running: %+v", claimed)
	}

	if err := h.svc.RunClaimed(ctx, claimed); err != nil {
		t.Fatalf("RunClaimed: %v", err)
	}

	stored := h.storedJob(t, job.ID)
	if stored.Status != types.JobStatusCompleted {
		t.Fatalf("Status = %q, want %q (error: %v)", stored.Status, types.JobStatusCompleted, stored.Error)
	}
	if stored.FinishedAt == nil {
		t.Fatalf("FinishedAt not set on completed job")
	}
	if stored.Error != nil {
		t.Fatalf("Error = %q, want nil", *stored.Error)
	}

	var res Result
	if err := json.Unmarshal(stored.Result, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(res.DocSummaries) != 2 {
		t.Fatalf("doc summaries = %d, want 2", len(res.DocSummaries))
	}
	// Selection is newest first.
	if res.DocSummaries[0].DocumentID != newer.ID.String() || res.DocSummaries[1].DocumentID != older.ID.String() {
		t.Fatalf("summary order = %s, %s; want newest first", res.DocSummaries[0].DocumentID, res.DocSummaries[1].DocumentID)
	}
	if res.DocSummaries[0].Summary != "bullets for Lease Agreement" {
		t.Fatalf("summary[0] = %q", res.DocSummaries[0].Summary)
	}
	if res.Answer != "Shared themes [1][2]." {
		t.Fatalf("answer = %q", res.Answer)
	}
	wantThemes := []string{
		"[1] Lease Agreement: bullets for Lease Agreement",
		"[2] Employee Handbook: bullets for Employee Handbook",
	}
	if len(res.Themes) != 2 || res.Themes[0] != wantThemes[0] || res.Themes[1] != wantThemes[1] {
		t.Fatalf("themes = %v, want %v", res.Themes, wantThemes)
	}

	// Two summary calls, then the merge.
	if len(h.model.prompts) != 3 {
		t.Fatalf("model calls = %d, want 3", len(h.model.prompts))
	}
	merge := h.model.prompts[2]
	if !strings.HasPrefix(merge, "You are merging summaries from multiple documents. Identify common themes/rules across them.\nReturn a short answer plus 4-8 themes. Keep concise and cite doc indexes in brackets when relevant.\nFocus on answering: "+question+"\n") {
		t.Fatalf("merge prompt header wrong:\n%s", merge)
	}
	if !strings.Contains(merge, wantThemes[0]+"\n"+wantThemes[1]) {
		t.Fatalf("merge prompt missing tagged summaries:\n%s", merge)
	}

	foundHandbook := false
	for _, prompt := range h.model.prompts[:2] {
		if !strings.Contains(prompt, "Title: Employee Handbook") {
			continue
		}
		foundHandbook = true
		if !strings.Contains(prompt, "Vacation carries over.\n\nOvertime needs approval.") {
			t.Fatalf("summary prompt missing joined chunk text:\n%s", prompt)
		}
		if !strings.HasSuffix(prompt, "\n\nBullets:") {
			t.Fatalf("summary prompt missing bullets suffix:\n%s", prompt)
		}
	}
	if !foundHandbook {
		t.Fatalf("no summary prompt for Employee Handbook: %v", h.model.prompts)
	}

	if len(h.model.temps) != 3 {
		t.Fatalf("temperatures recorded = %d, want 3", len(h.model.temps))
	}
	for _, temp := range h.model.temps {
		if temp != analysisTemperature {
			t.Fatalf("temperature = %v, want %v", temp, analysisTemperature)
		}
	}
}

func TestAnalysisRunSkipsForeignDocuments(t *testing.T) {
	db := testutil.DB(t)
	h := newAnalysisHarness(t, db)
	ctx := context.Background()

	owner := "owner-" + uuid.NewString()
	other := "owner-" + uuid.NewString()
	now := time.Now().UTC()
	mine := h.seedDocument(t, "Mine", &owner, now.Add(-time.Hour), "my text")
	theirs := h.seedDocument(t, "Theirs", &other, now, "their text")

	job, err := h.svc.Enqueue(ctx, EnqueueInput{
		OwnerID:     &owner,
		DocumentIDs: []uuid.UUID{mine.ID, theirs.ID},
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := h.svc.RunClaimed(ctx, h.claim(t)); err != nil {
		t.Fatalf("RunClaimed: %v", err)
	}

	var res Result
	if err := json.Unmarshal(h.storedJob(t, job.ID).Result, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(res.DocSummaries) != 1 || res.DocSummaries[0].DocumentID != mine.ID.String() {
		t.Fatalf("doc summaries = %+v, want only the owner's document", res.DocSummaries)
	}
	if len(res.Themes) != 1 {
		t.Fatalf("themes = %v, want one entry", res.Themes)
	}
}

func TestAnalysisRunChunkBudget(t *testing.T) {
	db := testutil.DB(t)
	h := newAnalysisHarness(t, db)
	ctx := context.Background()

	owner := "owner-" + uuid.NewString()
	doc := h.seedDocument(t, "Budgeted", &owner, time.Now().UTC(), "first", "second", "third")

	job, err := h.svc.Enqueue(ctx, EnqueueInput{
		OwnerID:         &owner,
		DocumentIDs:     []uuid.UUID{doc.ID},
		MaxChunksPerDoc: 2,
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.MaxChunksPerDoc != 2 {
		t.Fatalf("MaxChunksPerDoc = %d, want 2", job.MaxChunksPerDoc)
	}
	if err := h.svc.RunClaimed(ctx, h.claim(t)); err != nil {
		t.Fatalf("RunClaimed: %v", err)
	}

	summary := h.model.prompts[0]
	if !strings.Contains(summary, "first\n\nsecond") {
		t.Fatalf("summary prompt missing budgeted chunks:\n%s", summary)
	}
	if strings.Contains(summary, "third") {
		t.Fatalf("summary prompt includes chunk beyond budget:\n%s", summary)
	}
}

func TestAnalysisRunTruncatesLongDocument(t *testing.T) {
	db := testutil.DB(t)
	h := newAnalysisHarness(t, db)
	ctx := context.Background()

	owner := "owner-" + uuid.NewString()
	long := strings.Repeat("a", summaryInputLimit)
	doc := h.seedDocument(t, "Long", &owner, time.Now().UTC(), long, "XYZ")

	if _, err := h.svc.Enqueue(ctx, EnqueueInput{OwnerID: &owner, DocumentIDs: []uuid.UUID{doc.ID}}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := h.svc.RunClaimed(ctx, h.claim(t)); err != nil {
		t.Fatalf("RunClaimed: %v", err)
	}

	summary := h.model.prompts[0]
	if !strings.Contains(summary, long+"\n\nBullets:") {
		t.Fatalf("summary prompt not truncated at the input limit")
	}
	if strings.Contains(summary, "XYZ") {
		t.Fatalf("summary prompt includes text beyond the input limit")
	}
}

func TestAnalysisRunNoDocumentsFails(t *testing.T) {
	db := testutil.DB(t)
	h := newAnalysisHarness(t, db)
	ctx := context.Background()

	owner := "owner-" + uuid.NewString()
	job, err := h.svc.Enqueue(ctx, EnqueueInput{
		OwnerID:     &owner,
		DocumentIDs: []uuid.UUID{uuid.New()},
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := h.svc.RunClaimed(ctx, h.claim(t)); err == nil {
		t.Fatalf("RunClaimed: expected error for empty selection")
	}

	stored := h.storedJob(t, job.ID)
	if stored.Status != types.JobStatusFailed {
		t.Fatalf("Status = %q, want %q", stored.Status, types.JobStatusFailed)
	}
	if stored.Error == nil || !strings.Contains(*stored.Error, "no documents") {
		t.Fatalf("Error = %v, want selection failure", stored.Error)
	}
	if stored.FinishedAt == nil {
		t.Fatalf("FinishedAt not set on failed job")
	}
	if len(h.model.prompts) != 0 {
		t.Fatalf("model called %d times, want 0", len(h.model.prompts))
	}
}

func TestAnalysisRunModelFailureMarksJobFailed(t *testing.T) {
	db := testutil.DB(t)
	h := newAnalysisHarness(t, db)
	ctx := context.Background()

	owner := "owner-" + uuid.NewString()
	doc := h.seedDocument(t, "Doc", &owner, time.Now().UTC(), "text")
	h.model.genErr = errors.New("rate limited")

	job, err := h.svc.Enqueue(ctx, EnqueueInput{OwnerID: &owner, DocumentIDs: []uuid.UUID{doc.ID}})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := h.svc.RunClaimed(ctx, h.claim(t)); err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("RunClaimed error = %v, want model failure", err)
	}

	stored := h.storedJob(t, job.ID)
	if stored.Status != types.JobStatusFailed {
		t.Fatalf("Status = %q, want %q", stored.Status, types.JobStatusFailed)
	}
	if stored.Error == nil || !strings.Contains(*stored.Error, "rate limited") {
		t.Fatalf("Error = %v, want model failure recorded", stored.Error)
	}
}

func TestAnalysisRunNotConfigured(t *testing.T) {
	db := testutil.DB(t)
	h := newAnalysisHarness(t, db)
	ctx := context.Background()

	owner := "owner-" + uuid.NewString()
	doc := h.seedDocument(t, "Doc", &owner, time.Now().UTC(), "text")
	h.model.configured = false

	job, err := h.svc.Enqueue(ctx, EnqueueInput{OwnerID: &owner, DocumentIDs: []uuid.UUID{doc.ID}})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	err = h.svc.RunClaimed(ctx, h.claim(t))
	if !errors.Is(err, openai.ErrNotConfigured) {
		t.Fatalf("RunClaimed error = %v, want ErrNotConfigured", err)
	}
	if h.storedJob(t, job.ID).Status != types.JobStatusFailed {
		t.Fatalf("job not marked failed")
	}
}

func TestRunClaimedRequiresJob(t *testing.T) {
	h := newAnalysisHarness(t, nil)
	if err := h.svc.RunClaimed(context.Background(), nil); err == nil {
		t.Fatalf("RunClaimed(nil): expected error")
	}
	if err := h.svc.RunClaimed(context.Background(), &types.AnalysisJob{}); err == nil {
		t.Fatalf("RunClaimed(zero id): expected error")
	}
}

func TestDecodeDocumentIDs(t *testing.T) {
	if ids, err := decodeDocumentIDs(nil); err != nil || len(ids) != 0 {
		t.Fatalf("decode nil: %v, %v", ids, err)
	}
	if ids, err := decodeDocumentIDs(datatypes.JSON("null")); err != nil || len(ids) != 0 {
		t.Fatalf("decode null: %v, %v", ids, err)
	}

	id := uuid.New()
	raw, err := json.Marshal([]string{id.String()})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ids, err := decodeDocumentIDs(datatypes.JSON(raw))
	if err != nil || len(ids) != 1 || ids[0] != id {
		t.Fatalf("decode ids = %v, %v; want [%s]", ids, err, id)
	}

	if _, err := decodeDocumentIDs(datatypes.JSON(`["not-a-uuid"]`)); err == nil {
		t.Fatalf("decode invalid id: expected error")
	}
}
