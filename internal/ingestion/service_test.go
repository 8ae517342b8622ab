package ingestion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos/testutil"
	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/ingestion/chunker"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/openai"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/qdrant"
)

// splitTokenizer treats each whitespace-separated word as one token so the
// tests control chunk boundaries without loading a BPE vocabulary.
type splitTokenizer struct {
	ids   map[string]int
	words []string
}

func newSplitTokenizer() *splitTokenizer { return &splitTokenizer{ids: map[string]int{}} }

func (t *splitTokenizer) Encode(text string) []int {
	var out []int
	for _, w := range strings.Fields(text) {
		id, ok := t.ids[w]
		if !ok {
			id = len(t.words)
			t.ids[w] = id
			t.words = append(t.words, w)
		}
		out = append(out, id)
	}
	return out
}

func (t *splitTokenizer) Decode(tokens []int) string {
	parts := make([]string, 0, len(tokens))
	for _, id := range tokens {
		parts = append(parts, t.words[id])
	}
	return strings.Join(parts, " ")
}

type fakeStore struct {
	objects  map[string][]byte
	prefixes []string
}

func newFakeStore() *fakeStore { return &fakeStore{objects: map[string][]byte{}} }

func (f *fakeStore) Upload(_ context.Context, key string, file io.Reader) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, fmt.Errorf("no object %q", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeStore) DeletePrefix(_ context.Context, prefix string) error {
	f.prefixes = append(f.prefixes, prefix)
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			delete(f.objects, key)
		}
	}
	return nil
}

type fakeIndex struct {
	dims        []int
	points      []qdrant.Point
	deletedDocs []string
	dropped     int
	upsertErr   error
}

func (f *fakeIndex) EnsureCollection(_ context.Context, dim int) error {
	f.dims = append(f.dims, dim)
	return nil
}

func (f *fakeIndex) Upsert(_ context.Context, points []qdrant.Point) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.points = append(f.points, points...)
	return nil
}

func (f *fakeIndex) DeleteByDocument(_ context.Context, documentID string) error {
	f.deletedDocs = append(f.deletedDocs, documentID)
	return nil
}

func (f *fakeIndex) DropCollection(_ context.Context) error {
	f.dropped++
	return nil
}

// fakeAI embeds every input as a fixed 3-dim vector. When short is set it
// drops the last vector of each batch to provoke the count mismatch path.
type fakeAI struct {
	configured bool
	short      bool
	embedCalls [][]string
}

func (f *fakeAI) Configured() bool { return f.configured }

func (f *fakeAI) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	if !f.configured {
		return nil, openai.ErrNotConfigured
	}
	f.embedCalls = append(f.embedCalls, inputs)
	out := make([][]float32, 0, len(inputs))
	for _, in := range inputs {
		out = append(out, []float32{float32(len(in)), 1, 0})
	}
	if f.short && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (f *fakeAI) GenerateText(context.Context, []openai.ChatMessage, *float64) (string, error) {
	return "", openai.ErrNotConfigured
}

func (f *fakeAI) StreamText(context.Context, []openai.ChatMessage, *float64, func(string)) (string, error) {
	return "", openai.ErrNotConfigured
}

type fakeExtractor struct {
	segments []types.Segment
	err      error
	paths    []string
	contents []string
}

func (f *fakeExtractor) Extract(_ context.Context, path string) ([]types.Segment, error) {
	f.paths = append(f.paths, path)
	if data, err := os.ReadFile(path); err == nil {
		f.contents = append(f.contents, string(data))
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.segments, nil
}

type harness struct {
	svc       Service
	store     *fakeStore
	index     *fakeIndex
	ai        *fakeAI
	extractor *fakeExtractor

	docs   repos.DocumentRepo
	chunks repos.DocumentChunkRepo
	jobs   repos.IngestionJobRepo
}

// newHarness wires the service against fakes for every external system and
// the given db handle for the relational side. Chunk windows are five tokens
// with one token of overlap so fixtures stay small.
func newHarness(t *testing.T, db *gorm.DB) *harness {
	t.Helper()
	log := testutil.Logger(t)
	h := &harness{
		store:     newFakeStore(),
		index:     &fakeIndex{},
		ai:        &fakeAI{configured: true},
		extractor: &fakeExtractor{},
	}
	h.docs = repos.NewDocumentRepo(db, log)
	h.chunks = repos.NewDocumentChunkRepo(db, log)
	h.jobs = repos.NewIngestionJobRepo(db, log)
	h.svc = NewService(
		db,
		log,
		h.docs,
		h.chunks,
		h.jobs,
		h.store,
		h.index,
		h.ai,
		h.extractor,
		chunker.New(newSplitTokenizer(), 5, 1),
	)
	return h
}

func writeTempUpload(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write upload: %v", err)
	}
	return path
}

func TestIngestPipeline(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	h := newHarness(t, tx)
	ctx := context.Background()

	page := 3
	h.extractor.segments = []types.Segment{
		{Text: "alpha beta gamma delta epsilon zeta eta", Page: &page},
	}

	docID := uuid.New()
	owner := "owner-" + uuid.NewString()
	job, err := h.jobs.Create(ctx, nil, &types.IngestionJob{
		ID:         uuid.New(),
		DocumentID: docID,
		Title:      "Quarterly Report",
		OwnerID:    &owner,
		FileName:   "report.txt",
	})
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}

	doc, err := h.svc.Ingest(ctx, IngestInput{
		DocumentID: docID,
		JobID:      job.ID,
		Title:      "Quarterly Report",
		OwnerID:    &owner,
		FileName:   "report.txt",
		LocalPath:  writeTempUpload(t, "report.txt", "raw upload bytes"),
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	wantKey := docID.String() + "/report.txt"
	if doc.StorageKey != wantKey {
		t.Fatalf("storage key = %q, want %q", doc.StorageKey, wantKey)
	}
	if got := string(h.store.objects[wantKey]); got != "raw upload bytes" {
		t.Fatalf("stored original = %q", got)
	}

	// Seven words at window 5 / overlap 1 give [0,5) and [4,7).
	wantTexts := []string{
		"alpha beta gamma delta epsilon",
		"epsilon zeta eta",
	}
	if len(h.index.points) != len(wantTexts) {
		t.Fatalf("upserted %d points, want %d", len(h.index.points), len(wantTexts))
	}
	if len(h.index.dims) != 1 || h.index.dims[0] != 3 {
		t.Fatalf("collection dims = %v, want [3]", h.index.dims)
	}
	for i, p := range h.index.points {
		if p.Payload["document_id"] != docID.String() {
			t.Fatalf("point %d document_id = %v", i, p.Payload["document_id"])
		}
		if p.Payload["document_title"] != "Quarterly Report" {
			t.Fatalf("point %d document_title = %v", i, p.Payload["document_title"])
		}
		if p.Payload["chunk_id"] != p.ID {
			t.Fatalf("point %d chunk_id = %v, id = %v", i, p.Payload["chunk_id"], p.ID)
		}
		if p.Payload["text"] != wantTexts[i] {
			t.Fatalf("point %d text = %q, want %q", i, p.Payload["text"], wantTexts[i])
		}
	}

	rows, err := h.chunks.GetByDocumentID(ctx, nil, docID, 0)
	if err != nil {
		t.Fatalf("load chunk rows: %v", err)
	}
	if len(rows) != len(wantTexts) {
		t.Fatalf("got %d chunk rows, want %d", len(rows), len(wantTexts))
	}
	for i, row := range rows {
		if row.Text != wantTexts[i] {
			t.Fatalf("row %d text = %q, want %q", i, row.Text, wantTexts[i])
		}
		if row.ID.String() != h.index.points[i].ID {
			t.Fatalf("row %d id %s does not match point id %s", i, row.ID, h.index.points[i].ID)
		}
		var meta types.ChunkMeta
		if err := json.Unmarshal(row.Meta, &meta); err != nil {
			t.Fatalf("row %d meta: %v", i, err)
		}
		if meta.ChunkIndex != i {
			t.Fatalf("row %d meta chunk_index = %d", i, meta.ChunkIndex)
		}
		if meta.Page == nil || *meta.Page != page {
			t.Fatalf("row %d meta page = %v, want %d", i, meta.Page, page)
		}
	}

	got, err := h.jobs.GetByID(ctx, nil, job.ID)
	if err != nil || got == nil {
		t.Fatalf("reload job: %v, %v", got, err)
	}
	if got.Status != types.JobStatusCompleted {
		t.Fatalf("job status = %q, want completed", got.Status)
	}
	if got.ChunkCount == nil || *got.ChunkCount != 2 {
		t.Fatalf("job chunk_count = %v, want 2", got.ChunkCount)
	}
	if got.FinishedAt == nil {
		t.Fatal("job finished_at not set")
	}
	if got.Error != nil {
		t.Fatalf("job error = %q, want nil", *got.Error)
	}
}

func TestEnqueueThenClaimRunsPipeline(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	h := newHarness(t, tx)
	ctx := context.Background()

	h.extractor.segments = []types.Segment{{Text: "one two three"}}

	docID := uuid.New()
	owner := "owner-" + uuid.NewString()
	queued, err := h.svc.Enqueue(ctx, IngestInput{
		DocumentID: docID,
		Title:      "Notes",
		OwnerID:    &owner,
		FileName:   "notes.txt",
		LocalPath:  writeTempUpload(t, "notes.txt", "stored original"),
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if queued.Status != types.JobStatusPending {
		t.Fatalf("queued status = %q, want pending", queued.Status)
	}
	if queued.Title != "Notes" || queued.FileName != "notes.txt" {
		t.Fatalf("queued descriptors = %q/%q", queued.Title, queued.FileName)
	}
	if got := string(h.store.objects[docID.String()+"/notes.txt"]); got != "stored original" {
		t.Fatalf("stored original = %q", got)
	}

	job, err := h.jobs.ClaimNextPending(ctx, nil)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if job == nil {
		t.Fatal("no job claimed")
	}
	if job.ID != queued.ID {
		t.Fatalf("claimed job %s, want %s", job.ID, queued.ID)
	}

	doc, err := h.svc.IngestClaimed(ctx, job)
	if err != nil {
		t.Fatalf("IngestClaimed: %v", err)
	}
	if doc.ID != docID {
		t.Fatalf("document id = %s, want %s", doc.ID, docID)
	}
	if doc.OwnerID == nil || *doc.OwnerID != owner {
		t.Fatalf("document owner = %v, want %s", doc.OwnerID, owner)
	}

	if len(h.extractor.paths) != 1 {
		t.Fatalf("extractor ran %d times", len(h.extractor.paths))
	}
	if base := filepath.Base(h.extractor.paths[0]); base != "notes.txt" {
		t.Fatalf("extracted file name = %q, want notes.txt", base)
	}
	if len(h.extractor.contents) != 1 || h.extractor.contents[0] != "stored original" {
		t.Fatalf("extractor saw contents %q", h.extractor.contents)
	}

	got, err := h.jobs.GetByID(ctx, nil, job.ID)
	if err != nil || got == nil {
		t.Fatalf("reload job: %v, %v", got, err)
	}
	if got.Status != types.JobStatusCompleted {
		t.Fatalf("job status = %q, want completed", got.Status)
	}
}

func TestEnqueueValidation(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	if _, err := h.svc.Enqueue(ctx, IngestInput{Title: "Doc", FileName: "d.txt", LocalPath: "/tmp/x"}); err == nil {
		t.Fatal("missing document id accepted")
	}
	if _, err := h.svc.Enqueue(ctx, IngestInput{DocumentID: uuid.New(), Title: "Doc", LocalPath: "/tmp/x"}); err == nil {
		t.Fatal("missing file name accepted")
	}
	if _, err := h.svc.Enqueue(ctx, IngestInput{DocumentID: uuid.New(), Title: "Doc", FileName: "d.txt"}); err == nil {
		t.Fatal("missing local path accepted")
	}
}

func TestIngestEmbeddingUnavailableMarksJobFailed(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	h := newHarness(t, tx)
	ctx := context.Background()

	h.ai.configured = false
	h.extractor.segments = []types.Segment{{Text: "some extracted words"}}

	docID := uuid.New()
	job, err := h.jobs.Create(ctx, nil, &types.IngestionJob{
		ID:         uuid.New(),
		DocumentID: docID,
		Title:      "Doc",
		FileName:   "doc.txt",
	})
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}

	_, err = h.svc.Ingest(ctx, IngestInput{
		DocumentID: docID,
		JobID:      job.ID,
		Title:      "Doc",
		FileName:   "doc.txt",
		LocalPath:  writeTempUpload(t, "doc.txt", "body"),
	})
	if !errors.Is(err, types.ErrEmbeddingUnavailable) {
		t.Fatalf("err = %v, want ErrEmbeddingUnavailable", err)
	}

	// The original is stored before embedding runs, so a retry can skip
	// the upload.
	if _, ok := h.store.objects[docID.String()+"/doc.txt"]; !ok {
		t.Fatal("original not stored before failure")
	}

	got, err := h.jobs.GetByID(ctx, nil, job.ID)
	if err != nil || got == nil {
		t.Fatalf("reload job: %v, %v", got, err)
	}
	if got.Status != types.JobStatusFailed {
		t.Fatalf("job status = %q, want failed", got.Status)
	}
	if got.Error == nil || !strings.Contains(*got.Error, "embedding") {
		t.Fatalf("job error = %v", got.Error)
	}
	if got.FinishedAt == nil {
		t.Fatal("job finished_at not set on failure")
	}
}

func TestIngestUpsertFailureRollsBack(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	h := newHarness(t, tx)
	ctx := context.Background()

	h.index.upsertErr = errors.New("vector store down")
	h.extractor.segments = []types.Segment{{Text: "alpha beta gamma"}}

	docID := uuid.New()
	_, err := h.svc.Ingest(ctx, IngestInput{
		DocumentID: docID,
		Title:      "Doc",
		FileName:   "doc.txt",
		LocalPath:  writeTempUpload(t, "doc.txt", "body"),
	})
	if err == nil || !strings.Contains(err.Error(), "upsert vectors") {
		t.Fatalf("err = %v, want upsert failure", err)
	}

	doc, err := h.docs.GetByID(ctx, nil, docID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc != nil {
		t.Fatal("document row survived a failed vector upsert")
	}
	rows, err := h.chunks.GetByDocumentID(ctx, nil, docID, 0)
	if err != nil {
		t.Fatalf("load chunk rows: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("%d chunk rows survived rollback", len(rows))
	}
}

func TestIngestNoChunks(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	h := newHarness(t, tx)
	ctx := context.Background()

	h.extractor.segments = []types.Segment{{Text: "   "}}

	docID := uuid.New()
	_, err := h.svc.Ingest(ctx, IngestInput{
		DocumentID: docID,
		Title:      "Blank",
		FileName:   "blank.txt",
		LocalPath:  writeTempUpload(t, "blank.txt", "   "),
	})
	if !errors.Is(err, types.ErrNoEmbeddings) {
		t.Fatalf("err = %v, want ErrNoEmbeddings", err)
	}

	// A sync run without a pre-created job records its own, so the failure
	// still shows up in the job history.
	job, jerr := h.jobs.GetLatestByDocument(ctx, nil, docID)
	if jerr != nil || job == nil {
		t.Fatalf("load job: %v, %v", job, jerr)
	}
	if job.Status != types.JobStatusFailed {
		t.Fatalf("job status = %q, want failed", job.Status)
	}
}

func TestIngestMismatchedEmbeddingCount(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	h := newHarness(t, tx)
	ctx := context.Background()

	h.ai.short = true
	h.extractor.segments = []types.Segment{
		{Text: "alpha beta gamma delta epsilon zeta eta"},
	}

	_, err := h.svc.Ingest(ctx, IngestInput{
		DocumentID: uuid.New(),
		Title:      "Doc",
		FileName:   "doc.txt",
		LocalPath:  writeTempUpload(t, "doc.txt", "body"),
	})
	if !errors.Is(err, types.ErrMismatchedChunkEmbeddingCount) {
		t.Fatalf("err = %v, want ErrMismatchedChunkEmbeddingCount", err)
	}
}

func TestEmbedChunksBatches(t *testing.T) {
	fake := &fakeAI{configured: true}
	s := &service{ai: fake}

	chunks := make([]types.Chunk, 300)
	for i := range chunks {
		chunks[i] = types.Chunk{Index: i, Text: fmt.Sprintf("chunk %d", i)}
	}

	vectors, err := s.embedChunks(context.Background(), chunks)
	if err != nil {
		t.Fatalf("embedChunks: %v", err)
	}
	if len(vectors) != len(chunks) {
		t.Fatalf("got %d vectors, want %d", len(vectors), len(chunks))
	}

	wantBatches := []int{128, 128, 44}
	if len(fake.embedCalls) != len(wantBatches) {
		t.Fatalf("made %d embed calls, want %d", len(fake.embedCalls), len(wantBatches))
	}
	for i, call := range fake.embedCalls {
		if len(call) != wantBatches[i] {
			t.Fatalf("batch %d size = %d, want %d", i, len(call), wantBatches[i])
		}
	}
}

func TestDeleteDocumentRemovesEverything(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	h := newHarness(t, tx)
	ctx := context.Background()

	h.extractor.segments = []types.Segment{{Text: "alpha beta gamma"}}

	docID := uuid.New()
	job, err := h.jobs.Create(ctx, nil, &types.IngestionJob{
		ID:         uuid.New(),
		DocumentID: docID,
		Title:      "Doc",
		FileName:   "doc.txt",
	})
	if err != nil {
		t.Fatalf("seed job: %v", err)
	}
	if _, err := h.svc.Ingest(ctx, IngestInput{
		DocumentID: docID,
		JobID:      job.ID,
		Title:      "Doc",
		FileName:   "doc.txt",
		LocalPath:  writeTempUpload(t, "doc.txt", "body"),
	}); err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if err := h.svc.DeleteDocument(ctx, docID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	if len(h.index.deletedDocs) != 1 || h.index.deletedDocs[0] != docID.String() {
		t.Fatalf("index deletions = %v", h.index.deletedDocs)
	}
	if len(h.store.objects) != 0 {
		t.Fatalf("objects left in store: %v", h.store.objects)
	}

	doc, err := h.docs.GetByID(ctx, nil, docID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if doc != nil {
		t.Fatal("document row still present")
	}
	rows, err := h.chunks.GetByDocumentID(ctx, nil, docID, 0)
	if err != nil {
		t.Fatalf("load chunk rows: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("%d chunk rows still present", len(rows))
	}
	jobRow, err := h.jobs.GetByID(ctx, nil, job.ID)
	if err != nil {
		t.Fatalf("reload job: %v", err)
	}
	if jobRow != nil {
		t.Fatal("job row still present")
	}
}

func TestResetWipesState(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	h := newHarness(t, tx)
	ctx := context.Background()

	if _, err := h.docs.Create(ctx, nil, &types.Document{
		ID:         uuid.New(),
		Title:      "Doc",
		StorageKey: "k/doc.txt",
	}); err != nil {
		t.Fatalf("seed document: %v", err)
	}
	h.store.objects["k/doc.txt"] = []byte("body")

	if err := h.svc.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if h.index.dropped != 1 {
		t.Fatalf("collection dropped %d times, want 1", h.index.dropped)
	}
	if len(h.store.objects) != 0 {
		t.Fatalf("objects left in store: %v", h.store.objects)
	}

	var count int64
	if err := tx.Model(&types.Document{}).Count(&count).Error; err != nil {
		t.Fatalf("count documents: %v", err)
	}
	if count != 0 {
		t.Fatalf("%d document rows survived reset", count)
	}
}

func chunkMetaJSON(t *testing.T, index int) datatypes.JSON {
	t.Helper()
	raw, err := json.Marshal(types.ChunkMeta{
		ChunkIndex: index,
		StartToken: index * 5,
		EndToken:   index*5 + 5,
	})
	if err != nil {
		t.Fatalf("encode meta: %v", err)
	}
	return datatypes.JSON(raw)
}

func TestReindexDocumentRewritesPoints(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	h := newHarness(t, tx)
	ctx := context.Background()

	owner := "owner-" + uuid.NewString()
	doc, err := h.docs.Create(ctx, nil, &types.Document{
		ID:         uuid.New(),
		Title:      "Lease Agreement",
		OwnerID:    &owner,
		StorageKey: "lease/lease.pdf",
	})
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}
	rows := []*types.DocumentChunk{
		{ID: uuid.New(), DocumentID: doc.ID, Text: "first chunk text", Meta: chunkMetaJSON(t, 0)},
		{ID: uuid.New(), DocumentID: doc.ID, Text: "second chunk text", Meta: chunkMetaJSON(t, 1)},
	}
	if _, err := h.chunks.Create(ctx, nil, rows); err != nil {
		t.Fatalf("seed chunks: %v", err)
	}

	n, err := h.svc.ReindexDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ReindexDocument: %v", err)
	}
	if n != 2 {
		t.Fatalf("reindexed %d chunks, want 2", n)
	}

	// Old points are cleared before the rewrite.
	if len(h.index.deletedDocs) != 1 || h.index.deletedDocs[0] != doc.ID.String() {
		t.Fatalf("index deletions = %v", h.index.deletedDocs)
	}
	if len(h.index.points) != 2 {
		t.Fatalf("%d points written, want 2", len(h.index.points))
	}
	for i, p := range h.index.points {
		if p.ID != rows[i].ID.String() {
			t.Fatalf("point %d id = %s, want chunk row id %s", i, p.ID, rows[i].ID)
		}
		if p.Payload["document_title"] != "Lease Agreement" {
			t.Fatalf("point %d title payload = %v", i, p.Payload["document_title"])
		}
		meta, ok := p.Payload["meta"].(types.ChunkMeta)
		if !ok || meta.ChunkIndex != i {
			t.Fatalf("point %d meta payload = %#v", i, p.Payload["meta"])
		}
	}
	if len(h.ai.embedCalls) != 1 {
		t.Fatalf("embed called %d times, want 1", len(h.ai.embedCalls))
	}
	if got := h.ai.embedCalls[0]; got[0] != "first chunk text" || got[1] != "second chunk text" {
		t.Fatalf("embedded texts out of order: %v", got)
	}
}

func TestReindexDocumentWithoutChunks(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	h := newHarness(t, tx)
	ctx := context.Background()

	doc, err := h.docs.Create(ctx, nil, &types.Document{
		ID:         uuid.New(),
		Title:      "Empty",
		StorageKey: "empty/empty.txt",
	})
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}

	n, err := h.svc.ReindexDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("ReindexDocument: %v", err)
	}
	if n != 0 {
		t.Fatalf("reindexed %d chunks, want 0", n)
	}
	if len(h.index.deletedDocs) != 0 || len(h.index.points) != 0 || len(h.ai.embedCalls) != 0 {
		t.Fatal("no vector or embedding work expected for a chunkless document")
	}

	if _, err := h.svc.ReindexDocument(ctx, uuid.New()); err == nil {
		t.Fatal("expected an error for an unknown document")
	}
}
