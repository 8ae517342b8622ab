package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos/testutil"
	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/openai"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/qdrant"
)

type fakeModel struct {
	configured bool
	vector     []float32
	answer     string
	deltas     []string
	genErr     error

	embedded [][]string
	prompts  []string
}

func (f *fakeModel) Configured() bool { return f.configured }

func (f *fakeModel) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	if !f.configured {
		return nil, openai.ErrNotConfigured
	}
	f.embedded = append(f.embedded, inputs)
	out := make([][]float32, len(inputs))
	for i := range out {
		out[i] = f.vector
	}
	return out, nil
}

func (f *fakeModel) GenerateText(_ context.Context, messages []openai.ChatMessage, _ *float64) (string, error) {
	if f.genErr != nil {
		return "", f.genErr
	}
	f.prompts = append(f.prompts, messages[len(messages)-1].Content)
	return f.answer, nil
}

func (f *fakeModel) StreamText(_ context.Context, messages []openai.ChatMessage, _ *float64, onDelta func(string)) (string, error) {
	if f.genErr != nil {
		return "", f.genErr
	}
	f.prompts = append(f.prompts, messages[len(messages)-1].Content)
	var full strings.Builder
	for _, d := range f.deltas {
		onDelta(d)
		full.WriteString(d)
	}
	return full.String(), nil
}

type fakeSearcher struct {
	points []qdrant.ScoredPoint
	err    error

	vectors [][]float32
	limits  []int
	filters []qdrant.SearchFilter
}

func (f *fakeSearcher) Search(_ context.Context, vector []float32, limit int, filter qdrant.SearchFilter) ([]qdrant.ScoredPoint, error) {
	f.vectors = append(f.vectors, vector)
	f.limits = append(f.limits, limit)
	f.filters = append(f.filters, filter)
	if f.err != nil {
		return nil, f.err
	}
	return f.points, nil
}

type fakeCache struct {
	vectors map[string][]float32
	hits    int
	sets    int
}

func newFakeCache() *fakeCache { return &fakeCache{vectors: map[string][]float32{}} }

func (f *fakeCache) key(model, text string) string { return model + "\x00" + text }

func (f *fakeCache) Get(_ context.Context, model, text string) ([]float32, bool) {
	vec, ok := f.vectors[f.key(model, text)]
	if ok {
		f.hits++
	}
	return vec, ok
}

func (f *fakeCache) Set(_ context.Context, model, text string, vec []float32) {
	f.sets++
	f.vectors[f.key(model, text)] = vec
}

type queryHarness struct {
	svc      Service
	model    *fakeModel
	searcher *fakeSearcher
	cache    *fakeCache

	convs repos.ConversationRepo
	msgs  repos.MessageRepo
	logs  repos.QueryLogRepo
}

func newQueryHarness(t *testing.T, db *gorm.DB) *queryHarness {
	t.Helper()
	log := testutil.Logger(t)
	h := &queryHarness{
		model: &fakeModel{
			configured: true,
			vector:     []float32{0.1, 0.2},
			answer:     "Grounded answer [1].",
		},
		searcher: &fakeSearcher{},
		cache:    newFakeCache(),
	}
	h.convs = repos.NewConversationRepo(db, log)
	h.msgs = repos.NewMessageRepo(db, log)
	h.logs = repos.NewQueryLogRepo(db, log)
	h.svc = NewService(
		db,
		log,
		h.convs,
		h.msgs,
		h.logs,
		h.searcher,
		h.model,
		h.cache,
		"text-embedding-3-small",
	)
	return h
}

func point(chunkID, docID, title, text string, score float64, meta map[string]any) qdrant.ScoredPoint {
	payload := map[string]any{
		"document_id":    docID,
		"document_title": title,
		"chunk_id":       chunkID,
		"text":           text,
	}
	if meta != nil {
		payload["meta"] = meta
	}
	return qdrant.ScoredPoint{ID: chunkID, Score: floatPtr(score), Payload: payload}
}

func TestAnswerRecordsQueryLog(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	h := newQueryHarness(t, tx)
	ctx := context.Background()

	owner := "owner-" + uuid.NewString()
	h.searcher.points = []qdrant.ScoredPoint{
		point("c1", "d1", "Lease Agreement", "Rent is due monthly.", 0.92,
			map[string]any{"chunk_index": 0, "page": 2, "start_token": 0, "end_token": 40}),
		point("c2", "d2", "Handbook", "Deposits are refundable.", 0.55, nil),
	}

	restrictTo := uuid.New()
	res, err := h.svc.Answer(ctx, AskInput{
		Question:    "  When is rent due?  ",
		UserID:      &owner,
		DocumentIDs: []uuid.UUID{restrictTo},
	})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	if res.Answer != "Grounded answer [1]." {
		t.Fatalf("answer = %q", res.Answer)
	}
	if res.ConversationID != nil {
		t.Fatal("conversation id set on a conversation-less query")
	}
	if len(res.Sources) != 2 || res.Sources[0].ChunkID != "c1" || res.Sources[1].ChunkID != "c2" {
		t.Fatalf("sources = %+v", res.Sources)
	}
	if res.Sources[0].Meta == nil || res.Sources[0].Meta.Page == nil || *res.Sources[0].Meta.Page != 2 {
		t.Fatalf("source meta not decoded: %+v", res.Sources[0].Meta)
	}

	if len(h.searcher.limits) != 1 || h.searcher.limits[0] != 5 {
		t.Fatalf("search limits = %v, want [5]", h.searcher.limits)
	}
	filter := h.searcher.filters[0]
	if filter.OwnerID == nil || *filter.OwnerID != owner {
		t.Fatalf("filter owner = %v", filter.OwnerID)
	}
	if len(filter.DocumentIDs) != 1 || filter.DocumentIDs[0] != restrictTo.String() {
		t.Fatalf("filter documents = %v", filter.DocumentIDs)
	}

	if len(h.model.prompts) != 1 {
		t.Fatalf("model called %d times", len(h.model.prompts))
	}
	prompt := h.model.prompts[0]
	for _, want := range []string{
		"[1] Lease Agreement (page 2)",
		"Rent is due monthly.",
		"[2] Handbook",
		"Question: When is rent due?",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	rows, err := h.logs.List(ctx, nil, &owner, 10, 0)
	if err != nil {
		t.Fatalf("list query logs: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d query log rows, want 1", len(rows))
	}
	row := rows[0]
	if row.Question != "When is rent due?" {
		t.Fatalf("logged question = %q", row.Question)
	}
	if row.Answer != res.Answer {
		t.Fatalf("logged answer = %q", row.Answer)
	}
	var logged []AnswerSource
	if err := json.Unmarshal(row.Sources, &logged); err != nil {
		t.Fatalf("decode logged sources: %v", err)
	}
	if len(logged) != 2 || logged[0].ChunkID != "c1" {
		t.Fatalf("logged sources = %+v", logged)
	}
}

func TestAnswerConversationFlow(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	h := newQueryHarness(t, tx)
	ctx := context.Background()

	owner := "owner-" + uuid.NewString()
	conv, err := h.convs.Create(ctx, nil, &types.Conversation{ID: uuid.New(), OwnerID: &owner})
	if err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	question := "What is the notice period?"
	res, err := h.svc.Answer(ctx, AskInput{
		Question:       question,
		ConversationID: &conv.ID,
		UserID:         &owner,
	})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if res.ConversationID == nil || *res.ConversationID != conv.ID {
		t.Fatalf("result conversation id = %v", res.ConversationID)
	}

	reloaded, err := h.convs.GetByID(ctx, nil, conv.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload conversation: %v, %v", reloaded, err)
	}
	if reloaded.Title == nil || *reloaded.Title != question {
		t.Fatalf("conversation title = %v, want the first question", reloaded.Title)
	}

	msgs, err := h.msgs.ListByConversation(ctx, nil, conv.ID, 0, 0)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != types.MessageRoleUser || msgs[0].Content != question {
		t.Fatalf("first message = %s %q", msgs[0].Role, msgs[0].Content)
	}
	if msgs[1].Role != types.MessageRoleAssistant || msgs[1].Content != res.Answer {
		t.Fatalf("second message = %s %q", msgs[1].Role, msgs[1].Content)
	}

	// A second exchange keeps the original title and appends two more rows.
	if _, err := h.svc.Answer(ctx, AskInput{
		Question:       "And the deposit?",
		ConversationID: &conv.ID,
		UserID:         &owner,
	}); err != nil {
		t.Fatalf("second Answer: %v", err)
	}
	reloaded, err = h.convs.GetByID(ctx, nil, conv.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload conversation: %v, %v", reloaded, err)
	}
	if reloaded.Title == nil || *reloaded.Title != question {
		t.Fatalf("title changed to %v", reloaded.Title)
	}
	msgs, err = h.msgs.ListByConversation(ctx, nil, conv.ID, 0, 0)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}

	rows, err := h.logs.List(ctx, nil, &owner, 10, 0)
	if err != nil {
		t.Fatalf("list query logs: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d query log rows, want 2", len(rows))
	}
	for _, row := range rows {
		if row.ConversationID == nil || *row.ConversationID != conv.ID {
			t.Fatalf("log row conversation id = %v", row.ConversationID)
		}
	}
}

func TestAnswerConversationMissing(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	h := newQueryHarness(t, tx)

	missing := uuid.New()
	_, err := h.svc.Answer(context.Background(), AskInput{
		Question:       "q",
		ConversationID: &missing,
	})
	if !errors.Is(err, types.ErrConversationNotFound) {
		t.Fatalf("err = %v, want ErrConversationNotFound", err)
	}
}

func TestAnswerEmptyQuestion(t *testing.T) {
	h := newQueryHarness(t, nil)
	if _, err := h.svc.Answer(context.Background(), AskInput{Question: "   "}); err == nil {
		t.Fatal("blank question accepted")
	}
}

func TestAnswerEmbeddingUnavailable(t *testing.T) {
	h := newQueryHarness(t, nil)
	h.model.configured = false

	_, err := h.svc.Answer(context.Background(), AskInput{Question: "q"})
	if !errors.Is(err, types.ErrEmbeddingUnavailable) {
		t.Fatalf("err = %v, want ErrEmbeddingUnavailable", err)
	}
}

func TestAnswerUsesCachedVector(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	h := newQueryHarness(t, tx)
	ctx := context.Background()

	cached := []float32{1, 2, 3}
	h.cache.vectors[h.cache.key("text-embedding-3-small", "Cached?")] = cached

	if _, err := h.svc.Answer(ctx, AskInput{Question: "Cached?"}); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(h.model.embedded) != 0 {
		t.Fatalf("embedding called %d times for a cached question", len(h.model.embedded))
	}
	if len(h.searcher.vectors) != 1 || len(h.searcher.vectors[0]) != 3 {
		t.Fatalf("search vectors = %v", h.searcher.vectors)
	}

	// A miss embeds once and stores the vector.
	if _, err := h.svc.Answer(ctx, AskInput{Question: "Not cached"}); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(h.model.embedded) != 1 {
		t.Fatalf("embedding called %d times, want 1", len(h.model.embedded))
	}
	if h.cache.sets != 1 {
		t.Fatalf("cache sets = %d, want 1", h.cache.sets)
	}
}

func TestAnswerTopKBounds(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	h := newQueryHarness(t, tx)
	ctx := context.Background()

	if _, err := h.svc.Answer(ctx, AskInput{Question: "q", TopK: 500}); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if _, err := h.svc.Answer(ctx, AskInput{Question: "q2"}); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(h.searcher.limits) != 2 || h.searcher.limits[0] != 50 || h.searcher.limits[1] != 5 {
		t.Fatalf("search limits = %v, want [50 5]", h.searcher.limits)
	}
}

func TestAnswerGenerateFailureRecordsNothing(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	h := newQueryHarness(t, tx)
	ctx := context.Background()

	owner := "owner-" + uuid.NewString()
	h.model.genErr = errors.New("upstream closed")

	if _, err := h.svc.Answer(ctx, AskInput{Question: "q", UserID: &owner}); err == nil {
		t.Fatal("model failure not propagated")
	}
	rows, err := h.logs.List(ctx, nil, &owner, 10, 0)
	if err != nil {
		t.Fatalf("list query logs: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("%d query log rows recorded for a failed answer", len(rows))
	}
}

func TestStreamAnswerForwardsDeltasThenRecords(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	h := newQueryHarness(t, tx)
	ctx := context.Background()

	owner := "owner-" + uuid.NewString()
	h.model.deltas = []string{"The notice ", "period is ", "30 days."}

	var got []string
	res, err := h.svc.StreamAnswer(ctx, AskInput{Question: "Notice period?", UserID: &owner}, func(d string) {
		got = append(got, d)
	})
	if err != nil {
		t.Fatalf("StreamAnswer: %v", err)
	}

	if len(got) != len(h.model.deltas) {
		t.Fatalf("forwarded %d deltas, want %d", len(got), len(h.model.deltas))
	}
	for i, d := range h.model.deltas {
		if got[i] != d {
			t.Fatalf("delta %d = %q, want %q", i, got[i], d)
		}
	}
	if res.Answer != "The notice period is 30 days." {
		t.Fatalf("assembled answer = %q", res.Answer)
	}

	rows, err := h.logs.List(ctx, nil, &owner, 10, 0)
	if err != nil {
		t.Fatalf("list query logs: %v", err)
	}
	if len(rows) != 1 || rows[0].Answer != res.Answer {
		t.Fatalf("logged rows = %+v", rows)
	}
}

func TestStreamAnswerFailureRecordsNothing(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	h := newQueryHarness(t, tx)
	ctx := context.Background()

	owner := "owner-" + uuid.NewString()
	h.model.genErr = errors.New("stream reset")

	_, err := h.svc.StreamAnswer(ctx, AskInput{Question: "q", UserID: &owner}, func(string) {})
	if err == nil {
		t.Fatal("stream failure not propagated")
	}
	rows, err := h.logs.List(ctx, nil, &owner, 10, 0)
	if err != nil {
		t.Fatalf("list query logs: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("%d query log rows recorded for a failed stream", len(rows))
	}
}

func TestAnswerNoSourcesUsesFallbackPrompt(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	h := newQueryHarness(t, tx)
	ctx := context.Background()

	res, err := h.svc.Answer(ctx, AskInput{Question: "Anything about clause 9?"})
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(res.Sources) != 0 {
		t.Fatalf("sources = %+v, want none", res.Sources)
	}
	prompt := h.model.prompts[0]
	if !strings.Contains(prompt, insufficientAnswer) {
		t.Error("fallback prompt not used for an empty hit list")
	}
	if !strings.Contains(prompt, "Anything about clause 9?") {
		t.Error("fallback prompt missing the question")
	}
}
