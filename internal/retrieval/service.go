// Package retrieval answers questions over the indexed corpus: embed the
// question, similarity-search the vector index, rank and de-duplicate the
// hits, build a grounded prompt, and run or stream the completion. Every
// completed exchange is recorded to the query log and, when scoped to a
// conversation, appended to its message history.
package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos"
	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/openai"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/qdrant"
)

const (
	defaultTopK = 5
	maxTopK     = 50

	titleLimit = 80
)

// VectorSearcher is the slice of the qdrant client the query path uses.
type VectorSearcher interface {
	Search(ctx context.Context, vector []float32, limit int, filter qdrant.SearchFilter) ([]qdrant.ScoredPoint, error)
}

// QueryCache caches question embeddings between requests. Implementations
// are best effort; a miss just costs one embedding call.
type QueryCache interface {
	Get(ctx context.Context, model, text string) ([]float32, bool)
	Set(ctx context.Context, model, text string, vec []float32)
}

type Service interface {
	// Answer runs the full query path and returns the answer with its
	// cited sources.
	Answer(ctx context.Context, in AskInput) (*AskResult, error)

	// StreamAnswer forwards completion deltas to onDelta in arrival order
	// and returns the assembled result. The exchange is recorded only after
	// the stream completes, so a consumer that disconnects mid-stream
	// leaves no partial record behind.
	StreamAnswer(ctx context.Context, in AskInput, onDelta func(delta string)) (*AskResult, error)
}

type AskInput struct {
	Question       string
	ConversationID *uuid.UUID

	// TopK is the similarity-search depth before ranking. Zero means the
	// default of 5; values above 50 are capped.
	TopK int

	// DocumentIDs restricts the search to specific documents when set.
	DocumentIDs []uuid.UUID

	// MinScore drops hits scoring below it during ranking.
	MinScore *float64

	// UserID scopes the search to one owner and is recorded on the log row.
	UserID *string
}

type AskResult struct {
	Answer         string         `json:"answer"`
	Sources        []AnswerSource `json:"sources"`
	ConversationID *uuid.UUID     `json:"conversation_id,omitempty"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

type service struct {
	db  *gorm.DB
	log *logger.Logger

	conversationRepo repos.ConversationRepo
	messageRepo      repos.MessageRepo
	queryLogRepo     repos.QueryLogRepo

	index VectorSearcher
	ai    openai.Client
	cache QueryCache

	embedModel string
}

func NewService(
	db *gorm.DB,
	baseLog *logger.Logger,
	conversationRepo repos.ConversationRepo,
	messageRepo repos.MessageRepo,
	queryLogRepo repos.QueryLogRepo,
	index VectorSearcher,
	ai openai.Client,
	cache QueryCache,
	embedModel string,
) Service {
	return &service{
		db:               db,
		log:              baseLog.With("service", "RetrievalService"),
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		queryLogRepo:     queryLogRepo,
		index:            index,
		ai:               ai,
		cache:            cache,
		embedModel:       embedModel,
	}
}

// preparedQuery carries everything the answer step needs after retrieval.
type preparedQuery struct {
	question string
	conv     *types.Conversation
	sources  []AnswerSource
	prompt   string
}

func (s *service) Answer(ctx context.Context, in AskInput) (*AskResult, error) {
	prep, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	messages := []openai.ChatMessage{{Role: "user", Content: prep.prompt}}
	answer, err := s.ai.GenerateText(ctx, messages, nil)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}

	if err := s.recordExchange(ctx, prep, in.UserID, answer); err != nil {
		return nil, err
	}
	return s.result(prep, answer), nil
}

func (s *service) StreamAnswer(ctx context.Context, in AskInput, onDelta func(delta string)) (*AskResult, error) {
	prep, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	messages := []openai.ChatMessage{{Role: "user", Content: prep.prompt}}
	answer, err := s.ai.StreamText(ctx, messages, nil, onDelta)
	if err != nil {
		return nil, fmt.Errorf("stream answer: %w", err)
	}

	// The answer already reached the consumer; record on a fresh context so
	// a post-stream disconnect cannot drop the row.
	if err := s.recordExchange(context.Background(), prep, in.UserID, answer); err != nil {
		s.log.Warn("record streamed exchange failed", "error", err)
	}
	return s.result(prep, answer), nil
}

func (s *service) prepare(ctx context.Context, in AskInput) (*preparedQuery, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, fmt.Errorf("question required")
	}

	topK := in.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	var conv *types.Conversation
	if in.ConversationID != nil {
		var err error
		conv, err = s.conversationRepo.GetByID(ctx, nil, *in.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("load conversation: %w", err)
		}
		if conv == nil {
			return nil, types.ErrConversationNotFound
		}
	}

	vector, err := s.embedQuestion(ctx, question)
	if err != nil {
		return nil, err
	}

	filter := qdrant.SearchFilter{OwnerID: in.UserID}
	for _, id := range in.DocumentIDs {
		filter.DocumentIDs = append(filter.DocumentIDs, id.String())
	}
	points, err := s.index.Search(ctx, vector, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	ranked := Rank(hitsFromPoints(points), RankConfig{MinScore: in.MinScore})
	sources := make([]AnswerSource, 0, len(ranked))
	for _, h := range ranked {
		sources = append(sources, sourceFromHit(h))
	}

	s.log.Info("retrieval ranked",
		"hits", len(points),
		"kept", len(sources),
		"top_k", topK,
	)

	return &preparedQuery{
		question: question,
		conv:     conv,
		sources:  sources,
		prompt:   BuildPrompt(question, sources),
	}, nil
}

func (s *service) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	if s.cache != nil {
		if vec, ok := s.cache.Get(ctx, s.embedModel, question); ok {
			return vec, nil
		}
	}

	if !s.ai.Configured() {
		return nil, fmt.Errorf("%w: set AIDOC_OPENAI_API_KEY", types.ErrEmbeddingUnavailable)
	}
	out, err := s.ai.Embed(ctx, []string{question})
	if err != nil {
		if errors.Is(err, openai.ErrNotConfigured) {
			return nil, fmt.Errorf("%w: %v", types.ErrEmbeddingUnavailable, err)
		}
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(out) == 0 || len(out[0]) == 0 {
		return nil, fmt.Errorf("embed question: empty vector")
	}

	if s.cache != nil {
		s.cache.Set(ctx, s.embedModel, question, out[0])
	}
	return out[0], nil
}

// recordExchange writes the query log row and, when the query ran inside a
// conversation, the user/assistant message pair. A conversation without a
// title is named after this question.
func (s *service) recordExchange(ctx context.Context, prep *preparedQuery, ownerID *string, answer string) error {
	rawSources, err := json.Marshal(prep.sources)
	if err != nil {
		s.log.Warn("encode sources failed", "error", err)
		rawSources = []byte("[]")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entry := &types.QueryLog{
			OwnerID:  ownerID,
			Question: prep.question,
			Answer:   answer,
			Sources:  datatypes.JSON(rawSources),
		}
		if prep.conv != nil {
			id := prep.conv.ID
			entry.ConversationID = &id
		}
		if _, err := s.queryLogRepo.Create(ctx, tx, entry); err != nil {
			return fmt.Errorf("create query log: %w", err)
		}

		if prep.conv == nil {
			return nil
		}
		// Explicit timestamps keep the pair ordered; both rows would
		// otherwise share the transaction's now().
		now := time.Now().UTC()
		msgs := []*types.Message{
			{ConversationID: prep.conv.ID, Role: types.MessageRoleUser, Content: prep.question, CreatedAt: now},
			{ConversationID: prep.conv.ID, Role: types.MessageRoleAssistant, Content: answer, CreatedAt: now.Add(time.Millisecond)},
		}
		if _, err := s.messageRepo.Create(ctx, tx, msgs); err != nil {
			return fmt.Errorf("append messages: %w", err)
		}

		updates := map[string]interface{}{}
		if prep.conv.Title == nil || strings.TrimSpace(*prep.conv.Title) == "" {
			updates["title"] = deriveTitle(prep.question)
		}
		if err := s.conversationRepo.UpdateFields(ctx, tx, prep.conv.ID, updates); err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}

func (s *service) result(prep *preparedQuery, answer string) *AskResult {
	res := &AskResult{
		Answer:      answer,
		Sources:     prep.sources,
		GeneratedAt: time.Now().UTC(),
	}
	if prep.conv != nil {
		id := prep.conv.ID
		res.ConversationID = &id
	}
	return res
}

// deriveTitle names a new conversation after its first question.
func deriveTitle(question string) string {
	title := strings.Join(strings.Fields(question), " ")
	runes := []rune(title)
	if len(runes) > titleLimit {
		title = string(runes[:titleLimit])
	}
	return title
}
