package app

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/qdrant"
)

// vectorIndex is the union of the vector-store surface the ingestion and
// retrieval services consume.
type vectorIndex interface {
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, points []qdrant.Point) error
	Search(ctx context.Context, vector []float32, limit int, filter qdrant.SearchFilter) ([]qdrant.ScoredPoint, error)
	DeleteByDocument(ctx context.Context, documentID string) error
	DropCollection(ctx context.Context) error
}

type instrumentedIndex struct {
	inner  vectorIndex
	tracer trace.Tracer
}

// instrumentIndex wraps every vector-store operation in a span. Spans stay
// no-ops until the tracer provider is installed.
func instrumentIndex(inner vectorIndex) *instrumentedIndex {
	if inner == nil {
		return nil
	}
	return &instrumentedIndex{
		inner:  inner,
		tracer: otel.Tracer("vectorstore"),
	}
}

func (s *instrumentedIndex) EnsureCollection(ctx context.Context, dim int) error {
	ctx, span := s.tracer.Start(ctx, "vectorstore.ensure_collection",
		trace.WithAttributes(attribute.Int("vector.dim", dim)))
	err := s.inner.EnsureCollection(ctx, dim)
	finishSpan(span, err)
	return err
}

func (s *instrumentedIndex) Upsert(ctx context.Context, points []qdrant.Point) error {
	ctx, span := s.tracer.Start(ctx, "vectorstore.upsert",
		trace.WithAttributes(attribute.Int("vector.points", len(points))))
	err := s.inner.Upsert(ctx, points)
	finishSpan(span, err)
	return err
}

func (s *instrumentedIndex) Search(ctx context.Context, vector []float32, limit int, filter qdrant.SearchFilter) ([]qdrant.ScoredPoint, error) {
	ctx, span := s.tracer.Start(ctx, "vectorstore.search",
		trace.WithAttributes(attribute.Int("vector.limit", limit)))
	out, err := s.inner.Search(ctx, vector, limit, filter)
	span.SetAttributes(attribute.Int("vector.hits", len(out)))
	finishSpan(span, err)
	return out, err
}

func (s *instrumentedIndex) DeleteByDocument(ctx context.Context, documentID string) error {
	ctx, span := s.tracer.Start(ctx, "vectorstore.delete_by_document",
		trace.WithAttributes(attribute.String("document.id", documentID)))
	err := s.inner.DeleteByDocument(ctx, documentID)
	finishSpan(span, err)
	return err
}

func (s *instrumentedIndex) DropCollection(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "vectorstore.drop_collection")
	err := s.inner.DropCollection(ctx)
	finishSpan(span, err)
	return err
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
