package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/ctxutil"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

const maxErrorBodyBytes = 1024

// Index is a REST client for a single Qdrant collection holding document
// chunk vectors. The collection is created lazily on first upsert once the
// embedding dimension is known.
type Index struct {
	log     *logger.Logger
	cfg     Config
	baseURL string
	http    *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

// Point is one chunk vector with its payload as stored in the collection.
type Point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// ScoredPoint is a search hit. Score is nil when the server response carried
// no score for the point.
type ScoredPoint struct {
	ID      string         `json:"-"`
	Score   *float64       `json:"score"`
	Payload map[string]any `json:"payload"`
}

// SearchFilter restricts a search to specific documents and, when set, a
// single owner. A zero filter matches everything.
type SearchFilter struct {
	DocumentIDs []string
	OwnerID     *string
}

func NewIndex(log *logger.Logger, cfg Config) (*Index, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	idx := &Index{
		log:     log.With("service", "QdrantIndex"),
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	log.Info(
		"qdrant index configured",
		"url", idx.baseURL,
		"collection", cfg.Collection,
	)
	return idx, nil
}

// Ready checks the server readiness probe. Used by the readiness endpoint.
func (x *Index) Ready(ctx context.Context) error {
	const op = "ready"
	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, x.baseURL+"/readyz", nil)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build ready request failed", err)
	}
	x.authorize(req)
	resp, err := x.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant ready check failed", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorRequestFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant ready check returned status=%d", resp.StatusCode),
		}
	}
	return nil
}

// EnsureCollection creates the collection with the given vector size and
// cosine distance if it does not exist. When the collection exists its size
// must match dim.
func (x *Index) EnsureCollection(ctx context.Context, dim int) error {
	const op = "ensure_collection"
	if dim <= 0 {
		return opErr(op, OperationErrorValidation, "vector size must be positive", nil)
	}

	var info struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err := x.doJSON(ctx, op, http.MethodGet, x.collectionPath(""), nil, &info)
	if err == nil {
		size := info.Config.Params.Vectors.Size
		if size != 0 && size != dim {
			return &OperationError{
				Code:      OperationErrorValidation,
				Operation: op,
				Message: fmt.Sprintf(
					"collection %q vector size mismatch: expected=%d actual=%d",
					x.cfg.Collection,
					dim,
					size,
				),
			}
		}
		return nil
	}
	if !IsNotFound(err) {
		return err
	}

	req := map[string]any{
		"vectors": map[string]any{
			"size":     dim,
			"distance": "Cosine",
		},
	}
	if err := x.doJSON(ctx, op, http.MethodPut, x.collectionPath(""), req, nil); err != nil {
		return err
	}
	x.log.Info("qdrant collection created", "collection", x.cfg.Collection, "vector_dim", dim)
	return nil
}

// Upsert writes points synchronously (?wait=true) so a subsequent search
// sees them.
func (x *Index) Upsert(ctx context.Context, points []Point) error {
	const op = "upsert"
	if len(points) == 0 {
		return nil
	}
	for _, p := range points {
		if strings.TrimSpace(p.ID) == "" {
			return opErr(op, OperationErrorValidation, "point id is required", nil)
		}
		if len(p.Vector) == 0 {
			return opErr(op, OperationErrorValidation, fmt.Sprintf("point %q has empty vector", p.ID), nil)
		}
	}
	req := map[string]any{"points": points}
	return x.doJSON(ctx, op, http.MethodPut, x.collectionPath("/points?wait=true"), req, nil)
}

// Search runs a similarity search and returns hits with payloads, in server
// order.
func (x *Index) Search(ctx context.Context, vector []float32, limit int, filter SearchFilter) ([]ScoredPoint, error) {
	const op = "search"
	if len(vector) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector required", nil)
	}
	if limit <= 0 {
		limit = 5
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if f := buildFilter(filter); f != nil {
		req["filter"] = f
	}

	var raw []struct {
		ID      json.RawMessage `json:"id"`
		Score   *float64        `json:"score"`
		Payload map[string]any  `json:"payload"`
	}
	if err := x.doJSON(ctx, op, http.MethodPost, x.collectionPath("/points/search"), req, &raw); err != nil {
		if IsNotFound(err) {
			// Collection not created yet means nothing was ever indexed.
			return nil, nil
		}
		return nil, err
	}

	out := make([]ScoredPoint, 0, len(raw))
	for _, item := range raw {
		out = append(out, ScoredPoint{
			ID:      decodePointID(item.ID),
			Score:   item.Score,
			Payload: item.Payload,
		})
	}
	return out, nil
}

// DeleteByDocument removes every point whose payload document_id matches.
func (x *Index) DeleteByDocument(ctx context.Context, documentID string) error {
	const op = "delete_by_document"
	if strings.TrimSpace(documentID) == "" {
		return opErr(op, OperationErrorValidation, "document id required", nil)
	}
	req := map[string]any{
		"filter": map[string]any{
			"must": []any{
				matchCondition("document_id", documentID),
			},
		},
	}
	err := x.doJSON(ctx, op, http.MethodPost, x.collectionPath("/points/delete?wait=true"), req, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}

// DropCollection deletes the whole collection. A missing collection is not
// an error; the next upsert recreates it.
func (x *Index) DropCollection(ctx context.Context) error {
	const op = "drop_collection"
	err := x.doJSON(ctx, op, http.MethodDelete, x.collectionPath(""), nil, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}

func (x *Index) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, x.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")
	x.authorize(req)

	resp, err := x.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 10*maxErrorBodyBytes))
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorRequestFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(envelope.Status); statusErr != "" {
		return &OperationError{
			Code:       OperationErrorRequestFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    statusErr,
		}
	}

	if out == nil {
		return nil
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func (x *Index) authorize(req *http.Request) {
	if strings.TrimSpace(x.cfg.APIKey) != "" {
		req.Header.Set("api-key", x.cfg.APIKey)
	}
}

func (x *Index) collectionPath(suffix string) string {
	path := "/collections/" + x.cfg.Collection
	if strings.TrimSpace(suffix) == "" {
		return path
	}
	return path + suffix
}

func buildFilter(f SearchFilter) map[string]any {
	must := make([]any, 0, 2)
	if len(f.DocumentIDs) > 0 {
		vals := make([]any, 0, len(f.DocumentIDs))
		for _, id := range f.DocumentIDs {
			if strings.TrimSpace(id) != "" {
				vals = append(vals, id)
			}
		}
		if len(vals) == 1 {
			must = append(must, matchCondition("document_id", vals[0]))
		} else if len(vals) > 1 {
			must = append(must, map[string]any{
				"key":   "document_id",
				"match": map[string]any{"any": vals},
			})
		}
	}
	if f.OwnerID != nil && strings.TrimSpace(*f.OwnerID) != "" {
		must = append(must, matchCondition("owner_id", *f.OwnerID))
	}
	if len(must) == 0 {
		return nil
	}
	return map[string]any{"must": must}
}

func matchCondition(key string, value any) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}

func classifyHTTPCallError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}

	var statusString string
	if err := json.Unmarshal(raw, &statusString); err == nil {
		if strings.EqualFold(statusString, "ok") || strings.EqualFold(statusString, "acknowledged") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", statusString)
	}

	var statusObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &statusObject); err == nil {
		if strings.TrimSpace(statusObject.Error) != "" {
			return strings.TrimSpace(statusObject.Error)
		}
	}

	return fmt.Sprintf("qdrant status=%s", status)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func decodePointID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var idString string
	if err := json.Unmarshal(raw, &idString); err == nil {
		return strings.TrimSpace(idString)
	}
	var idNumber int64
	if err := json.Unmarshal(raw, &idNumber); err == nil {
		return fmt.Sprintf("%d", idNumber)
	}
	return strings.TrimSpace(string(raw))
}
