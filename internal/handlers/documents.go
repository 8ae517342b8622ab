package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/andrewmcdan/AI-Document-Interview-System/internal/data/repos"
	types "github.com/andrewmcdan/AI-Document-Interview-System/internal/domain"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/ingestion"
	"github.com/andrewmcdan/AI-Document-Interview-System/internal/platform/logger"
)

// downloadTTL is how long a presigned original-file link stays valid.
const downloadTTL = time.Hour

// URLSigner is the slice of the object store that mints download links.
type URLSigner interface {
	SignedURL(key string, ttl time.Duration) (string, error)
}

type DocumentsHandler struct {
	log          *logger.Logger
	documentRepo repos.DocumentRepo
	ingestion    ingestion.Service
	signer       URLSigner
}

func NewDocumentsHandler(
	baseLog *logger.Logger,
	documentRepo repos.DocumentRepo,
	ingestionService ingestion.Service,
	signer URLSigner,
) *DocumentsHandler {
	return &DocumentsHandler{
		log:          baseLog.With("handler", "DocumentsHandler"),
		documentRepo: documentRepo,
		ingestion:    ingestionService,
		signer:       signer,
	}
}

// GET /api/documents
func (h *DocumentsHandler) List(c *gin.Context) {
	current, ok := requireUser(c)
	if !ok {
		return
	}
	limit, offset := pageParams(c)

	docs, err := h.documentRepo.List(c.Request.Context(), nil, &current, limit, offset)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_documents_failed", err)
		return
	}
	total, err := h.documentRepo.Count(c.Request.Context(), nil, &current)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "count_documents_failed", err)
		return
	}
	RespondOK(c, gin.H{"documents": docs, "total": total})
}

// POST /api/documents
//
// Multipart upload with title, optional description and the file itself.
// The default path ingests in-request; ?async=1 stores the original,
// records a pending job and leaves the pipeline to the background worker.
func (h *DocumentsHandler) Upload(c *gin.Context) {
	current, ok := requireUser(c)
	if !ok {
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		RespondError(c, http.StatusBadRequest, "missing_title", fmt.Errorf("title form field required"))
		return
	}
	var description *string
	if d := strings.TrimSpace(c.PostForm("description")); d != "" {
		description = &d
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "missing_file", err)
		return
	}

	docID := uuid.New()
	fileName := filepath.Base(fileHeader.Filename)
	if fileName == "" || fileName == "." || fileName == string(filepath.Separator) {
		fileName = "upload.bin"
	}

	// The extension drives extraction, so the spooled name keeps it.
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("%s_%s", docID, fileName))
	if err := c.SaveUploadedFile(fileHeader, tmpPath); err != nil {
		RespondError(c, http.StatusInternalServerError, "upload_spool_failed", err)
		return
	}
	defer os.Remove(tmpPath)

	in := ingestion.IngestInput{
		DocumentID:  docID,
		Title:       title,
		Description: description,
		OwnerID:     &current,
		FileName:    fileName,
		LocalPath:   tmpPath,
	}

	if isAsync(c) {
		job, err := h.ingestion.Enqueue(c.Request.Context(), in)
		if err != nil {
			RespondError(c, http.StatusInternalServerError, "enqueue_failed", err)
			return
		}
		RespondOK(c, gin.H{"job": job})
		return
	}

	doc, err := h.ingestion.Ingest(c.Request.Context(), in)
	if err != nil {
		respondIngestError(c, err)
		return
	}
	RespondOK(c, gin.H{"document": doc})
}

// GET /api/documents/:id
func (h *DocumentsHandler) GetByID(c *gin.Context) {
	current, ok := requireUser(c)
	if !ok {
		return
	}
	doc, ok := h.loadOwned(c, current)
	if !ok {
		return
	}

	payload := gin.H{"document": doc}
	if h.signer != nil && doc.StorageKey != "" {
		url, err := h.signer.SignedURL(doc.StorageKey, downloadTTL)
		if err != nil {
			h.log.Warn("sign download url failed", "document_id", doc.ID, "error", err)
		} else {
			payload["download_url"] = url
		}
	}
	RespondOK(c, payload)
}

// DELETE /api/documents/:id
func (h *DocumentsHandler) Delete(c *gin.Context) {
	current, ok := requireUser(c)
	if !ok {
		return
	}
	doc, ok := h.loadOwned(c, current)
	if !ok {
		return
	}

	if err := h.ingestion.DeleteDocument(c.Request.Context(), doc.ID); err != nil {
		RespondError(c, http.StatusInternalServerError, "delete_document_failed", err)
		return
	}
	RespondOK(c, gin.H{"status": "deleted"})
}

// loadOwned resolves the :id path param and applies the ownership guard
// shared by the single-document routes. A false return means the response
// was already written.
func (h *DocumentsHandler) loadOwned(c *gin.Context, current string) (*types.Document, bool) {
	docID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_document_id", err)
		return nil, false
	}

	doc, err := h.documentRepo.GetByID(c.Request.Context(), nil, docID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "load_document_failed", err)
		return nil, false
	}
	if doc == nil {
		RespondError(c, http.StatusNotFound, "document_not_found", fmt.Errorf("document %s not found", docID))
		return nil, false
	}
	if doc.OwnerID != nil && *doc.OwnerID != current {
		RespondError(c, http.StatusForbidden, "not_document_owner", fmt.Errorf("not authorized for this document"))
		return nil, false
	}
	return doc, true
}

func isAsync(c *gin.Context) bool {
	switch strings.ToLower(c.Query("async")) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func respondIngestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, types.ErrUnsupportedFormat):
		RespondError(c, http.StatusUnsupportedMediaType, "unsupported_format", err)
	case errors.Is(err, types.ErrNoTextExtracted), errors.Is(err, types.ErrNoEmbeddings):
		RespondError(c, http.StatusUnprocessableEntity, "empty_document", err)
	case errors.Is(err, types.ErrEmbeddingUnavailable):
		RespondError(c, http.StatusServiceUnavailable, "embedding_unavailable", err)
	default:
		RespondError(c, http.StatusInternalServerError, "ingestion_failed", err)
	}
}
