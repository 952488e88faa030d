package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"docflow/internal/app"
	"docflow/internal/model"
	"docflow/internal/transport/http/response"
)

const maxUploadSize = 20 << 20 // 20 MB

// IngestEnqueuer publishes an ingest request for asynchronous processing.
type IngestEnqueuer interface {
	Publish(ctx context.Context, req model.IngestRequest) error
}

type DocumentHandler struct {
	ingestion *app.IngestionService
	enqueuer  IngestEnqueuer
}

type IngestDocumentRequest struct {
	SourceBucket string            `json:"source_bucket"`
	SourceKey    string            `json:"source_key" binding:"required"`
	DocumentName string            `json:"document_name"`
	Content      string            `json:"content"`
	TenantID     string            `json:"tenant_id" binding:"required"`
	UserID       string            `json:"user_id" binding:"required"`
	ProjectID    string            `json:"project_id"`
	ThreadID     string            `json:"thread_id"`
	Metadata     map[string]string `json:"metadata"`
}

func NewDocumentHandler(ingestion *app.IngestionService, enqueuer IngestEnqueuer) *DocumentHandler {
	return &DocumentHandler{ingestion: ingestion, enqueuer: enqueuer}
}

// Ingest runs the pipeline synchronously when the request carries inline
// content; without content the request is queued and the worker fetches the
// object from the store by bucket/key.
func (h *DocumentHandler) Ingest(c *gin.Context) {
	var req IngestDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if req.Content != "" {
		result, err := h.ingestion.Ingest(c.Request.Context(), app.IngestInput{
			SourceBucket: req.SourceBucket,
			SourceKey:    req.SourceKey,
			Name:         req.DocumentName,
			Content:      []byte(req.Content),
			TenantID:     req.TenantID,
			UserID:       req.UserID,
			ProjectID:    req.ProjectID,
			ThreadID:     req.ThreadID,
			Extra:        req.Metadata,
		})
		if err != nil {
			writeIngestError(c, err)
			return
		}
		response.OK(c, result)
		return
	}

	if err := h.enqueuer.Publish(c.Request.Context(), model.IngestRequest{
		SourceBucket: req.SourceBucket,
		SourceKey:    req.SourceKey,
		DocumentName: req.DocumentName,
		TenantID:     req.TenantID,
		UserID:       req.UserID,
		ProjectID:    req.ProjectID,
		ThreadID:     req.ThreadID,
		Metadata:     req.Metadata,
	}); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "enqueue ingest request failed")
		return
	}

	response.Accepted(c, gin.H{"source_key": req.SourceKey})
}

// Upload accepts a multipart form with "file" plus tenant fields and runs the
// pipeline synchronously on the uploaded bytes.
func (h *DocumentHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxUploadSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 20MB)")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}

	sourceKey := strings.TrimSpace(c.PostForm("source_key"))
	if sourceKey == "" {
		sourceKey = "uploads/" + path.Base(file.Filename)
	}

	result, err := h.ingestion.Ingest(c.Request.Context(), app.IngestInput{
		SourceBucket: c.PostForm("source_bucket"),
		SourceKey:    sourceKey,
		Name:         c.PostForm("name"),
		Content:      content,
		TenantID:     c.PostForm("tenant_id"),
		UserID:       c.PostForm("user_id"),
		ProjectID:    c.PostForm("project_id"),
		ThreadID:     c.PostForm("thread_id"),
	})
	if err != nil {
		writeIngestError(c, err)
		return
	}
	response.OK(c, result)
}

func writeIngestError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrNoExtractableText):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrIngestInProgress):
		response.Error(c, http.StatusConflict, response.CodeIngestConflict, err.Error())
	case errors.Is(err, app.ErrAllChunksFailed), errors.Is(err, app.ErrSyncTimeout):
		response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailed, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "ingest failed: "+err.Error())
	}
}

// Status answers a poll by document id or source key.
func (h *DocumentHandler) Status(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		key = c.Param("id")
	}

	report, err := h.ingestion.GetStatus(c.Request.Context(), key)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "status lookup failed")
		}
		return
	}
	response.OK(c, report)
}

func (h *DocumentHandler) List(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	docs, err := h.ingestion.ListDocuments(
		c.Query("status"),
		c.Query("tenant_id"),
		c.Query("user_id"),
		limit,
	)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	detail, err := h.ingestion.GetDocument(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get document failed")
		}
		return
	}
	response.OK(c, detail)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	documentID := c.Param("id")
	if err := h.ingestion.DeleteDocument(documentID); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		case errors.Is(err, app.ErrIngestInProgress):
			response.Error(c, http.StatusConflict, response.CodeIngestConflict, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		}
		return
	}
	response.OK(c, gin.H{"deleted_document_id": documentID})
}

func (h *DocumentHandler) ListChunks(c *gin.Context) {
	chunks, err := h.ingestion.ListChunks(c.Param("id"))
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list chunks failed")
		return
	}
	response.OK(c, chunks)
}

func (h *DocumentHandler) ListFailures(c *gin.Context) {
	failures, err := h.ingestion.ListFailures(c.Param("id"))
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list failures failed")
		return
	}
	response.OK(c, failures)
}
