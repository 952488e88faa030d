package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"docflow/internal/app"
	"docflow/internal/kb"
	"docflow/internal/transport/http/response"
)

type QueryHandler struct {
	queryService *app.QueryService
}

type QueryRequest struct {
	Query       string   `json:"query" binding:"required"`
	TopK        int      `json:"top_k"`
	TenantID    string   `json:"tenant_id"`
	UserID      string   `json:"user_id"`
	ProjectID   string   `json:"project_id"`
	ThreadID    string   `json:"thread_id"`
	DocumentIDs []string `json:"document_ids"`
}

func NewQueryHandler(queryService *app.QueryService) *QueryHandler {
	return &QueryHandler{queryService: queryService}
}

func (h *QueryHandler) Query(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	out, err := h.queryService.Query(c.Request.Context(), app.QueryInput{
		Text: req.Query,
		TopK: req.TopK,
		Filters: kb.Filters{
			TenantID:    req.TenantID,
			UserID:      req.UserID,
			ProjectID:   req.ProjectID,
			ThreadID:    req.ThreadID,
			DocumentIDs: req.DocumentIDs,
		},
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
			return
		}
		response.Error(c, http.StatusBadGateway, response.CodeUpstreamFailed, "query failed: "+err.Error())
		return
	}
	response.OK(c, out)
}

func (h *QueryHandler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	records, err := h.queryService.History(c.Query("tenant_id"), c.Query("user_id"), limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list query history failed")
		return
	}
	response.OK(c, records)
}
