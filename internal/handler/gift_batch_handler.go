package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gift-approval-api/internal/dto"
	"github.com/noah-isme/gift-approval-api/internal/models"
	"github.com/noah-isme/gift-approval-api/internal/workflow"
	"github.com/noah-isme/gift-approval-api/pkg/response"
)

type giftBatchService interface {
	Import(ctx context.Context, actor *workflow.Actor, req dto.ImportRequest) (*dto.ImportResult, error)
	BulkUpdate(ctx context.Context, actor *workflow.Actor, req dto.BulkUpdateRequest) (*dto.BulkUpdateResult, error)
	Rollback(ctx context.Context, actor *workflow.Actor, req dto.RollbackRequest) (*dto.RollbackResult, error)
	ListBatches(ctx context.Context, actor *workflow.Actor, query dto.BatchListQuery) ([]models.GiftBatch, error)
	GetBatch(ctx context.Context, actor *workflow.Actor, id int64) (*dto.BatchDetail, error)
	ExportBatch(ctx context.Context, actor *workflow.Actor, id int64, format string) ([]byte, string, string, error)
}

// GiftBatchHandler exposes bulk import, bulk update and rollback endpoints.
type GiftBatchHandler struct {
	service giftBatchService
}

// NewGiftBatchHandler builds a new handler.
func NewGiftBatchHandler(service giftBatchService) *GiftBatchHandler {
	return &GiftBatchHandler{service: service}
}

func partialMeta(updated, failed int) map[string]interface{} {
	return map[string]interface{}{"partial": updated > 0 && failed > 0}
}

// Import godoc
// @Summary Bulk create gift requests
// @Tags Gift Batches
// @Accept json
// @Produce json
// @Param payload body dto.ImportRequest true "Import rows"
// @Success 201 {object} response.Envelope
// @Router /gift-batches/import [post]
func (h *GiftBatchHandler) Import(c *gin.Context) {
	var req dto.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "import"))
		return
	}
	result, err := h.service.Import(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result, nil, partialMeta(result.ImportedCount, result.FailedCount))
}

// BulkUpdate godoc
// @Summary Apply a tab's sheet to many gift requests
// @Tags Gift Batches
// @Accept json
// @Produce json
// @Param payload body dto.BulkUpdateRequest true "Tab and rows"
// @Success 200 {object} response.Envelope
// @Router /gift-batches/update [post]
func (h *GiftBatchHandler) BulkUpdate(c *gin.Context) {
	var req dto.BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "bulk update"))
		return
	}
	result, err := h.service.BulkUpdate(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, partialMeta(result.UpdatedCount, result.FailedCount))
}

// Rollback godoc
// @Summary Reverse a completed batch
// @Tags Gift Batches
// @Accept json
// @Produce json
// @Param payload body dto.RollbackRequest true "Target batch and reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /gift-batches/rollback [post]
func (h *GiftBatchHandler) Rollback(c *gin.Context) {
	var req dto.RollbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "rollback"))
		return
	}
	result, err := h.service.Rollback(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil, partialMeta(result.RolledBackCount, result.FailedCount))
}

// List godoc
// @Summary List batches
// @Tags Gift Batches
// @Produce json
// @Param type query string false "IMPORT or UPDATE"
// @Param tab query string false "Tab filter"
// @Param status query string false "Batch status"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /gift-batches [get]
func (h *GiftBatchHandler) List(c *gin.Context) {
	query := dto.BatchListQuery{
		Type:   models.BatchType(strings.ToUpper(c.Query("type"))),
		Tab:    c.Query("tab"),
		Status: models.BatchStatus(strings.ToUpper(c.Query("status"))),
		Limit:  queryInt(c, "limit"),
		Offset: queryInt(c, "offset"),
	}
	batches, err := h.service.ListBatches(c.Request.Context(), actorFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, batches, &response.Pagination{Limit: query.Limit, Offset: query.Offset, Count: len(batches)})
}

// Get godoc
// @Summary Get a batch with its rollback history
// @Tags Gift Batches
// @Produce json
// @Param id path int true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /gift-batches/{id} [get]
func (h *GiftBatchHandler) Get(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	detail, err := h.service.GetBatch(c.Request.Context(), actorFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Export godoc
// @Summary Download the requests of a batch
// @Tags Gift Batches
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce application/pdf
// @Param id path int true "Batch ID"
// @Param format query string false "csv (default), xlsx or pdf"
// @Success 200 {file} file
// @Router /gift-batches/{id}/export [get]
func (h *GiftBatchHandler) Export(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	body, filename, contentType, err := h.service.ExportBatch(c.Request.Context(), actorFromContext(c), id, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, filename, contentType, body)
}
