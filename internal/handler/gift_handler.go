package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gift-approval-api/internal/dto"
	"github.com/noah-isme/gift-approval-api/internal/models"
	"github.com/noah-isme/gift-approval-api/internal/workflow"
	appErrors "github.com/noah-isme/gift-approval-api/pkg/errors"
	"github.com/noah-isme/gift-approval-api/pkg/response"
)

type giftService interface {
	Create(ctx context.Context, actor *workflow.Actor, req dto.CreateGiftRequest) (*models.GiftRequest, error)
	Transition(ctx context.Context, actor *workflow.Actor, id int64, req dto.TransitionRequest) (*dto.TransitionResult, error)
	Get(ctx context.Context, actor *workflow.Actor, id int64) (*models.GiftRequest, error)
	List(ctx context.Context, actor *workflow.Actor, query dto.GiftListQuery) ([]models.GiftRequest, error)
	Timeline(ctx context.Context, actor *workflow.Actor, id int64) ([]models.TimelineEntry, error)
}

// GiftHandler exposes single-record gift request endpoints.
type GiftHandler struct {
	service giftService
}

// NewGiftHandler builds a new handler.
func NewGiftHandler(service giftService) *GiftHandler {
	return &GiftHandler{service: service}
}

// Create godoc
// @Summary Create a gift request
// @Tags Gifts
// @Accept json
// @Produce json
// @Param payload body dto.CreateGiftRequest true "Gift request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /gifts [post]
func (h *GiftHandler) Create(c *gin.Context) {
	var req dto.CreateGiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "gift request"))
		return
	}
	gift, err := h.service.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, gift)
}

// List godoc
// @Summary List gift requests
// @Tags Gifts
// @Produce json
// @Param status query string false "Comma separated workflow statuses"
// @Param batchId query int false "Batch filter"
// @Param memberLogin query string false "Member login filter"
// @Param limit query int false "Page size (max 200)"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /gifts [get]
func (h *GiftHandler) List(c *gin.Context) {
	query := dto.GiftListQuery{
		MemberLogin: c.Query("memberLogin"),
		Limit:       queryInt(c, "limit"),
		Offset:      queryInt(c, "offset"),
	}
	for _, s := range queryList(c, "status") {
		query.Status = append(query.Status, workflow.Status(s))
	}
	if raw := c.Query("batchId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "batchId must be an integer"))
			return
		}
		query.BatchID = &id
	}

	gifts, err := h.service.List(c.Request.Context(), actorFromContext(c), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gifts, &response.Pagination{Limit: query.Limit, Offset: query.Offset, Count: len(gifts)})
}

// Get godoc
// @Summary Get a gift request
// @Tags Gifts
// @Produce json
// @Param id path int true "Gift ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /gifts/{id} [get]
func (h *GiftHandler) Get(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	gift, err := h.service.Get(c.Request.Context(), actorFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gift, nil)
}

// Timeline godoc
// @Summary Status history of a gift request
// @Tags Gifts
// @Produce json
// @Param id path int true "Gift ID"
// @Success 200 {object} response.Envelope
// @Router /gifts/{id}/timeline [get]
func (h *GiftHandler) Timeline(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.service.Timeline(c.Request.Context(), actorFromContext(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Transition godoc
// @Summary Run a workflow action on a gift request
// @Tags Gifts
// @Accept json
// @Produce json
// @Param id path int true "Gift ID"
// @Param payload body dto.TransitionRequest true "Tab, action and payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /gifts/{id}/transitions [post]
func (h *GiftHandler) Transition(c *gin.Context) {
	id, err := idParam(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, bindError(err, "transition"))
		return
	}
	result, err := h.service.Transition(c.Request.Context(), actorFromContext(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
