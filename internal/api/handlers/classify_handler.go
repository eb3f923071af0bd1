package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/sparecast/sparecast/internal/domain"
	"github.com/sparecast/sparecast/internal/service"
)

type ClassifyHandler struct {
	service *service.ClassifyService
}

func NewClassifyHandler(service *service.ClassifyService) *ClassifyHandler {
	return &ClassifyHandler{service: service}
}

func (h *ClassifyHandler) parseFilter(c *gin.Context) domain.ClassificationFilter {
	filter := domain.ClassificationFilter{
		Page:     1,
		PageSize: 50,
	}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		filter.Page = page
	}

	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "50")); err == nil && size > 0 {
		filter.PageSize = size
	}

	if abc := strings.ToUpper(strings.TrimSpace(c.Query("abc_class"))); abc != "" {
		filter.ABCClass = domain.ABCClass(abc)
	}

	if xyz := strings.ToUpper(strings.TrimSpace(c.Query("xyz_class"))); xyz != "" {
		filter.XYZClass = domain.XYZClass(xyz)
	}

	if item := strings.TrimSpace(c.Query("item_code")); item != "" {
		filter.ItemCode = item
	}

	if period := strings.TrimSpace(c.Query("period")); period != "" {
		filter.Period = period
	}

	return filter
}

func (h *ClassifyHandler) List(c *gin.Context) {
	filter := h.parseFilter(c)
	results, total, err := h.service.Classifications(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch classifications", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":     results,
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

func (h *ClassifyHandler) Matrix(c *gin.Context) {
	matrix, err := h.service.Matrix(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch matrix", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, matrix)
}

func (h *ClassifyHandler) Item(c *gin.Context) {
	itemCode := c.Param("item_code")
	result, err := h.service.Item(c.Request.Context(), itemCode)
	if errors.Is(err, service.ErrNotClassified) {
		c.JSON(http.StatusNotFound, gin.H{"error": "item has no classification"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch classification", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ClassifyHandler) History(c *gin.Context) {
	itemCode := c.Param("item_code")
	results, err := h.service.History(c.Request.Context(), itemCode)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch classification history", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": results})
}

type adjustmentRequest struct {
	ItemCode     string `json:"item_code" binding:"required"`
	ProposedTier string `json:"proposed_tier" binding:"required"`
	Reason       string `json:"reason"`
	Requester    string `json:"requester" binding:"required"`
}

func (h *ClassifyHandler) SubmitAdjustment(c *gin.Context) {
	var req adjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	rec, err := h.service.SubmitAdjustment(c.Request.Context(), req.ItemCode, req.ProposedTier, req.Reason, req.Requester)
	switch {
	case errors.Is(err, service.ErrInvalidTier):
		c.JSON(http.StatusBadRequest, gin.H{"error": "proposed tier must be a valid ABC/XYZ code"})
		return
	case errors.Is(err, service.ErrNotClassified):
		c.JSON(http.StatusNotFound, gin.H{"error": "item has no classification"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit adjustment", "details": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, rec)
}

func (h *ClassifyHandler) ListAdjustments(c *gin.Context) {
	status := domain.AdjustmentStatus(strings.ToUpper(strings.TrimSpace(c.Query("status"))))
	records, err := h.service.Adjustments(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch adjustments", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": records})
}

type decisionRequest struct {
	Reviewer string `json:"reviewer" binding:"required"`
	Remark   string `json:"remark"`
}

func (h *ClassifyHandler) ApproveAdjustment(c *gin.Context) {
	h.decideAdjustment(c, h.service.ApproveAdjustment)
}

func (h *ClassifyHandler) RejectAdjustment(c *gin.Context) {
	h.decideAdjustment(c, h.service.RejectAdjustment)
}

func (h *ClassifyHandler) decideAdjustment(c *gin.Context,
	decide func(ctx context.Context, id int64, reviewer, remark string) (*domain.AdjustmentRecord, error)) {

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid adjustment id"})
		return
	}

	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	rec, err := decide(c.Request.Context(), id, req.Reviewer, req.Remark)
	switch {
	case errors.Is(err, service.ErrAdjustmentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "adjustment not found"})
		return
	case errors.Is(err, service.ErrNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "adjustment is already decided"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to decide adjustment", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rec)
}
