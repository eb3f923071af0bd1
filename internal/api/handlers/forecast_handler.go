package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sparecast/sparecast/internal/domain"
	"github.com/sparecast/sparecast/internal/service"
)

type ForecastHandler struct {
	service *service.ForecastService
}

func NewForecastHandler(service *service.ForecastService) *ForecastHandler {
	return &ForecastHandler{service: service}
}

func (h *ForecastHandler) List(c *gin.Context) {
	filter := domain.ForecastFilter{
		Page:     1,
		PageSize: 50,
	}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && page > 0 {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "50")); err == nil && size > 0 {
		filter.PageSize = size
	}
	if month := strings.TrimSpace(c.Query("month")); month != "" {
		filter.Month = month
	}
	if item := strings.TrimSpace(c.Query("item_code")); item != "" {
		filter.ItemCode = item
	}

	results, total, err := h.service.Forecasts(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch forecasts", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":     results,
		"total":     total,
		"page":      filter.Page,
		"page_size": filter.PageSize,
	})
}

func (h *ForecastHandler) History(c *gin.Context) {
	itemCode := c.Param("item_code")
	results, err := h.service.History(c.Request.Context(), itemCode)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch forecast history", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": results})
}

// TriggerRun starts an asynchronous engine run. The response carries the run
// ID; clients poll GET /runs/:id for progress.
func (h *ForecastHandler) TriggerRun(c *gin.Context) {
	run, err := h.service.TriggerRun(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to trigger run", "details": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, run)
}

func (h *ForecastHandler) RunStatus(c *gin.Context) {
	run, err := h.service.RunStatus(c.Request.Context(), c.Param("id"))
	if errors.Is(err, service.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch run", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, run)
}

func (h *ForecastHandler) RecentRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 {
		limit = 20
	}

	runs, err := h.service.RecentRuns(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch runs", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": runs})
}

func (h *ForecastHandler) Suggestions(c *gin.Context) {
	period := strings.TrimSpace(c.Query("period"))
	if period == "" {
		period = time.Now().UTC().Format("2006-01")
	}

	suggestions, err := h.service.Suggestions(c.Request.Context(), period)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch suggestions", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": suggestions, "period": period})
}
