package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparecast/sparecast/internal/domain"
	"github.com/sparecast/sparecast/internal/repository"
	"github.com/sparecast/sparecast/internal/service"
)

type stubResults struct {
	repository.ResultStore

	page  []domain.ClassificationResult
	total int
}

func (s *stubResults) LatestClassifications(ctx context.Context, filter domain.ClassificationFilter) ([]domain.ClassificationResult, int, error) {
	return s.page, s.total, nil
}

func (s *stubResults) LatestClassification(ctx context.Context, itemCode string) (*domain.ClassificationResult, error) {
	for i := range s.page {
		if s.page[i].ItemCode == itemCode {
			return &s.page[i], nil
		}
	}
	return nil, nil
}

func (s *stubResults) Matrix(ctx context.Context) (map[string]int, error) {
	return map[string]int{"AX": 2, "CZ": 5}, nil
}

type stubRuns struct {
	repository.RunStore

	runs map[string]*domain.EngineRun
}

func (s *stubRuns) Get(ctx context.Context, id string) (*domain.EngineRun, error) {
	return s.runs[id], nil
}

func classifyRouter(results *stubResults) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewClassifyService(results, nil, nil)
	h := NewClassifyHandler(svc)

	r := gin.New()
	r.GET("/classifications", h.List)
	r.GET("/classifications/matrix", h.Matrix)
	r.GET("/classifications/:item_code", h.Item)
	return r
}

func TestClassificationList(t *testing.T) {
	results := &stubResults{
		page: []domain.ClassificationResult{
			{ItemCode: "PMP-001", ABCClass: domain.ClassA, XYZClass: domain.ClassX, TierCode: "AX"},
		},
		total: 1,
	}
	r := classifyRouter(results)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/classifications?abc_class=a&page=1", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Items []domain.ClassificationResult `json:"items"`
		Total int                           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Total)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "AX", body.Items[0].TierCode)
}

func TestClassificationItemNotFound(t *testing.T) {
	r := classifyRouter(&stubResults{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/classifications/NOPE", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestClassificationMatrix(t *testing.T) {
	r := classifyRouter(&stubResults{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/classifications/matrix", nil))

	require.Equal(t, http.StatusOK, w.Code)

	var matrix map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &matrix))
	assert.Equal(t, 2, matrix["AX"])
}

func TestRunStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	runs := &stubRuns{runs: map[string]*domain.EngineRun{
		"run-1": {ID: "run-1", Period: "2026-06", Status: domain.RunCompleted, TotalItems: 42},
	}}
	svc := service.NewForecastService(nil, nil, runs)
	h := NewForecastHandler(svc)

	r := gin.New()
	r.GET("/runs/:id", h.RunStatus)

	t.Run("known run", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/runs/run-1", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var run domain.EngineRun
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
		assert.Equal(t, domain.RunCompleted, run.Status)
		assert.Equal(t, 42, run.TotalItems)
	})

	t.Run("unknown run", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/runs/nope", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSubmitAdjustmentValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := service.NewClassifyService(&stubResults{}, nil, nil)
	h := NewClassifyHandler(svc)

	r := gin.New()
	r.POST("/adjustments", h.SubmitAdjustment)

	t.Run("missing fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/adjustments", strings.NewReader(`{"item_code":"X"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid tier", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/adjustments",
			strings.NewReader(`{"item_code":"PMP-001","proposed_tier":"QQ","requester":"alex"}`))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
