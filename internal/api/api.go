package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sparecast/sparecast/internal/api/handlers"
	"github.com/sparecast/sparecast/internal/api/middleware"
	"github.com/sparecast/sparecast/internal/service"
)

type Services struct {
	ClassifyService *service.ClassifyService
	ForecastService *service.ForecastService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.ClassifyService != nil {
			classifyHandler := handlers.NewClassifyHandler(services.ClassifyService)
			classifyGroup := apiGroup.Group("/classifications")
			{
				classifyGroup.GET("", classifyHandler.List)
				classifyGroup.GET("/matrix", classifyHandler.Matrix)
				classifyGroup.GET("/:item_code", classifyHandler.Item)
				classifyGroup.GET("/:item_code/history", classifyHandler.History)
			}

			adjustmentGroup := apiGroup.Group("/adjustments")
			{
				adjustmentGroup.POST("", classifyHandler.SubmitAdjustment)
				adjustmentGroup.GET("", classifyHandler.ListAdjustments)
				adjustmentGroup.POST("/:id/approve", classifyHandler.ApproveAdjustment)
				adjustmentGroup.POST("/:id/reject", classifyHandler.RejectAdjustment)
			}
		}

		if services.ForecastService != nil {
			forecastHandler := handlers.NewForecastHandler(services.ForecastService)
			forecastGroup := apiGroup.Group("/forecasts")
			{
				forecastGroup.GET("", forecastHandler.List)
				forecastGroup.GET("/:item_code/history", forecastHandler.History)
			}

			runGroup := apiGroup.Group("/runs")
			{
				runGroup.POST("", forecastHandler.TriggerRun)
				runGroup.GET("", forecastHandler.RecentRuns)
				runGroup.GET("/:id", forecastHandler.RunStatus)
			}

			apiGroup.GET("/suggestions", forecastHandler.Suggestions)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
