package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/shelfstock/internal/api/handlers"
	"github.com/andresuchdata/shelfstock/internal/api/middleware"
	"github.com/andresuchdata/shelfstock/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	StockTargetService   *service.StockTargetService
	ReplenishmentService *service.ReplenishmentService
	UploadDir            string
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
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

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		samples := apiGroup.Group("/samples")

		if services.StockTargetService != nil {
			stockTargetHandler := handlers.NewStockTargetHandler(services.StockTargetService, services.UploadDir)
			stockTargetGroup := apiGroup.Group("/stock_targets")
			{
				stockTargetGroup.POST("/compute", stockTargetHandler.Compute)
				stockTargetGroup.GET("/runs/:id", stockTargetHandler.GetRun)
			}
			samples.GET("/stock_targets", stockTargetHandler.Sample)
		}

		if services.ReplenishmentService != nil {
			replenishmentHandler := handlers.NewReplenishmentHandler(services.ReplenishmentService, services.UploadDir)
			replenishmentGroup := apiGroup.Group("/replenishment")
			{
				replenishmentGroup.POST("/evaluate", replenishmentHandler.Evaluate)
				replenishmentGroup.GET("/summary", replenishmentHandler.GetSummary)
				replenishmentGroup.GET("/latest", replenishmentHandler.GetLatest)
			}
			samples.GET("/replenishment", replenishmentHandler.Sample)
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
