package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "valora/internal/docs" // Import swagger docs
	"valora/internal/handlers"
	"valora/internal/middleware"
)

// NewRouter builds the HTTP surface. Every /api/v1 route requires apiKey in
// the X-API-Key header; an empty key disables them.
func NewRouter(s *Services, apiKey string) *gin.Engine {
	pipelineHandler := handlers.NewPipelineHandler(s.Pipeline, s.Fetcher, s.Revaluer, s.Rates)
	valuationHandler := handlers.NewValuationHandler(s.Queries, s.Runs)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.PipelineAuthMiddleware(apiKey))

	pipeline := v1.Group("/pipeline")
	pipeline.POST("/valuations", pipelineHandler.RunValuation)
	pipeline.POST("/prices", pipelineHandler.FetchPrices)
	pipeline.POST("/revaluations", pipelineHandler.Revalue)
	pipeline.POST("/exchange-rates", pipelineHandler.RefreshRates)

	v1.GET("/holdings", valuationHandler.GetHoldings)
	v1.GET("/prices", valuationHandler.GetPrices)
	v1.GET("/exchange-rates/latest", valuationHandler.GetLatestRate)
	v1.GET("/valuation-runs", valuationHandler.GetRuns)

	return router
}
