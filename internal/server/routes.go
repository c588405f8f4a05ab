package server

import (
	"github.com/labstack/echo/v4"

	"github.com/tradl-labs/newsgraph/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// News ingestion and querying
	apiRoutes.POST("/news", routes.ProcessNewsHandler)
	apiRoutes.POST("/query", routes.QueryNewsHandler)

	// Observability and tuning
	apiRoutes.GET("/stats", routes.GetStatsHandler)
	apiRoutes.POST("/dedup/feedback", routes.DedupFeedbackHandler)
}
