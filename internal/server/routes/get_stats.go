package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tradl-labs/newsgraph/internal/server/middleware"
	"github.com/tradl-labs/newsgraph/pkg/common"
	"github.com/tradl-labs/newsgraph/pkg/logger"
)

// GetStatsHandler reports article, canonical, entity and relation counts
// plus the observed dedup ratio.
func GetStatsHandler(c echo.Context) error {
	type statsResponse struct {
		Message string        `json:"message"`
		Stats   *common.Stats `json:"stats,omitempty"`
	}

	app := c.(*middleware.AppContext).App
	stats, err := app.Pipeline.Stats(c.Request().Context())
	if err != nil {
		logger.Error("Failed to compute stats", "err", err)
		return c.JSON(http.StatusInternalServerError, statsResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, statsResponse{
		Message: "OK",
		Stats:   &stats,
	})
}
