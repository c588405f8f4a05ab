package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tradl-labs/newsgraph/internal/server/middleware"
	"github.com/tradl-labs/newsgraph/pkg/common"
	"github.com/tradl-labs/newsgraph/pkg/logger"
)

// QueryNewsHandler answers one query over the canonical article corpus.
// explain=true includes the graph expansion paths per result.
func QueryNewsHandler(c echo.Context) error {
	type queryNewsBody struct {
		Query   string `json:"query" validate:"required"`
		Explain bool   `json:"explain"`
	}

	type queryNewsResponse struct {
		Message string                `json:"message"`
		Results []common.RankedResult `json:"results"`
	}

	data := new(queryNewsBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryNewsResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, queryNewsResponse{
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App
	results, err := app.Pipeline.QueryNews(c.Request().Context(), data.Query, data.Explain)
	if err != nil {
		logger.Error("[Query] failed", "err", err)
		return c.JSON(http.StatusInternalServerError, queryNewsResponse{
			Message: "Internal server error",
		})
	}
	if results == nil {
		results = []common.RankedResult{}
	}

	return c.JSON(http.StatusOK, queryNewsResponse{
		Message: "OK",
		Results: results,
	})
}
