package routes

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tradl-labs/newsgraph/internal/queue"
	"github.com/tradl-labs/newsgraph/internal/server/middleware"
	"github.com/tradl-labs/newsgraph/pkg/common"
	"github.com/tradl-labs/newsgraph/pkg/logger"
)

// ProcessNewsHandler ingests a batch of raw articles. With async=true the
// batch is published to the ingest queue and picked up by a worker;
// otherwise it runs inline and the full report is returned.
func ProcessNewsHandler(c echo.Context) error {
	type processNewsBody struct {
		Articles []common.RawArticle `json:"articles" validate:"required,min=1,dive"`
		Async    bool                `json:"async"`
	}

	type processNewsResponse struct {
		Message string                   `json:"message"`
		Report  *common.ProcessingReport `json:"report,omitempty"`
	}

	data := new(processNewsBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, processNewsResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, processNewsResponse{
			Message: "Invalid request body",
		})
	}

	app := c.(*middleware.AppContext).App

	if data.Async && app.Queue != nil {
		payload, err := json.Marshal(data.Articles)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, processNewsResponse{
				Message: "Internal server error",
			})
		}
		if err := queue.PublishFIFO(app.Queue, queue.IngestQueue, payload); err != nil {
			logger.Error("Failed to publish ingest batch", "err", err)
			return c.JSON(http.StatusInternalServerError, processNewsResponse{
				Message: "Internal server error",
			})
		}
		return c.JSON(http.StatusAccepted, processNewsResponse{
			Message: "Batch queued for processing",
		})
	}

	report := app.Pipeline.ProcessNews(c.Request().Context(), data.Articles)
	return c.JSON(http.StatusOK, processNewsResponse{
		Message: "Batch processed",
		Report:  &report,
	})
}
