package routes

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tradl-labs/newsgraph/internal/server/middleware"
	"github.com/tradl-labs/newsgraph/pkg/logger"
)

// DedupFeedbackHandler feeds reviewer labels into the threshold tuner.
// FalseDuplicateIDs are dedup decision ids judged as wrong merges; Since
// bounds the review window (defaults to the last 24h).
func DedupFeedbackHandler(c echo.Context) error {
	type feedbackBody struct {
		Since             time.Time `json:"since"`
		FalseDuplicateIDs []string  `json:"false_duplicate_ids"`
	}

	type feedbackResponse struct {
		Message   string  `json:"message"`
		Threshold float64 `json:"threshold,omitempty"`
	}

	data := new(feedbackBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, feedbackResponse{
			Message: "Invalid request body",
		})
	}
	if data.Since.IsZero() {
		data.Since = time.Now().UTC().Add(-24 * time.Hour)
	}

	app := c.(*middleware.AppContext).App
	threshold, err := app.Tuner.Tune(c.Request().Context(), data.Since, data.FalseDuplicateIDs)
	if err != nil {
		logger.Error("Threshold tuning failed", "err", err)
		return c.JSON(http.StatusInternalServerError, feedbackResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, feedbackResponse{
		Message:   "Feedback applied",
		Threshold: threshold,
	})
}
