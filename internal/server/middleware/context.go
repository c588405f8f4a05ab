package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/tradl-labs/newsgraph/internal/config"
	"github.com/tradl-labs/newsgraph/pkg/dedup"
	"github.com/tradl-labs/newsgraph/pkg/pipeline"
)

// App bundles the long-lived handles every handler needs. The queue channel
// is nil when the API runs without a broker; handlers fall back to inline
// processing then.
type App struct {
	Pipeline *pipeline.Pipeline
	Tuner    *dedup.Tuner
	Queue    *amqp091.Channel
	Config   config.Config
}

type AppContext struct {
	echo.Context
	App *App
}

// AppContextMiddleware injects the shared App into every request context.
func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{c, app})
		}
	}
}
