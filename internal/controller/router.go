// Package controller wires the HTTP routes the sync pipeline is driven
// through: sync triggers, credential management and stored-record listing.
package controller

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bidwatch/koneps-sync/internal/store"
	syncpkg "github.com/bidwatch/koneps-sync/internal/sync"
)

type errorResponse struct {
	Reason string `json:"reason"`
}

// SetupRoutes registers all route handlers on the echo instance.
func SetupRoutes(e *echo.Echo, coordinator *syncpkg.Coordinator, notices *store.NoticeRepo, awards *store.AwardRepo, configs *store.ConfigRepo, maxRangeDays int) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	e.GET("/health", health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	newSyncHandler(api, coordinator, validate, maxRangeDays)
	newRecordsHandler(api, notices, awards, validate)
	newConfigHandler(api, configs, coordinator, validate)
}

func health(c echo.Context) error {
	return c.JSON(200, map[string]string{"status": "ok"})
}
